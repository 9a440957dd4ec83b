// Package handler содержит HTTP-обработчики служебного сервера оператора.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/payout-bot/internal/model"
)

// Service определяет контракт ядра, используемый HTTP-обработчиками.
type Service interface {
	PendingRequests(ctx context.Context, issuer model.UserID) ([]*model.WithdrawalRequest, error)
}

// Handler реализует служебный HTTP-интерфейс: проверку живости и просмотр
// ожидающих заявок. Сервер поднимается на адресе, выбранном оператором,
// и обращается к ядру от имени администратора.
type Handler struct {
	service Service
	admin   model.UserID
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, admin model.UserID, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		admin:   admin,
		logger:  logger,
	}
}

// Ping отвечает на проверку живости.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

type requestResponse struct {
	ID        int64  `json:"id"`
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	Amount    int64  `json:"amount"`
	CreatedAt string `json:"created_at"`
}

// GetPendingRequests возвращает ожидающие заявки на вывод в порядке создания.
func (h *Handler) GetPendingRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.PendingRequests(r.Context(), h.admin)
	if err != nil {
		h.logger.Error("list pending requests error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(pending) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]requestResponse, 0, len(pending))
	for _, req := range pending {
		resp = append(resp, requestResponse{
			ID:        req.ID,
			UserID:    req.UserID.String(),
			Username:  req.Username,
			Amount:    req.Amount,
			CreatedAt: req.CreatedAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}
