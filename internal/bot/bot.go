// Package bot реализует телеграм-транспорт учётной книги выплат.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/payout-bot/internal/ledger"
	"github.com/mmeshcher/payout-bot/internal/model"
	"github.com/mmeshcher/payout-bot/internal/registry"
	"github.com/mmeshcher/payout-bot/internal/service"
)

// Service определяет контракт ядра, используемый транспортом.
type Service interface {
	EnsureUser(ctx context.Context, userID model.UserID, username string) (*model.User, error)
	Balance(ctx context.Context, userID model.UserID, username string) (int64, error)
	RequestWithdrawal(ctx context.Context, userID model.UserID, username string, amount int64) (*model.WithdrawalRequest, error)
	AdminPay(ctx context.Context, issuer, userID model.UserID, amount int64) (*model.WithdrawalRequest, error)
	AdminReject(ctx context.Context, issuer model.UserID, requestID int64) (*model.WithdrawalRequest, error)
	AdminCredit(ctx context.Context, issuer, userID model.UserID, amount int64) (*model.User, error)
	PendingRequests(ctx context.Context, issuer model.UserID) ([]*model.WithdrawalRequest, error)
	IsAuthorized(issuer model.UserID) bool
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Handler обрабатывает входящие обновления Telegram: разбирает команды,
// вызывает ядро и отправляет ответы и уведомления. Уведомления уходят
// строго после успешного завершения операции; их доставка не влияет на
// состояние учётной книги.
type Handler struct {
	api     sender
	service Service
	admin   model.UserID
	logger  *zap.SugaredLogger
}

// NewHandler создаёт обработчик обновлений.
func NewHandler(api sender, svc Service, admin model.UserID, logger *zap.Logger) *Handler {
	return &Handler{
		api:     api,
		service: svc,
		admin:   admin,
		logger:  logger.Sugar(),
	}
}

// HandleUpdate обрабатывает одно обновление.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Text == "" {
		return
	}

	chatID := model.UserID(msg.Chat.ID)
	issuer := chatID
	if msg.From != nil {
		issuer = model.UserID(msg.From.ID)
	}
	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}

	cmd, err := ParseCommand(msg.Text)
	if err != nil {
		var usageErr *UsageError
		switch {
		case errors.As(err, &usageErr):
			h.reply(chatID, usageErr.Error())
		case errors.Is(err, ErrNotCommand):
			h.reply(chatID, "Доступные команды: /balance, /request_withdraw <сумма>")
		}
		return
	}

	switch c := cmd.(type) {
	case StartCommand:
		h.handleStart(ctx, chatID, username)
	case BalanceCommand:
		h.handleBalance(ctx, chatID, username)
	case WithdrawCommand:
		h.handleWithdraw(ctx, chatID, username, c.Amount)
	case PendingCommand:
		h.handlePending(ctx, issuer, chatID)
	case PayCommand:
		h.handlePay(ctx, issuer, chatID, c)
	case RejectCommand:
		h.handleReject(ctx, issuer, chatID, c)
	case CreditCommand:
		h.handleCredit(ctx, issuer, c)
	}
}

func (h *Handler) handleStart(ctx context.Context, chatID model.UserID, username string) {
	if _, err := h.service.EnsureUser(ctx, chatID, username); err != nil {
		h.replyError(chatID, err)
		return
	}
	h.reply(chatID, "Привет! Я бот выплат 🤖\nИспользуйте /balance, чтобы узнать баланс, и /request_withdraw <сумма>, чтобы запросить вывод средств.")
}

func (h *Handler) handleBalance(ctx context.Context, chatID model.UserID, username string) {
	balance, err := h.service.Balance(ctx, chatID, username)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.reply(chatID, fmt.Sprintf("Ваш текущий баланс: %d ед.", balance))
}

func (h *Handler) handleWithdraw(ctx context.Context, chatID model.UserID, username string, amount int64) {
	req, err := h.service.RequestWithdrawal(ctx, chatID, username, amount)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	h.reply(chatID, fmt.Sprintf("Заявка на вывод %d ед. зарегистрирована. Администратор уведомлён.", req.Amount))
	h.reply(h.admin, fmt.Sprintf(
		"🧾 Новая заявка на вывод\nПользователь: %s\nСумма: %d\nЗаявка №%d\nОплатить: /pay %s %d\nОтклонить: /reject %d",
		displayName(req.Username, req.UserID), req.Amount, req.ID, req.UserID, req.Amount, req.ID,
	))
}

func (h *Handler) handlePending(ctx context.Context, issuer, chatID model.UserID) {
	pending, err := h.service.PendingRequests(ctx, issuer)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	if len(pending) == 0 {
		h.reply(chatID, "Заявок на вывод сейчас нет.")
		return
	}

	var b strings.Builder
	b.WriteString("Ожидающие заявки на вывод:\n")
	for _, req := range pending {
		fmt.Fprintf(&b, "• №%d — %s — %d ед.\n", req.ID, displayName(req.Username, req.UserID), req.Amount)
	}
	h.reply(chatID, b.String())
}

func (h *Handler) handlePay(ctx context.Context, issuer, chatID model.UserID, c PayCommand) {
	req, err := h.service.AdminPay(ctx, issuer, c.UserID, c.Amount)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	h.reply(req.UserID, fmt.Sprintf("Выплата %d ед. по заявке №%d подтверждена администратором.", req.Amount, req.ID))
	h.reply(chatID, fmt.Sprintf("Выплата пользователю %s на сумму %d записана.", c.UserID, req.Amount))
}

func (h *Handler) handleReject(ctx context.Context, issuer, chatID model.UserID, c RejectCommand) {
	req, err := h.service.AdminReject(ctx, issuer, c.RequestID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	h.reply(req.UserID, fmt.Sprintf("Заявка на вывод №%d отклонена.", req.ID))
	h.reply(chatID, fmt.Sprintf("Заявка №%d отклонена.", req.ID))
}

func (h *Handler) handleCredit(ctx context.Context, issuer model.UserID, c CreditCommand) {
	u, err := h.service.AdminCredit(ctx, issuer, c.UserID, c.Amount)
	if err != nil {
		// Команду пополнения не-администратор не видит вовсе.
		if errors.Is(err, service.ErrUnauthorized) {
			return
		}
		h.replyError(issuer, err)
		return
	}

	h.reply(u.ID, fmt.Sprintf("Ваш баланс пополнен на %d ед.", c.Amount))
	h.reply(issuer, fmt.Sprintf("Баланс пользователя %s пополнен на %d ед.", c.UserID, c.Amount))
}

// reply отправляет сообщение. Ошибка доставки логируется и не влияет
// на уже сохранённое состояние.
func (h *Handler) reply(chatID model.UserID, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(int64(chatID), text)); err != nil {
		h.logger.Errorw("send message", "chat", chatID, "error", err)
	}
}

// replyError отправляет пользователю ровно одно объяснение причины отказа.
func (h *Handler) replyError(chatID model.UserID, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		h.reply(chatID, "Укажите сумму больше 0.")
	case errors.Is(err, ledger.ErrInsufficientBalance):
		h.reply(chatID, "Недостаточно средств для этой операции.")
	case errors.Is(err, registry.ErrRequestNotFound):
		h.reply(chatID, "Подходящая заявка не найдена.")
	case errors.Is(err, registry.ErrInvalidTransition):
		h.reply(chatID, "Заявка уже обработана.")
	case errors.Is(err, service.ErrUnauthorized):
		h.reply(chatID, "Эта команда доступна только администратору.")
	default:
		h.logger.Errorw("operation failed", "error", err)
		h.reply(chatID, "Внутренняя ошибка. Попробуйте позже.")
	}
}

func displayName(username string, id model.UserID) string {
	if username != "" {
		return "@" + username
	}
	return id.String()
}
