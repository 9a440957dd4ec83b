// Package registry реализует жизненный цикл заявок на вывод средств.
package registry

import (
	"errors"
	"time"

	"github.com/mmeshcher/payout-bot/internal/model"
)

// ErrRequestNotFound возвращается, если подходящая заявка не найдена.
var (
	ErrRequestNotFound = errors.New("withdrawal request not found")
	// ErrInvalidTransition возвращается при попытке разрешить уже разрешённую заявку.
	ErrInvalidTransition = errors.New("request already resolved")
)

// Registry управляет заявками в загруженном в память документе.
// Сохранение документа — обязанность вызывающей стороны.
type Registry struct {
	doc *model.Document
	now func() time.Time
}

// New создаёт Registry над указанным документом.
func New(doc *model.Document) *Registry {
	return &Registry{doc: doc, now: time.Now}
}

// Create добавляет новую заявку со статусом pending.
// Идентификатор — текущее время в миллисекундах; при совпадении с уже
// выданным идентификатором берётся следующий, так что идентификаторы
// строго возрастают в пределах документа.
func (r *Registry) Create(userID model.UserID, username string, amount int64) *model.WithdrawalRequest {
	now := r.now().UTC()

	id := now.UnixMilli()
	if n := len(r.doc.Requests); n > 0 && id <= r.doc.Requests[n-1].ID {
		id = r.doc.Requests[n-1].ID + 1
	}

	req := &model.WithdrawalRequest{
		ID:        id,
		UserID:    userID,
		Username:  username,
		Amount:    amount,
		Status:    model.RequestStatusPending,
		CreatedAt: now,
	}
	r.doc.Requests = append(r.doc.Requests, req)
	return req
}

// FindPendingMatch возвращает самую раннюю pending-заявку пользователя
// с точно такой же суммой. Выбор самой ранней при совпадении сумм —
// зафиксированная политика, а не случайность обхода.
func (r *Registry) FindPendingMatch(userID model.UserID, amount int64) (*model.WithdrawalRequest, error) {
	for _, req := range r.doc.Requests {
		if req.UserID == userID && req.Status == model.RequestStatusPending && req.Amount == amount {
			return req, nil
		}
	}
	return nil, ErrRequestNotFound
}

// FindByID возвращает заявку по идентификатору.
func (r *Registry) FindByID(id int64) (*model.WithdrawalRequest, error) {
	for _, req := range r.doc.Requests {
		if req.ID == id {
			return req, nil
		}
	}
	return nil, ErrRequestNotFound
}

// Resolve переводит pending-заявку в конечный статус и проставляет
// соответствующую отметку времени. Конечные статусы необратимы.
func (r *Registry) Resolve(req *model.WithdrawalRequest, status model.RequestStatus) error {
	if req.Status != model.RequestStatusPending {
		return ErrInvalidTransition
	}

	now := r.now().UTC()
	switch status {
	case model.RequestStatusPaid:
		req.Status = model.RequestStatusPaid
		req.PaidAt = &now
	case model.RequestStatusRejected:
		req.Status = model.RequestStatusRejected
		req.RejectedAt = &now
	default:
		return ErrInvalidTransition
	}

	return nil
}

// ListPending возвращает все pending-заявки в порядке создания.
func (r *Registry) ListPending() []*model.WithdrawalRequest {
	var res []*model.WithdrawalRequest
	for _, req := range r.doc.Requests {
		if req.Status == model.RequestStatusPending {
			res = append(res, req)
		}
	}
	return res
}
