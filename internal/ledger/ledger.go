// Package ledger реализует операции над балансами пользователей.
package ledger

import (
	"errors"

	"github.com/mmeshcher/payout-bot/internal/model"
)

// ErrInvalidAmount возвращается при неположительной сумме операции.
var (
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientBalance возвращается при списании суммы, превышающей баланс.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Ledger изменяет балансы в загруженном в память документе.
// Сохранение документа — обязанность вызывающей стороны.
type Ledger struct {
	doc *model.Document
}

// New создаёт Ledger над указанным документом.
func New(doc *model.Document) *Ledger {
	return &Ledger{doc: doc}
}

// Balance возвращает баланс пользователя. Для неизвестного пользователя — 0,
// запись при этом не создаётся.
func (l *Ledger) Balance(userID model.UserID) int64 {
	u := l.doc.User(userID)
	if u == nil {
		return 0
	}
	return u.Balance
}

// EnsureUser возвращает запись пользователя, создавая её с нулевым балансом
// при первом упоминании. Повторные вызовы не меняют существующую запись,
// кроме обновления имени, если оно стало известно.
func (l *Ledger) EnsureUser(userID model.UserID, username string) *model.User {
	u := l.doc.User(userID)
	if u == nil {
		u = &model.User{
			ID:       userID,
			Username: username,
			Balance:  0,
		}
		l.doc.Users[userID.String()] = u
		return u
	}

	if username != "" && u.Username != username {
		u.Username = username
	}
	return u
}

// Credit увеличивает баланс пользователя на указанную сумму.
func (l *Ledger) Credit(userID model.UserID, amount int64) (*model.User, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	u := l.EnsureUser(userID, "")
	u.Balance += amount
	return u, nil
}

// Debit уменьшает баланс пользователя на указанную сумму.
// Баланс никогда не становится отрицательным.
func (l *Ledger) Debit(userID model.UserID, amount int64) (*model.User, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	u := l.EnsureUser(userID, "")
	if u.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	u.Balance -= amount
	return u, nil
}
