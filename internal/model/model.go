// Package model содержит доменные сущности учётной книги выплат.
package model

import (
	"strconv"
	"time"
)

// UserID — идентификатор пользователя (совпадает с идентификатором чата).
type UserID int64

// String возвращает десятичное представление идентификатора,
// используемое как ключ в персистентном документе.
func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseUserID разбирает идентификатор пользователя из строки.
func ParseUserID(s string) (UserID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return UserID(v), nil
}

// User представляет пользователя с балансом во внутренних единицах.
type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}

// RequestStatus описывает статус заявки на вывод средств.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusPaid     RequestStatus = "paid"
	RequestStatusRejected RequestStatus = "rejected"
)

// Terminal сообщает, является ли статус конечным.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusPaid || s == RequestStatusRejected
}

// WithdrawalRequest описывает заявку пользователя на ручную выплату.
// Заявки никогда не удаляются: разрешённые остаются в документе как история.
type WithdrawalRequest struct {
	ID         int64         `json:"id"`
	UserID     UserID        `json:"userId"`
	Username   string        `json:"username"`
	Amount     int64         `json:"amount"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	PaidAt     *time.Time    `json:"paid_at,omitempty"`
	RejectedAt *time.Time    `json:"rejected_at,omitempty"`
}

// Document — персистентный агрегат: все пользователи и все заявки.
// Порядок заявок в срезе равен порядку их создания.
type Document struct {
	Users    map[string]*User     `json:"users"`
	Requests []*WithdrawalRequest `json:"withdraw_requests"`
}

// NewDocument создаёт пустой документ.
func NewDocument() *Document {
	return &Document{
		Users:    make(map[string]*User),
		Requests: []*WithdrawalRequest{},
	}
}

// User возвращает запись пользователя либо nil, если её нет.
func (d *Document) User(id UserID) *User {
	return d.Users[id.String()]
}
