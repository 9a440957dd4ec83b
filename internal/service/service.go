// Package service реализует протокол заявок на выплату поверх хранилища.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mmeshcher/payout-bot/internal/ledger"
	"github.com/mmeshcher/payout-bot/internal/model"
	"github.com/mmeshcher/payout-bot/internal/registry"
)

// ErrUnauthorized возвращается, когда административную операцию
// вызывает не администратор. Состояние при этом не меняется.
var ErrUnauthorized = errors.New("operation requires administrator")

// Store описывает контракт хранилища документа, используемый сервисом.
type Store interface {
	Load(ctx context.Context) (*model.Document, error)
	Commit(ctx context.Context, doc *model.Document) error
	Close() error
}

// Service — единственный владелец цикла "загрузить — изменить — сохранить".
// Все операции выполняются под одним мьютексом: без этого два параллельных
// запроса прочитали бы один и тот же документ и затёрли бы изменения друг
// друга, нарушив инвариант неотрицательного баланса.
type Service struct {
	mu sync.Mutex

	store   Store
	admin   model.UserID
	timeout time.Duration
}

// NewService создаёт сервис с указанным хранилищем и идентификатором
// администратора. timeout ограничивает каждую операцию ввода-вывода.
func NewService(store Store, admin model.UserID, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		store:   store,
		admin:   admin,
		timeout: timeout,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// IsAuthorized сообщает, является ли вызывающий администратором.
func (s *Service) IsAuthorized(issuer model.UserID) bool {
	return issuer == s.admin
}

func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// EnsureUser регистрирует пользователя при первом обращении и возвращает
// его запись. Повторные вызовы идемпотентны.
func (s *Service) EnsureUser(ctx context.Context, userID model.UserID, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	before := doc.User(userID)
	existed := before != nil && (username == "" || before.Username == username)

	u := ledger.New(doc).EnsureUser(userID, username)
	if existed {
		return u, nil
	}

	if err := s.store.Commit(ctx, doc); err != nil {
		return nil, err
	}
	return u, nil
}

// Balance возвращает текущий баланс пользователя, регистрируя его при
// первом обращении.
func (s *Service) Balance(ctx context.Context, userID model.UserID, username string) (int64, error) {
	u, err := s.EnsureUser(ctx, userID, username)
	if err != nil {
		return 0, err
	}
	return u.Balance, nil
}

// RequestWithdrawal создаёт pending-заявку на вывод указанной суммы.
// Баланс при создании заявки не списывается: проверка достаточности средств
// здесь — фильтр на входе, а не резервирование. Повторная проверка
// выполняется в AdminPay перед фактическим списанием.
func (s *Service) RequestWithdrawal(ctx context.Context, userID model.UserID, username string, amount int64) (*model.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	l := ledger.New(doc)
	u := l.EnsureUser(userID, username)
	if u.Balance < amount {
		return nil, ledger.ErrInsufficientBalance
	}

	req := registry.New(doc).Create(userID, u.Username, amount)

	if err := s.store.Commit(ctx, doc); err != nil {
		return nil, err
	}
	return req, nil
}

// AdminPay подтверждает выплату по самой ранней pending-заявке пользователя
// с точно такой же суммой. Баланс проверяется повторно на момент выплаты:
// заявка могла быть создана, когда средств хватало, а к моменту решения —
// уже нет. Списание и перевод заявки в paid сохраняются одним коммитом.
func (s *Service) AdminPay(ctx context.Context, issuer, userID model.UserID, amount int64) (*model.WithdrawalRequest, error) {
	if !s.IsAuthorized(issuer) {
		return nil, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	reg := registry.New(doc)
	req, err := reg.FindPendingMatch(userID, amount)
	if err != nil {
		return nil, err
	}

	l := ledger.New(doc)
	if _, err := l.Debit(userID, amount); err != nil {
		// Заявка остаётся pending: администратор может повторить попытку
		// после пополнения баланса либо отклонить заявку.
		return nil, err
	}

	if err := reg.Resolve(req, model.RequestStatusPaid); err != nil {
		return nil, err
	}

	if err := s.store.Commit(ctx, doc); err != nil {
		return nil, err
	}
	return req, nil
}

// AdminReject отклоняет pending-заявку по идентификатору. Баланс не меняется.
func (s *Service) AdminReject(ctx context.Context, issuer model.UserID, requestID int64) (*model.WithdrawalRequest, error) {
	if !s.IsAuthorized(issuer) {
		return nil, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	reg := registry.New(doc)
	req, err := reg.FindByID(requestID)
	if err != nil {
		return nil, err
	}

	if err := reg.Resolve(req, model.RequestStatusRejected); err != nil {
		return nil, err
	}

	if err := s.store.Commit(ctx, doc); err != nil {
		return nil, err
	}
	return req, nil
}

// AdminCredit пополняет баланс пользователя на указанную сумму.
func (s *Service) AdminCredit(ctx context.Context, issuer, userID model.UserID, amount int64) (*model.User, error) {
	if !s.IsAuthorized(issuer) {
		return nil, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	u, err := ledger.New(doc).Credit(userID, amount)
	if err != nil {
		return nil, err
	}

	if err := s.store.Commit(ctx, doc); err != nil {
		return nil, err
	}
	return u, nil
}

// PendingRequests возвращает все pending-заявки в порядке создания.
func (s *Service) PendingRequests(ctx context.Context, issuer model.UserID) ([]*model.WithdrawalRequest, error) {
	if !s.IsAuthorized(issuer) {
		return nil, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	return registry.New(doc).ListPending(), nil
}
