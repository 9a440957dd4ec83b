package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/payout-bot/internal/ledger"
	"github.com/mmeshcher/payout-bot/internal/model"
	"github.com/mmeshcher/payout-bot/internal/service"
)

const testAdminID model.UserID = 1

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []sentMessage
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, nil
	}
	f.sent = append(f.sent, sentMessage{chatID: msg.ChatID, text: msg.Text})
	return tgbotapi.Message{}, nil
}

type stubService struct {
	user    *model.User
	userErr error

	balance    int64
	balanceErr error

	withdrawReq *model.WithdrawalRequest
	withdrawErr error

	payReq *model.WithdrawalRequest
	payErr error

	rejectReq *model.WithdrawalRequest
	rejectErr error

	creditUser *model.User
	creditErr  error

	pending    []*model.WithdrawalRequest
	pendingErr error
}

func (s *stubService) EnsureUser(ctx context.Context, userID model.UserID, username string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) Balance(ctx context.Context, userID model.UserID, username string) (int64, error) {
	return s.balance, s.balanceErr
}

func (s *stubService) RequestWithdrawal(ctx context.Context, userID model.UserID, username string, amount int64) (*model.WithdrawalRequest, error) {
	return s.withdrawReq, s.withdrawErr
}

func (s *stubService) AdminPay(ctx context.Context, issuer, userID model.UserID, amount int64) (*model.WithdrawalRequest, error) {
	return s.payReq, s.payErr
}

func (s *stubService) AdminReject(ctx context.Context, issuer model.UserID, requestID int64) (*model.WithdrawalRequest, error) {
	return s.rejectReq, s.rejectErr
}

func (s *stubService) AdminCredit(ctx context.Context, issuer, userID model.UserID, amount int64) (*model.User, error) {
	return s.creditUser, s.creditErr
}

func (s *stubService) PendingRequests(ctx context.Context, issuer model.UserID) ([]*model.WithdrawalRequest, error) {
	return s.pending, s.pendingErr
}

func (s *stubService) IsAuthorized(issuer model.UserID) bool {
	return issuer == testAdminID
}

func newTestHandler(t *testing.T, svc Service) (*Handler, *fakeSender) {
	t.Helper()

	api := &fakeSender{}
	h := NewHandler(api, svc, testAdminID, zap.NewNop())
	return h, api
}

func userUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Chat: &tgbotapi.Chat{ID: chatID},
			From: &tgbotapi.User{ID: chatID, UserName: "worker"},
		},
	}
}

func TestHandleUpdate_Balance(t *testing.T) {
	svc := &stubService{balance: 150}
	h, api := newTestHandler(t, svc)

	h.HandleUpdate(context.Background(), userUpdate(42, "/balance"))

	if len(api.sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(api.sent))
	}
	if api.sent[0].chatID != 42 {
		t.Fatalf("reply sent to chat %d, want 42", api.sent[0].chatID)
	}
	if !strings.Contains(api.sent[0].text, "150") {
		t.Fatalf("balance reply must contain amount, got %q", api.sent[0].text)
	}
}

func TestHandleUpdate_WithdrawNotifiesUserAndAdmin(t *testing.T) {
	svc := &stubService{
		withdrawReq: &model.WithdrawalRequest{
			ID:        1755000000000,
			UserID:    42,
			Username:  "worker",
			Amount:    100,
			Status:    model.RequestStatusPending,
			CreatedAt: time.Now(),
		},
	}
	h, api := newTestHandler(t, svc)

	h.HandleUpdate(context.Background(), userUpdate(42, "/request_withdraw 100"))

	if len(api.sent) != 2 {
		t.Fatalf("expected ack and admin alert, got %d messages", len(api.sent))
	}
	if api.sent[0].chatID != 42 {
		t.Fatalf("ack sent to chat %d, want 42", api.sent[0].chatID)
	}
	if api.sent[1].chatID != int64(testAdminID) {
		t.Fatalf("alert sent to chat %d, want admin %d", api.sent[1].chatID, testAdminID)
	}
	if !strings.Contains(api.sent[1].text, "/pay 42 100") {
		t.Fatalf("admin alert must contain pay command, got %q", api.sent[1].text)
	}
	if !strings.Contains(api.sent[1].text, "/reject 1755000000000") {
		t.Fatalf("admin alert must contain reject command, got %q", api.sent[1].text)
	}
}

func TestHandleUpdate_WithdrawInsufficientBalance(t *testing.T) {
	svc := &stubService{withdrawErr: ledger.ErrInsufficientBalance}
	h, api := newTestHandler(t, svc)

	h.HandleUpdate(context.Background(), userUpdate(42, "/request_withdraw 100"))

	if len(api.sent) != 1 {
		t.Fatalf("expected single error reply, got %d", len(api.sent))
	}
	if !strings.Contains(api.sent[0].text, "Недостаточно средств") {
		t.Fatalf("unexpected reply: %q", api.sent[0].text)
	}
}

func TestHandleUpdate_PayNotifiesUserAndAdmin(t *testing.T) {
	svc := &stubService{
		payReq: &model.WithdrawalRequest{
			ID:     7,
			UserID: 42,
			Amount: 100,
			Status: model.RequestStatusPaid,
		},
	}
	h, api := newTestHandler(t, svc)

	h.HandleUpdate(context.Background(), userUpdate(int64(testAdminID), "/pay 42 100"))

	if len(api.sent) != 2 {
		t.Fatalf("expected two messages, got %d", len(api.sent))
	}
	if api.sent[0].chatID != 42 {
		t.Fatalf("user notification sent to %d, want 42", api.sent[0].chatID)
	}
	if api.sent[1].chatID != int64(testAdminID) {
		t.Fatalf("confirmation sent to %d, want admin", api.sent[1].chatID)
	}
}

func TestHandleUpdate_PayUnauthorized(t *testing.T) {
	svc := &stubService{payErr: service.ErrUnauthorized}
	h, api := newTestHandler(t, svc)

	h.HandleUpdate(context.Background(), userUpdate(42, "/pay 42 100"))

	if len(api.sent) != 1 {
		t.Fatalf("expected minimal reply, got %d messages", len(api.sent))
	}
	if !strings.Contains(api.sent[0].text, "администратору") {
		t.Fatalf("unexpected reply: %q", api.sent[0].text)
	}
}

func TestHandleUpdate_CreditUnauthorizedIsSilent(t *testing.T) {
	svc := &stubService{creditErr: service.ErrUnauthorized}
	h, api := newTestHandler(t, svc)

	h.HandleUpdate(context.Background(), userUpdate(42, "/add_balance 42 100"))

	if len(api.sent) != 0 {
		t.Fatalf("unauthorized credit must be silent, got %d messages", len(api.sent))
	}
}

func TestHandleUpdate_RejectNotifiesRequester(t *testing.T) {
	svc := &stubService{
		rejectReq: &model.WithdrawalRequest{
			ID:     7,
			UserID: 42,
			Amount: 100,
			Status: model.RequestStatusRejected,
		},
	}
	h, api := newTestHandler(t, svc)

	h.HandleUpdate(context.Background(), userUpdate(int64(testAdminID), "/reject 7"))

	if len(api.sent) != 2 {
		t.Fatalf("expected two messages, got %d", len(api.sent))
	}
	if api.sent[0].chatID != 42 {
		t.Fatalf("user notification sent to %d, want 42", api.sent[0].chatID)
	}
}

func TestHandleUpdate_PendingListForAdmin(t *testing.T) {
	svc := &stubService{
		pending: []*model.WithdrawalRequest{
			{ID: 1, UserID: 42, Username: "worker", Amount: 100},
			{ID: 2, UserID: 43, Amount: 50},
		},
	}
	h, api := newTestHandler(t, svc)

	h.HandleUpdate(context.Background(), userUpdate(int64(testAdminID), "/admin_requests"))

	if len(api.sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(api.sent))
	}
	text := api.sent[0].text
	if !strings.Contains(text, "@worker") || !strings.Contains(text, "43") {
		t.Fatalf("pending list must mention requests, got %q", text)
	}
}

func TestHandleUpdate_NonCommandGetsHint(t *testing.T) {
	h, api := newTestHandler(t, &stubService{})

	h.HandleUpdate(context.Background(), userUpdate(42, "привет"))

	if len(api.sent) != 1 {
		t.Fatalf("expected usage hint, got %d messages", len(api.sent))
	}
	if !strings.Contains(api.sent[0].text, "/request_withdraw") {
		t.Fatalf("hint must list commands, got %q", api.sent[0].text)
	}
}

func TestHandleUpdate_MalformedCommandGetsUsage(t *testing.T) {
	h, api := newTestHandler(t, &stubService{})

	h.HandleUpdate(context.Background(), userUpdate(42, "/request_withdraw abc"))

	if len(api.sent) != 1 {
		t.Fatalf("expected usage reply, got %d messages", len(api.sent))
	}
	if !strings.Contains(api.sent[0].text, "/request_withdraw <сумма>") {
		t.Fatalf("unexpected reply: %q", api.sent[0].text)
	}
}

func TestHandleUpdate_StorageFailureGenericReply(t *testing.T) {
	svc := &stubService{balanceErr: context.DeadlineExceeded}
	h, api := newTestHandler(t, svc)

	h.HandleUpdate(context.Background(), userUpdate(42, "/balance"))

	if len(api.sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(api.sent))
	}
	if !strings.Contains(api.sent[0].text, "Внутренняя ошибка") {
		t.Fatalf("unexpected reply: %q", api.sent[0].text)
	}
}
