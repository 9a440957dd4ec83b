package bot

import (
	"errors"
	"strconv"
	"strings"

	"github.com/mmeshcher/payout-bot/internal/model"
)

// ErrNotCommand возвращается для текста, не являющегося командой.
var ErrNotCommand = errors.New("not a command")

// Command — разобранная команда из входящего сообщения. Разбор выполняется
// на границе транспорта: до ядра доходят только типизированные значения.
type Command interface {
	isCommand()
}

// StartCommand — /start.
type StartCommand struct{}

// BalanceCommand — /balance.
type BalanceCommand struct{}

// WithdrawCommand — /request_withdraw <сумма>.
type WithdrawCommand struct {
	Amount int64
}

// PendingCommand — /admin_requests.
type PendingCommand struct{}

// PayCommand — /pay <пользователь> <сумма>.
type PayCommand struct {
	UserID model.UserID
	Amount int64
}

// RejectCommand — /reject <номер заявки>.
type RejectCommand struct {
	RequestID int64
}

// CreditCommand — /add_balance <пользователь> <сумма>.
type CreditCommand struct {
	UserID model.UserID
	Amount int64
}

func (StartCommand) isCommand()    {}
func (BalanceCommand) isCommand()  {}
func (WithdrawCommand) isCommand() {}
func (PendingCommand) isCommand()  {}
func (PayCommand) isCommand()      {}
func (RejectCommand) isCommand()   {}
func (CreditCommand) isCommand()   {}

// UsageError описывает синтаксически неверную команду и подсказку по её вызову.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return "использование: " + e.Usage
}

// ParseCommand разбирает текст сообщения в типизированную команду.
// Числовые аргументы проверяются здесь синтаксически; диапазоны значений
// повторно проверяет ядро.
func ParseCommand(text string) (Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil, ErrNotCommand
	}

	fields := strings.Fields(text)
	name := fields[0]
	// Команда может быть адресована боту явно: /balance@payout_bot.
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	args := fields[1:]

	switch name {
	case "/start":
		return StartCommand{}, nil

	case "/balance":
		return BalanceCommand{}, nil

	case "/request_withdraw":
		if len(args) != 1 {
			return nil, &UsageError{Usage: "/request_withdraw <сумма>"}
		}
		amount, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, &UsageError{Usage: "/request_withdraw <сумма>"}
		}
		return WithdrawCommand{Amount: amount}, nil

	case "/admin_requests":
		return PendingCommand{}, nil

	case "/pay":
		if len(args) != 2 {
			return nil, &UsageError{Usage: "/pay <пользователь> <сумма>"}
		}
		userID, err := model.ParseUserID(args[0])
		if err != nil {
			return nil, &UsageError{Usage: "/pay <пользователь> <сумма>"}
		}
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, &UsageError{Usage: "/pay <пользователь> <сумма>"}
		}
		return PayCommand{UserID: userID, Amount: amount}, nil

	case "/reject":
		if len(args) != 1 {
			return nil, &UsageError{Usage: "/reject <номер заявки>"}
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, &UsageError{Usage: "/reject <номер заявки>"}
		}
		return RejectCommand{RequestID: id}, nil

	case "/add_balance":
		if len(args) != 2 {
			return nil, &UsageError{Usage: "/add_balance <пользователь> <сумма>"}
		}
		userID, err := model.ParseUserID(args[0])
		if err != nil {
			return nil, &UsageError{Usage: "/add_balance <пользователь> <сумма>"}
		}
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, &UsageError{Usage: "/add_balance <пользователь> <сумма>"}
		}
		return CreditCommand{UserID: userID, Amount: amount}, nil
	}

	return nil, ErrNotCommand
}
