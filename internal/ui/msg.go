package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc/transaction"
)

// ProgressMsg событие отправки для экрана.
type ProgressMsg struct {
	Event transaction.ProgressEvent
}

// ResultMsg финальный результат SendAndConfirm.
type ResultMsg struct {
	Result *transaction.Result
	Err    error
}

// Listen ждет следующее сообщение из канала обновлений.
func Listen(updates <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return nil
		}
		return msg
	}
}
