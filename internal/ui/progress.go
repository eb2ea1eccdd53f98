package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-sender/internal/ui/style"
)

const historySize = 8

// ProgressModel экран отправки одной транзакции: спиннер, текущий этап и журнал событий.
type ProgressModel struct {
	title   string
	spinner spinner.Model
	keys    KeyMap
	styles  style.Styles
	updates <-chan tea.Msg
	cancel  context.CancelFunc

	last       transaction.ProgressEvent
	hasEvent   bool
	history    []string
	result     *transaction.Result
	err        error
	done       bool
	cancelling bool
	started    time.Time
}

// NewProgressModel создает экран. cancel вызывается по клавише выхода и может быть nil.
func NewProgressModel(title string, updates <-chan tea.Msg, cancel context.CancelFunc) ProgressModel {
	styles := style.DefaultStyles()
	return ProgressModel{
		title:   title,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Spinner)),
		keys:    DefaultKeyMap(),
		styles:  styles,
		updates: updates,
		cancel:  cancel,
		started: time.Now(),
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, Listen(m.updates))
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !key.Matches(msg, m.keys.Quit) {
			return m, nil
		}
		// Повторное нажатие выходит, не дожидаясь результата.
		if m.cancelling || m.done {
			return m, tea.Quit
		}
		m.cancelling = true
		if m.cancel != nil {
			m.cancel()
		}
		return m, nil

	case ProgressMsg:
		m.last = msg.Event
		m.hasEvent = true
		if line := describe(msg.Event); line != "" {
			m.history = append(m.history, line)
			if len(m.history) > historySize {
				m.history = m.history[len(m.history)-historySize:]
			}
		}
		// После финального этапа событий больше не будет, итог придет через ResultMsg.
		if msg.Event.Stage.Terminal() {
			return m, nil
		}
		return m, Listen(m.updates)

	case ResultMsg:
		m.result = msg.Result
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString("\n\n")

	if !m.done {
		status := "preparing"
		if m.hasEvent {
			status = m.last.Stage.String()
			switch {
			case m.last.Stage == transaction.StagePolling:
				status = fmt.Sprintf("polling %d/%d", m.last.Poll, m.last.MaxPolls)
			case m.last.Stage.Terminal():
				status = m.last.Stage.String() + ", finishing"
			}
		}
		if m.cancelling {
			status = "cancelling"
		}
		fmt.Fprintf(&b, "%s %s %s\n", m.spinner.View(), m.styles.Stage.Render(status),
			m.styles.Muted.Render(time.Since(m.started).Truncate(100*time.Millisecond).String()))
	}

	for _, line := range m.history {
		b.WriteString(m.styles.Muted.Render("  " + line))
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString("\n")
		b.WriteString(m.summary())
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render(m.keys.Quit.Help().Key + " " + m.keys.Quit.Help().Desc))
		b.WriteString("\n")
	}
	return b.String()
}

func (m ProgressModel) summary() string {
	text := Summary(m.result, m.err)
	switch {
	case m.result != nil && m.result.Outcome == transaction.OutcomeLanded:
		return m.styles.Box.Render(m.styles.Success.Render(text))
	case m.result != nil && (m.result.Outcome == transaction.OutcomeExhausted || m.result.Outcome == transaction.OutcomeCancelled):
		return m.styles.Box.Render(m.styles.Warning.Render(text))
	default:
		return m.styles.Box.Render(m.styles.Error.Render(text))
	}
}

// Result итог, полученный экраном.
func (m ProgressModel) Result() (*transaction.Result, error) {
	return m.result, m.err
}

// Summary текстовый итог отправки, общий для экрана и обычного вывода.
func Summary(result *transaction.Result, err error) string {
	if result == nil {
		if err == nil {
			return "no result"
		}
		var funds *transaction.InsufficientFundsError
		if errors.As(err, &funds) {
			return funds.Error()
		}
		return "failed: " + err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s via %s", result.Outcome, result.Channel)
	fmt.Fprintf(&b, "\nsignature: %s", result.Signature)
	fmt.Fprintf(&b, "\nsubmissions: %d, status polls: %d, priority fee: %d µLamports/CU",
		result.Attempts, result.Polls, result.PriorityFee)
	fmt.Fprintf(&b, "\nduration: %s", result.Duration.Truncate(time.Millisecond))
	if err != nil {
		fmt.Fprintf(&b, "\nerror: %s", err)
	}
	return b.String()
}

func describe(ev transaction.ProgressEvent) string {
	switch ev.Stage {
	case transaction.StageSubmitting:
		return fmt.Sprintf("submission #%d via %s", ev.Attempt, ev.Channel)
	case transaction.StageSubmitted:
		return fmt.Sprintf("submitted %s", shortSignature(ev.Signature.String()))
	case transaction.StageSubmitFailed:
		return fmt.Sprintf("submission #%d failed: %v", ev.Attempt, ev.Err)
	case transaction.StageRetrying:
		return fmt.Sprintf("retrying in %s", ev.Delay)
	case transaction.StageRejected:
		return fmt.Sprintf("rejected: %v", ev.Err)
	case transaction.StageExhausted:
		return fmt.Sprintf("gave up after %d submissions", ev.Attempt)
	case transaction.StageCancelled:
		return "cancelled"
	case transaction.StagePolling:
		if ev.Err != nil {
			return fmt.Sprintf("status poll %d failed: %v", ev.Poll, ev.Err)
		}
		return ""
	default:
		return ""
	}
}

func shortSignature(sig string) string {
	if len(sig) <= 16 {
		return sig
	}
	return sig[:8] + "…" + sig[len(sig)-8:]
}
