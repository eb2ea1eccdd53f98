package ui

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc/transaction"
)

// ProgressFeed передает события отправки в канал экрана, не блокируя менеджер.
// При полном канале промежуточные события отбрасываются, а финальное
// вытесняет самое старое, чтобы экран узнал об исходе.
type ProgressFeed struct {
	updates   chan tea.Msg
	sent      atomic.Uint64
	dropped   atomic.Uint64
	evicted   atomic.Uint64
	logger    *zap.Logger
	closeOnce sync.Once
}

func NewProgressFeed(updates chan tea.Msg, logger *zap.Logger) *ProgressFeed {
	return &ProgressFeed{
		updates: updates,
		logger:  logger.Named("progress-feed"),
	}
}

// Push неблокирующая отправка. false если сообщение отброшено.
func (f *ProgressFeed) Push(msg tea.Msg) bool {
	if f.offer(msg) {
		return true
	}
	if pm, ok := msg.(ProgressMsg); ok && pm.Event.Stage.Terminal() {
		select {
		case <-f.updates:
			f.evicted.Add(1)
		default:
		}
		if f.offer(msg) {
			return true
		}
	}
	f.dropped.Add(1)
	return false
}

func (f *ProgressFeed) offer(msg tea.Msg) bool {
	select {
	case f.updates <- msg:
		f.sent.Add(1)
		return true
	default:
		return false
	}
}

// Progress для transaction.Request.Progress.
func (f *ProgressFeed) Progress() transaction.ProgressFunc {
	return func(ev transaction.ProgressEvent) {
		f.Push(ProgressMsg{Event: ev})
	}
}

// Stats число доставленных и отброшенных сообщений. Вытесненные финальным событием считаются отдельно.
func (f *ProgressFeed) Stats() (sent, dropped, evicted uint64) {
	return f.sent.Load(), f.dropped.Load(), f.evicted.Load()
}

// Close пишет итог по потерям. Повторный вызов ничего не делает.
func (f *ProgressFeed) Close() {
	f.closeOnce.Do(func() {
		sent, dropped, evicted := f.Stats()
		lost := dropped + evicted
		if lost == 0 {
			f.logger.Debug("Progress feed closed", zap.Uint64("sent", sent))
			return
		}
		f.logger.Warn("Progress events lost, view fell behind",
			zap.Uint64("sent", sent),
			zap.Uint64("dropped", dropped),
			zap.Uint64("evicted", evicted),
			zap.Float64("loss_pct", float64(lost)/float64(sent+dropped)*100))
	})
}
