// internal/blockchain/solbc/transaction/progress.go
package transaction

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Stage этап жизненного цикла отправки.
type Stage int

const (
	StageBuilding Stage = iota
	StageSubmitting
	StageSubmitted
	StageSubmitFailed
	StagePolling
	StageRetrying
	StageLanded
	StageRejected
	StageExhausted
	StageCancelled
)

func (s Stage) String() string {
	switch s {
	case StageBuilding:
		return "building"
	case StageSubmitting:
		return "submitting"
	case StageSubmitted:
		return "submitted"
	case StageSubmitFailed:
		return "submit failed"
	case StagePolling:
		return "polling"
	case StageRetrying:
		return "retrying"
	case StageLanded:
		return "landed"
	case StageRejected:
		return "rejected"
	case StageExhausted:
		return "exhausted"
	case StageCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal true для финальных этапов.
func (s Stage) Terminal() bool {
	switch s {
	case StageLanded, StageRejected, StageExhausted, StageCancelled:
		return true
	}
	return false
}

// ProgressEvent событие для индикатора прогресса.
type ProgressEvent struct {
	OperationID string
	Stage       Stage
	Channel     Channel
	Attempt     int
	Poll        int
	MaxPolls    int
	Signature   solana.Signature
	Status      string
	Delay       time.Duration
	Err         error
}

// ProgressFunc получает события синхронно из горутины отправки и не должна блокировать.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) emit(ev ProgressEvent) {
	if f != nil {
		f(ev)
	}
}
