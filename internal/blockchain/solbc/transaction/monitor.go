// internal/blockchain/solbc/transaction/monitor.go
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain"
)

// Значения Status.Status.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusConfirmed = "confirmed"
	StatusFinalized = "finalized"
	StatusFailed    = "failed"
)

// Status снимок статуса подписи.
type Status struct {
	Signature     string
	Status        string
	Slot          uint64
	Confirmations uint64
	// Err поле err из getSignatureStatuses без изменений.
	Err       interface{}
	Timestamp time.Time
}

// Landed true для confirmed и finalized.
func (s *Status) Landed() bool {
	return s.Status == StatusConfirmed || s.Status == StatusFinalized
}

// PollOutcome результат цикла опроса.
type PollOutcome int

const (
	PollConfirmed PollOutcome = iota
	PollRejected
	PollTimedOut
)

func (o PollOutcome) String() string {
	switch o {
	case PollConfirmed:
		return "confirmed"
	case PollRejected:
		return "rejected"
	case PollTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Monitor опрашивает статус подписи до подтверждения, отказа или исчерпания попыток.
type Monitor struct {
	client blockchain.Client
	logger *zap.Logger
}

func NewMonitor(client blockchain.Client, logger *zap.Logger) *Monitor {
	return &Monitor{
		client: client,
		logger: logger.Named("tx-monitor"),
	}
}

// Check один запрос статуса подписи.
func (m *Monitor) Check(ctx context.Context, signature solana.Signature) (*Status, error) {
	response, err := m.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction status: %w", err)
	}

	txStatus := &Status{
		Signature: signature.String(),
		Status:    StatusPending,
		Timestamp: time.Now(),
	}
	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return txStatus, nil
	}

	status := response.Value[0]
	txStatus.Slot = status.Slot
	if status.Confirmations != nil {
		txStatus.Confirmations = *status.Confirmations
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		txStatus.Status = StatusFinalized
	case rpc.ConfirmationStatusConfirmed:
		txStatus.Status = StatusConfirmed
	case rpc.ConfirmationStatusProcessed:
		txStatus.Status = StatusProcessed
	}

	// Ошибка исполнения важнее уровня подтверждения.
	if status.Err != nil {
		txStatus.Err = status.Err
		txStatus.Status = StatusFailed
	}

	return txStatus, nil
}

// Await опрашивает статус не более policy.MaxConfirmPolls раз, выдерживая
// policy.ConfirmDelay перед каждым запросом. Ошибки транспорта не прерывают опрос.
// Возвращает исход, число выполненных опросов и *OnChainError для PollRejected.
func (m *Monitor) Await(ctx context.Context, signature solana.Signature, policy RetryPolicy, progress ProgressFunc) (PollOutcome, int, error) {
	polls := 0
	for polls < policy.MaxConfirmPolls {
		if err := sleepCtx(ctx, policy.ConfirmDelay); err != nil {
			return PollTimedOut, polls, err
		}
		polls++

		status, err := m.Check(ctx, signature)
		if err != nil {
			if ctx.Err() != nil {
				return PollTimedOut, polls, ctx.Err()
			}
			m.logger.Debug("Status poll failed",
				zap.String("signature", signature.String()),
				zap.Int("poll", polls),
				zap.Error(err))
			progress.emit(ProgressEvent{
				Stage:     StagePolling,
				Poll:      polls,
				MaxPolls:  policy.MaxConfirmPolls,
				Signature: signature,
				Err:       err,
			})
			continue
		}

		progress.emit(ProgressEvent{
			Stage:     StagePolling,
			Poll:      polls,
			MaxPolls:  policy.MaxConfirmPolls,
			Signature: signature,
			Status:    status.Status,
		})

		switch {
		case status.Status == StatusFailed:
			return PollRejected, polls, &OnChainError{Signature: signature, Detail: status.Err}
		case status.Landed():
			m.logger.Debug("Transaction confirmed",
				zap.String("signature", signature.String()),
				zap.String("status", status.Status),
				zap.Uint64("slot", status.Slot),
				zap.Int("polls", polls))
			return PollConfirmed, polls, nil
		}
	}

	return PollTimedOut, polls, nil
}

// sleepCtx ждёт d или отмены контекста. d <= 0 только проверяет контекст.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
