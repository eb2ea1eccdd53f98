// internal/blockchain/solbc/transaction/manager.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain"
	"github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-sender/internal/fee"
)

var errConfirmationTimeout = errors.New("confirmation polls exhausted")

// Option настраивает Manager.
type Option func(*managerOptions)

type managerOptions struct {
	estimator  CostEstimator
	httpClient *http.Client
	registerer prometheus.Registerer
}

// WithEstimator подключает оценщик compute units для динамического бюджета.
func WithEstimator(e CostEstimator) Option {
	return func(o *managerOptions) { o.estimator = e }
}

// WithHTTPClient задаёт HTTP клиент relay канала.
func WithHTTPClient(c *http.Client) Option {
	return func(o *managerOptions) { o.httpClient = c }
}

// WithRegisterer регистрирует метрики в reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *managerOptions) { o.registerer = reg }
}

// Manager доводит транзакцию до подтверждения: сборка, отправка, опрос статуса, повторы.
// Безопасен для конкурентного использования.
type Manager struct {
	client    blockchain.Client
	fees      fee.Provider
	builder   *Builder
	submitter *Submitter
	monitor   *Monitor
	analyzer  *solbc.ErrorAnalyzer
	metrics   *Metrics
	config    Config
	logger    *zap.Logger
}

// NewManager создает оркестратор. fees == nil означает нулевую цену compute unit.
func NewManager(client blockchain.Client, fees fee.Provider, config Config, logger *zap.Logger, opts ...Option) *Manager {
	var o managerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if fees == nil {
		fees = fee.Static{}
	}

	return &Manager{
		client:    client,
		fees:      fees,
		builder:   NewBuilder(client, o.estimator, config, logger),
		submitter: NewSubmitter(client, o.httpClient, config, logger),
		monitor:   NewMonitor(client, logger),
		analyzer:  solbc.NewErrorAnalyzer(logger),
		metrics:   NewMetrics(o.registerer),
		config:    config,
		logger:    logger.Named("tx-manager"),
	}
}

// SendAndConfirm собирает транзакцию один раз и отправляет её до подтверждения,
// отказа сети или исчерпания политики повторов.
//
// Ошибки до первой отправки (баланс, blockhash, подпись) возвращаются с nil Result.
// После сборки Result заполнен всегда: *OnChainError для отказа сети,
// ErrExhaustedRetries для исчерпания попыток, ошибка контекста для отмены.
func (tm *Manager) SendAndConfirm(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	opID := uuid.NewString()
	logger := tm.logger.With(zap.String("operation_id", opID))
	progress := ProgressFunc(func(ev ProgressEvent) {
		ev.OperationID = opID
		req.Progress.emit(ev)
	})

	feeCfg := FeeConfig{
		PriorityFeeMicroLamports: tm.priorityFee(ctx, logger),
		TipLamports:              req.TipLamports,
	}
	tipped := feeCfg.Tipped()
	policy := tm.config.PolicyFor(feeCfg)
	channel := ChannelFor(tipped)

	progress.emit(ProgressEvent{Stage: StageBuilding, Channel: channel})
	tx, err := tm.builder.Build(ctx, BuildParams{
		Instructions: req.Instructions,
		Budget:       req.Budget,
		Fee:          feeCfg,
		Signer:       req.Signer,
		FeePayer:     req.FeePayer,
	})
	if err != nil {
		logger.Error("Failed to build transaction", zap.Error(err))
		return nil, err
	}
	tm.metrics.TrackFee(feeCfg.PriorityFeeMicroLamports)

	sig := tx.Signatures[0]
	logger = logger.With(zap.String("signature", sig.String()))
	logger.Info("Sending transaction",
		zap.Stringer("channel", channel),
		zap.Uint64("priority_fee", feeCfg.PriorityFeeMicroLamports),
		zap.Uint64("tip_lamports", feeCfg.TipLamports),
		zap.Int("max_submit_retries", policy.MaxSubmitRetries),
		zap.Bool("skip_confirm", req.SkipConfirm))

	result := &Result{
		Signature:   sig,
		PriorityFee: feeCfg.PriorityFeeMicroLamports,
		Channel:     channel,
	}

	cycles := 0
	var lastErr error
	operation := func() (Outcome, error) {
		cycles++

		// Повторный цикл: предыдущая отправка могла дойти, хотя опрос не дождался подтверждения.
		if cycles > 1 && !req.SkipConfirm {
			if status, err := tm.monitor.Check(ctx, sig); err == nil {
				switch {
				case status.Status == StatusFailed:
					return OutcomeRejected, backoff.Permanent(&OnChainError{Signature: sig, Detail: status.Err})
				case status.Landed():
					logger.Debug("Signature already landed, skipping resubmission",
						zap.String("status", status.Status))
					return OutcomeLanded, nil
				}
			}
		}

		result.Attempts++
		progress.emit(ProgressEvent{Stage: StageSubmitting, Channel: channel, Attempt: result.Attempts, Signature: sig})

		_, err := tm.submitter.Submit(ctx, tx, tipped)
		analysis := tm.analyzer.AnalyzeError(err)
		tm.metrics.TrackSubmission(channel, analysis.Class)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return OutcomeCancelled, backoff.Permanent(ctxErr)
			}
			logger.Warn("Submission failed",
				zap.Int("attempt", result.Attempts),
				zap.String("error_type", analysis.Type),
				zap.String("class", string(analysis.Class)),
				zap.Int("code", analysis.Code),
				zap.Error(err))
			progress.emit(ProgressEvent{Stage: StageSubmitFailed, Channel: channel, Attempt: result.Attempts, Signature: sig, Err: err})
			lastErr = err
			return OutcomeExhausted, err
		}
		progress.emit(ProgressEvent{Stage: StageSubmitted, Channel: channel, Attempt: result.Attempts, Signature: sig})

		if req.SkipConfirm {
			return OutcomeLanded, nil
		}

		outcome, polls, err := tm.monitor.Await(ctx, sig, policy, progress)
		result.Polls += polls
		tm.metrics.TrackPolls(polls)

		switch outcome {
		case PollConfirmed:
			return OutcomeLanded, nil
		case PollRejected:
			return OutcomeRejected, backoff.Permanent(err)
		}
		if err != nil {
			return OutcomeCancelled, backoff.Permanent(err)
		}
		logger.Debug("Confirmation timed out",
			zap.Int("attempt", result.Attempts),
			zap.Int("polls", polls))
		lastErr = errConfirmationTimeout
		return OutcomeExhausted, errConfirmationTimeout
	}

	outcome, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(policy.SubmitDelay)),
		backoff.WithMaxTries(maxTries(policy)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			progress.emit(ProgressEvent{Stage: StageRetrying, Channel: channel, Attempt: result.Attempts, Signature: sig, Delay: next, Err: err})
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if err != nil && outcome != OutcomeRejected && ctx.Err() != nil {
		outcome = OutcomeCancelled
		err = ctx.Err()
	}
	if err != nil && outcome == OutcomeExhausted {
		err = fmt.Errorf("%w after %d submissions: %w", ErrExhaustedRetries, result.Attempts, lastErr)
	}

	result.Outcome = outcome
	result.Err = err
	result.Duration = time.Since(start)
	tm.metrics.TrackOutcome(outcome, start)
	tm.finish(logger, result, progress)

	return result, err
}

func (tm *Manager) priorityFee(ctx context.Context, logger *zap.Logger) uint64 {
	price, err := tm.fees.PriorityFee(ctx)
	if err != nil {
		logger.Warn("Priority fee unavailable, using zero", zap.Error(err))
		return 0
	}
	return price
}

func (tm *Manager) finish(logger *zap.Logger, result *Result, progress ProgressFunc) {
	fields := []zap.Field{
		zap.Stringer("outcome", result.Outcome),
		zap.Int("attempts", result.Attempts),
		zap.Int("polls", result.Polls),
		zap.Duration("duration", result.Duration),
	}

	ev := ProgressEvent{Channel: result.Channel, Attempt: result.Attempts, Signature: result.Signature, Err: result.Err}
	switch result.Outcome {
	case OutcomeLanded:
		ev.Stage = StageLanded
		logger.Info("Transaction landed", fields...)
	case OutcomeRejected:
		ev.Stage = StageRejected
		var onChain *OnChainError
		if errors.As(result.Err, &onChain) {
			analysis := tm.analyzer.AnalyzeStatusError(onChain.Detail)
			if analysis.Instruction != nil {
				fields = append(fields, zap.Int("instruction", analysis.Instruction.Index))
				if analysis.Instruction.CustomCode != nil {
					fields = append(fields, zap.Int64("custom_code", *analysis.Instruction.CustomCode))
				}
			}
		}
		logger.Error("Transaction rejected on chain", append(fields, zap.Error(result.Err))...)
	case OutcomeCancelled:
		ev.Stage = StageCancelled
		logger.Warn("Transaction cancelled", append(fields, zap.Error(result.Err))...)
	default:
		ev.Stage = StageExhausted
		logger.Warn("Transaction not confirmed", append(fields, zap.Error(result.Err))...)
	}
	progress.emit(ev)
}

// maxTries переводит потолок повторов в число попыток backoff: K повторов дают K+1 отправку.
func maxTries(policy RetryPolicy) uint {
	if policy.MaxSubmitRetries < 0 {
		return 1
	}
	return uint(policy.MaxSubmitRetries) + 1
}
