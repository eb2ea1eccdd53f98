// internal/fee/fee.go
package fee

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrNoSamples возвращается, когда узел не прислал ни одного значения комиссии.
	ErrNoSamples = errors.New("no prioritization fee samples")
	// ErrUnknownStrategy неизвестное имя динамической стратегии в конфигурации.
	ErrUnknownStrategy = errors.New("unknown dynamic fee strategy")
)

// Имена поддерживаемых динамических стратегий.
const (
	StrategyNone   = ""
	StrategyRecent = "recent"
	StrategyHelius = "helius"
)

// Provider отдаёт цену compute unit в микролампортах.
type Provider interface {
	PriorityFee(ctx context.Context) (uint64, error)
}

// ProviderFunc адаптер обычной функции к Provider.
type ProviderFunc func(ctx context.Context) (uint64, error)

// PriorityFee вызывает f(ctx).
func (f ProviderFunc) PriorityFee(ctx context.Context) (uint64, error) {
	return f(ctx)
}

// Static возвращает заранее заданную комиссию.
type Static struct {
	MicroLamports uint64
}

// PriorityFee реализует Provider.
func (s Static) PriorityFee(context.Context) (uint64, error) {
	return s.MicroLamports, nil
}

// Strategy объединяет динамический провайдер со статическим значением.
//
// Без динамического провайдера всегда возвращается Static. Если динамический
// провайдер вернул ошибку, используется Static, а ошибка только логируется:
// отправка транзакции не должна срываться из-за оценщика комиссии.
// Max > 0 ограничивает сверху динамическую оценку.
type Strategy struct {
	Dynamic Provider
	Static  uint64
	Max     uint64
	logger  *zap.Logger
}

// NewStrategy создает стратегию. dynamic может быть nil.
func NewStrategy(dynamic Provider, static, maxFee uint64, logger *zap.Logger) *Strategy {
	return &Strategy{
		Dynamic: dynamic,
		Static:  static,
		Max:     maxFee,
		logger:  logger.Named("fee-strategy"),
	}
}

// PriorityFee реализует Provider и никогда не возвращает ошибку.
func (s *Strategy) PriorityFee(ctx context.Context) (uint64, error) {
	if s.Dynamic == nil {
		return s.Static, nil
	}

	estimate, err := s.Dynamic.PriorityFee(ctx)
	if err != nil {
		s.logger.Warn("Dynamic fee estimation failed, using static fee",
			zap.Uint64("static_fee", s.Static),
			zap.Error(err))
		return s.Static, nil
	}

	if s.Max > 0 && estimate > s.Max {
		s.logger.Debug("Dynamic fee capped",
			zap.Uint64("estimate", estimate),
			zap.Uint64("max", s.Max))
		return s.Max, nil
	}
	return estimate, nil
}

// Options описывает динамическую стратегию в терминах конфигурации.
type Options struct {
	Strategy      string
	URL           string
	PriorityLevel string
	Percentile    int
	Static        uint64
	Max           uint64
}

// New собирает Strategy по конфигурации. source нужен для стратегии "recent".
func New(opts Options, source FeeSource, logger *zap.Logger) (*Strategy, error) {
	var dynamic Provider

	switch strings.ToLower(strings.TrimSpace(opts.Strategy)) {
	case StrategyNone:
	case StrategyRecent:
		if source == nil {
			return nil, fmt.Errorf("strategy %q requires an RPC client", StrategyRecent)
		}
		dynamic = NewRecentFees(source, opts.Percentile, nil)
	case StrategyHelius:
		if opts.URL == "" {
			return nil, fmt.Errorf("strategy %q requires dynamic_fee.url", StrategyHelius)
		}
		helius, err := NewHelius(opts.URL, opts.PriorityLevel, logger)
		if err != nil {
			return nil, err
		}
		dynamic = helius
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, opts.Strategy)
	}

	return NewStrategy(dynamic, opts.Static, opts.Max, logger), nil
}
