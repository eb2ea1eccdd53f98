package fee

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Уровни приоритета getPriorityFeeEstimate.
const (
	HeliusPriorityMin       = "Min"
	HeliusPriorityLow       = "Low"
	HeliusPriorityMedium    = "Medium"
	HeliusPriorityHigh      = "High"
	HeliusPriorityVeryHigh  = "VeryHigh"
	HeliusPriorityUnsafeMax = "UnsafeMax"
)

// ErrUnknownPriorityLevel имя уровня не входит в список getPriorityFeeEstimate.
var ErrUnknownPriorityLevel = errors.New("unknown helius priority level")

var heliusLevels = []string{
	HeliusPriorityMin,
	HeliusPriorityLow,
	HeliusPriorityMedium,
	HeliusPriorityHigh,
	HeliusPriorityVeryHigh,
	HeliusPriorityUnsafeMax,
}

// ParsePriorityLevel приводит имя уровня к написанию Helius: "veryhigh", "very_high"
// и "VERY-HIGH" дают VeryHigh. Пустое имя означает High.
func ParsePriorityLevel(level string) (string, error) {
	name := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(level))
	if name == "" {
		return HeliusPriorityHigh, nil
	}
	for _, known := range heliusLevels {
		if strings.EqualFold(known, name) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPriorityLevel, level)
}

const heliusMethod = "getPriorityFeeEstimate"

type heliusOptions struct {
	PriorityLevel string `json:"priorityLevel,omitempty"`
}

type heliusRequest struct {
	AccountKeys []string      `json:"accountKeys,omitempty"`
	Options     heliusOptions `json:"options"`
}

type heliusResult struct {
	PriorityFeeEstimate float64 `json:"priorityFeeEstimate"`
}

// Helius оценивает комиссию через JSON-RPC метод getPriorityFeeEstimate.
type Helius struct {
	client   *rpc.Client
	level    string
	accounts []solana.PublicKey
	logger   *zap.Logger
}

// NewHelius создает оценщик для RPC URL с поддержкой getPriorityFeeEstimate.
func NewHelius(url, level string, logger *zap.Logger, accounts ...solana.PublicKey) (*Helius, error) {
	normalized, err := ParsePriorityLevel(level)
	if err != nil {
		return nil, err
	}
	return &Helius{
		client:   rpc.New(url),
		level:    normalized,
		accounts: accounts,
		logger:   logger.Named("helius-fee"),
	}, nil
}

// PriorityFee реализует Provider.
func (h *Helius) PriorityFee(ctx context.Context) (uint64, error) {
	req := heliusRequest{Options: heliusOptions{PriorityLevel: h.level}}
	for _, acc := range h.accounts {
		req.AccountKeys = append(req.AccountKeys, acc.String())
	}

	var out heliusResult
	if err := h.client.RPCCallForInto(ctx, &out, heliusMethod, []interface{}{req}); err != nil {
		return 0, fmt.Errorf("%s: %w", heliusMethod, err)
	}
	if out.PriorityFeeEstimate < 0 || math.IsNaN(out.PriorityFeeEstimate) {
		return 0, fmt.Errorf("%s: invalid estimate %v", heliusMethod, out.PriorityFeeEstimate)
	}

	estimate := uint64(math.Ceil(out.PriorityFeeEstimate))
	h.logger.Debug("Priority fee estimated",
		zap.String("level", h.level),
		zap.Uint64("micro_lamports", estimate))
	return estimate, nil
}
