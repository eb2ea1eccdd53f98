package fee

import (
	"context"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// DefaultPercentile перцентиль недавних комиссий по умолчанию.
const DefaultPercentile = 75

// FeeSource часть RPC клиента, нужная RecentFees.
type FeeSource interface {
	GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]rpc.PriorizationFeeResult, error)
}

// RecentFees оценивает комиссию по getRecentPrioritizationFees.
type RecentFees struct {
	source     FeeSource
	percentile int
	accounts   solana.PublicKeySlice
}

// NewRecentFees создает оценщик. percentile вне (0, 100] заменяется на DefaultPercentile.
// accounts ограничивает выборку слотами, где эти аккаунты были записаны.
func NewRecentFees(source FeeSource, percentile int, accounts solana.PublicKeySlice) *RecentFees {
	if percentile <= 0 || percentile > 100 {
		percentile = DefaultPercentile
	}
	return &RecentFees{
		source:     source,
		percentile: percentile,
		accounts:   accounts,
	}
}

// PriorityFee реализует Provider.
func (r *RecentFees) PriorityFee(ctx context.Context) (uint64, error) {
	samples, err := r.source.GetRecentPrioritizationFees(ctx, r.accounts)
	if err != nil {
		return 0, fmt.Errorf("get recent prioritization fees: %w", err)
	}
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	fees := make([]uint64, 0, len(samples))
	for _, s := range samples {
		if s.PrioritizationFee > 0 {
			fees = append(fees, s.PrioritizationFee)
		}
	}
	return Percentile(fees, r.percentile), nil
}

// Percentile возвращает p-й перцентиль (nearest-rank). Пустой срез даёт 0.
func Percentile(values []uint64, p int) uint64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]uint64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
