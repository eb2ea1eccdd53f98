// internal/blockchain/solbc/transaction/builder.go
package transaction

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain"
)

// CostEstimator подбирает лимит compute units для динамического бюджета,
// например по результату simulateTransaction.
type CostEstimator interface {
	EstimateUnits(ctx context.Context, instructions []solana.Instruction) (uint32, error)
}

// BuildParams входные данные сборки одной транзакции.
type BuildParams struct {
	Instructions []solana.Instruction
	Budget       ComputeBudget
	Fee          FeeConfig
	Signer       solana.PrivateKey
	// Пустой FeePayer означает, что комиссию платит Signer.
	FeePayer solana.PrivateKey
}

func (p BuildParams) feePayer() solana.PrivateKey {
	if len(p.FeePayer) == 0 {
		return p.Signer
	}
	return p.FeePayer
}

// Builder собирает и подписывает транзакцию с инструкциями compute budget.
type Builder struct {
	client    blockchain.Client
	estimator CostEstimator
	validator *Validator
	config    Config
	logger    *zap.Logger
}

// NewBuilder создает сборщик. estimator может быть nil.
func NewBuilder(client blockchain.Client, estimator CostEstimator, config Config, logger *zap.Logger) *Builder {
	return &Builder{
		client:    client,
		estimator: estimator,
		validator: NewValidator(logger),
		config:    config,
		logger:    logger.Named("tx-builder"),
	}
}

// Build проверяет баланс плательщика, собирает, подписывает и валидирует транзакцию.
func (b *Builder) Build(ctx context.Context, params BuildParams) (*solana.Transaction, error) {
	if len(params.Signer) == 0 {
		return nil, fmt.Errorf("signer private key is required")
	}
	if len(params.Instructions) == 0 {
		return nil, ErrNoInstructions
	}

	signer := params.Signer
	payer := params.feePayer()

	if err := b.CheckBalance(ctx, payer.PublicKey()); err != nil {
		return nil, err
	}

	instructions := b.Instructions(ctx, params)

	blockhash, err := b.client.GetLatestBlockhash(ctx, b.config.Commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch {
		case key.Equals(payer.PublicKey()):
			return &payer
		case key.Equals(signer.PublicKey()):
			return &signer
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := b.validator.ValidateTransaction(tx); err != nil {
		return nil, fmt.Errorf("transaction validation failed: %w", err)
	}

	b.logger.Debug("Transaction built",
		zap.String("signature", tx.Signatures[0].String()),
		zap.String("blockhash", blockhash.String()),
		zap.Int("instructions", len(instructions)),
		zap.Uint64("priority_fee", params.Fee.PriorityFeeMicroLamports),
		zap.Uint64("tip_lamports", params.Fee.TipLamports))

	return tx, nil
}

// CheckBalance возвращает *InsufficientFundsError, если баланс не выше порога.
// Ошибка запроса баланса не блокирует отправку: проверка пропускается.
func (b *Builder) CheckBalance(ctx context.Context, account solana.PublicKey) error {
	balance, err := b.client.GetBalance(ctx, account, b.config.Commitment)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.logger.Warn("Balance check skipped",
			zap.String("account", account.String()),
			zap.Error(err))
		return nil
	}

	if balance <= b.config.MinBalanceLamports {
		return &InsufficientFundsError{
			Account: account,
			Balance: balance,
			Min:     b.config.MinBalanceLamports,
		}
	}
	return nil
}

// Instructions возвращает итоговый список инструкций в порядке:
// лимит CU, цена CU, инструкции вызывающего, перевод чаевых.
func (b *Builder) Instructions(ctx context.Context, params BuildParams) []solana.Instruction {
	out := make([]solana.Instruction, 0, len(params.Instructions)+3)

	out = append(out,
		computebudget.NewSetComputeUnitLimitInstruction(b.computeUnits(ctx, params)).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(params.Fee.PriorityFeeMicroLamports).Build(),
	)
	out = append(out, params.Instructions...)

	if params.Fee.Tipped() {
		out = append(out, system.NewTransferInstruction(
			params.Fee.TipLamports,
			params.Signer.PublicKey(),
			b.config.TipRecipient,
		).Build())
	}
	return out
}

func (b *Builder) computeUnits(ctx context.Context, params BuildParams) uint32 {
	if !params.Budget.IsDynamic() || b.estimator == nil {
		return params.Budget.Units(DynamicComputeUnits)
	}

	units, err := b.estimator.EstimateUnits(ctx, params.Instructions)
	if err != nil || units == 0 {
		b.logger.Warn("Compute unit estimation failed, using ceiling",
			zap.Uint32("units", DynamicComputeUnits),
			zap.Error(err))
		return DynamicComputeUnits
	}
	if units > DynamicComputeUnits {
		return DynamicComputeUnits
	}
	return units
}
