// internal/blockchain/solbc/transaction/builder_test.go
package transaction

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type estimatorFunc func(ctx context.Context, ixs []solana.Instruction) (uint32, error)

func (f estimatorFunc) EstimateUnits(ctx context.Context, ixs []solana.Instruction) (uint32, error) {
	return f(ctx, ixs)
}

func programAt(t *testing.T, tx *solana.Transaction, i int) solana.PublicKey {
	t.Helper()
	pid, err := tx.ResolveProgramIDIndex(tx.Message.Instructions[i].ProgramIDIndex)
	require.NoError(t, err)
	return pid
}

func unitLimit(t *testing.T, tx *solana.Transaction) uint32 {
	t.Helper()
	data := tx.Message.Instructions[0].Data
	require.Len(t, data, 5)
	return binary.LittleEndian.Uint32(data[1:])
}

func unitPrice(t *testing.T, tx *solana.Transaction) uint64 {
	t.Helper()
	data := tx.Message.Instructions[1].Data
	require.Len(t, data, 9)
	return binary.LittleEndian.Uint64(data[1:])
}

func TestBuilder_InstructionOrder(t *testing.T) {
	ctx, cancel := testContext()
	defer cancel()

	client := new(MockClient)
	healthyChain(client)
	signer := newKey(t)
	cfg := testConfig()
	builder := NewBuilder(client, nil, cfg, zaptest.NewLogger(t))

	t.Run("without tip", func(t *testing.T) {
		tx, err := builder.Build(ctx, BuildParams{
			Instructions: []solana.Instruction{transferIx(signer.PublicKey())},
			Budget:       FixedBudget(200_000),
			Fee:          FeeConfig{PriorityFeeMicroLamports: 25_000},
			Signer:       signer,
		})
		require.NoError(t, err)
		require.Len(t, tx.Message.Instructions, 3)

		assert.True(t, programAt(t, tx, 0).Equals(computebudget.ProgramID))
		assert.Equal(t, computebudget.Instruction_SetComputeUnitLimit, tx.Message.Instructions[0].Data[0])
		assert.Equal(t, uint32(200_000), unitLimit(t, tx))

		assert.True(t, programAt(t, tx, 1).Equals(computebudget.ProgramID))
		assert.Equal(t, computebudget.Instruction_SetComputeUnitPrice, tx.Message.Instructions[1].Data[0])
		assert.Equal(t, uint64(25_000), unitPrice(t, tx))

		assert.True(t, programAt(t, tx, 2).Equals(system.ProgramID))
		assert.Equal(t, testBlockhash, tx.Message.RecentBlockhash)
		assert.Len(t, tx.Signatures, 1)
	})

	t.Run("tip transfer is last", func(t *testing.T) {
		tx, err := builder.Build(ctx, BuildParams{
			Instructions: []solana.Instruction{transferIx(signer.PublicKey())},
			Budget:       DynamicBudget(),
			Fee:          FeeConfig{TipLamports: 100_000},
			Signer:       signer,
		})
		require.NoError(t, err)
		require.Len(t, tx.Message.Instructions, 4)

		tip := tx.Message.Instructions[3]
		assert.True(t, programAt(t, tx, 3).Equals(system.ProgramID))
		require.Len(t, tip.Accounts, 2)
		assert.True(t, tx.Message.AccountKeys[tip.Accounts[0]].Equals(signer.PublicKey()))
		assert.True(t, tx.Message.AccountKeys[tip.Accounts[1]].Equals(cfg.TipRecipient))
		assert.Equal(t, uint64(100_000), binary.LittleEndian.Uint64(tip.Data[4:]))

		// Цена CU присутствует всегда, даже нулевая.
		assert.Equal(t, uint64(0), unitPrice(t, tx))
	})
}

func TestBuilder_ComputeUnits(t *testing.T) {
	ctx, cancel := testContext()
	defer cancel()

	signer := newKey(t)
	params := BuildParams{
		Instructions: []solana.Instruction{transferIx(signer.PublicKey())},
		Signer:       signer,
	}

	tests := []struct {
		name      string
		budget    ComputeBudget
		estimator CostEstimator
		want      uint32
	}{
		{name: "dynamic without estimator", budget: DynamicBudget(), want: DynamicComputeUnits},
		{name: "zero value is dynamic", budget: ComputeBudget{}, want: DynamicComputeUnits},
		{name: "fixed", budget: FixedBudget(50_000), want: 50_000},
		{
			name:   "fixed ignores estimator",
			budget: FixedBudget(50_000),
			estimator: estimatorFunc(func(context.Context, []solana.Instruction) (uint32, error) {
				return 10, nil
			}),
			want: 50_000,
		},
		{
			name:   "dynamic uses estimator",
			budget: DynamicBudget(),
			estimator: estimatorFunc(func(context.Context, []solana.Instruction) (uint32, error) {
				return 120_000, nil
			}),
			want: 120_000,
		},
		{
			name:   "estimator failure falls back to ceiling",
			budget: DynamicBudget(),
			estimator: estimatorFunc(func(context.Context, []solana.Instruction) (uint32, error) {
				return 0, errors.New("simulation failed")
			}),
			want: DynamicComputeUnits,
		},
		{
			name:   "estimate above ceiling is clamped",
			budget: DynamicBudget(),
			estimator: estimatorFunc(func(context.Context, []solana.Instruction) (uint32, error) {
				return 2_000_000, nil
			}),
			want: DynamicComputeUnits,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockClient)
			healthyChain(client)
			builder := NewBuilder(client, tt.estimator, testConfig(), zaptest.NewLogger(t))

			p := params
			p.Budget = tt.budget
			tx, err := builder.Build(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, unitLimit(t, tx))
		})
	}
}

func TestBuilder_InsufficientFunds(t *testing.T) {
	ctx, cancel := testContext()
	defer cancel()

	client := new(MockClient)
	client.On("GetBalance", mock.Anything, mock.Anything, mock.Anything).Return(DefaultMinBalanceLamports, nil)
	signer := newKey(t)

	builder := NewBuilder(client, nil, testConfig(), zaptest.NewLogger(t))
	tx, err := builder.Build(ctx, BuildParams{
		Instructions: []solana.Instruction{transferIx(signer.PublicKey())},
		Signer:       signer,
	})
	require.Error(t, err)
	assert.Nil(t, tx)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))

	var fundsErr *InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, DefaultMinBalanceLamports, fundsErr.Balance)
	assert.True(t, fundsErr.Account.Equals(signer.PublicKey()))
	assert.Contains(t, err.Error(), "0.005")

	client.AssertNotCalled(t, "GetLatestBlockhash", mock.Anything, mock.Anything)
}

func TestBuilder_BalanceQueryFailureSkipsCheck(t *testing.T) {
	ctx, cancel := testContext()
	defer cancel()

	client := new(MockClient)
	client.On("GetBalance", mock.Anything, mock.Anything, mock.Anything).Return(uint64(0), errors.New("node unavailable"))
	client.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(testBlockhash, nil)
	signer := newKey(t)

	builder := NewBuilder(client, nil, testConfig(), zaptest.NewLogger(t))
	tx, err := builder.Build(ctx, BuildParams{
		Instructions: []solana.Instruction{transferIx(signer.PublicKey())},
		Signer:       signer,
	})
	require.NoError(t, err)
	assert.NotNil(t, tx)
}

func TestBuilder_BlockhashFailure(t *testing.T) {
	ctx, cancel := testContext()
	defer cancel()

	client := new(MockClient)
	client.On("GetBalance", mock.Anything, mock.Anything, mock.Anything).Return(uint64(1_000_000_000), nil)
	client.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(solana.Hash{}, errors.New("timeout"))
	signer := newKey(t)

	builder := NewBuilder(client, nil, testConfig(), zaptest.NewLogger(t))
	_, err := builder.Build(ctx, BuildParams{
		Instructions: []solana.Instruction{transferIx(signer.PublicKey())},
		Signer:       signer,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blockhash")
}

func TestBuilder_SeparateFeePayer(t *testing.T) {
	ctx, cancel := testContext()
	defer cancel()

	client := new(MockClient)
	healthyChain(client)
	signer := newKey(t)
	payer := newKey(t)

	builder := NewBuilder(client, nil, testConfig(), zaptest.NewLogger(t))
	tx, err := builder.Build(ctx, BuildParams{
		Instructions: []solana.Instruction{transferIx(signer.PublicKey())},
		Signer:       signer,
		FeePayer:     payer,
	})
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 2)
	assert.True(t, tx.Message.AccountKeys[0].Equals(payer.PublicKey()))
	assert.NoError(t, tx.VerifySignatures())

	// Баланс проверяется у плательщика.
	client.AssertCalled(t, "GetBalance", mock.Anything, payer.PublicKey(), mock.Anything)
}

func TestBuilder_Deterministic(t *testing.T) {
	ctx, cancel := testContext()
	defer cancel()

	client := new(MockClient)
	healthyChain(client)
	signer := newKey(t)
	recipient := solana.NewWallet().PublicKey()

	builder := NewBuilder(client, nil, testConfig(), zaptest.NewLogger(t))
	params := BuildParams{
		Instructions: []solana.Instruction{system.NewTransferInstruction(1_000, signer.PublicKey(), recipient).Build()},
		Budget:       FixedBudget(10_000),
		Fee:          FeeConfig{PriorityFeeMicroLamports: 7},
		Signer:       signer,
	}

	first, err := builder.Build(ctx, params)
	require.NoError(t, err)
	second, err := builder.Build(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, first.Signatures[0], second.Signatures[0])
}

func TestBuilder_RejectsEmptyInput(t *testing.T) {
	ctx, cancel := testContext()
	defer cancel()

	client := new(MockClient)
	builder := NewBuilder(client, nil, testConfig(), zaptest.NewLogger(t))

	_, err := builder.Build(ctx, BuildParams{Signer: newKey(t)})
	assert.ErrorIs(t, err, ErrNoInstructions)

	_, err = builder.Build(ctx, BuildParams{Instructions: []solana.Instruction{transferIx(solana.NewWallet().PublicKey())}})
	assert.Error(t, err)

	client.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestLamportsToSOL(t *testing.T) {
	assert.Equal(t, "0.005", LamportsToSOL(5_000_000))
	assert.Equal(t, "1", LamportsToSOL(1_000_000_000))
	assert.Equal(t, "0.000000001", LamportsToSOL(1))
}

func TestSOLToLamports(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "1", want: 1_000_000_000},
		{in: "0.005", want: 5_000_000},
		{in: "0.000000001", want: 1},
		{in: "0.0000000001", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "100000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SOLToLamports(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
