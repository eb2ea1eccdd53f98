// internal/blockchain/solbc/transaction/mocks_test.go
package transaction

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain"
)

const defaultTestTimeout = 5 * time.Second

// MockClient реализует blockchain.Client
type MockClient struct {
	mock.Mock
}

var _ blockchain.Client = (*MockClient)(nil)

func (m *MockClient) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, account, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockClient) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (solana.Hash, error) {
	args := m.Called(ctx, commitment)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *MockClient) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockClient) GetSignatureStatuses(ctx context.Context, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, sigs)
	res, _ := args.Get(0).(*rpc.GetSignatureStatusesResult)
	return res, args.Error(1)
}

func (m *MockClient) GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]rpc.PriorizationFeeResult, error) {
	args := m.Called(ctx, accounts)
	res, _ := args.Get(0).([]rpc.PriorizationFeeResult)
	return res, args.Error(1)
}

// onStatus добавляет один ответ getSignatureStatuses в очередь.
func (m *MockClient) onStatus(res *rpc.GetSignatureStatusesResult, err error) *mock.Call {
	return m.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(res, err).Once()
}

func (m *MockClient) onSend(sig solana.Signature, err error) *mock.Call {
	return m.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).Return(sig, err)
}

// healthyChain баланс выше порога и валидный blockhash.
func healthyChain(m *MockClient) {
	m.On("GetBalance", mock.Anything, mock.Anything, mock.Anything).Return(uint64(1_000_000_000), nil)
	m.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(testBlockhash, nil)
}

var testBlockhash = solana.MustHashFromBase58("4sGjMW1sUnHzSxGspuhpqLDx6wiyjNtZAMdL4VZHirAn")

func statusOf(status rpc.ConfirmationStatusType) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{{Slot: 42, ConfirmationStatus: status}},
	}
}

func failedStatus(detail interface{}) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{{Slot: 42, ConfirmationStatus: rpc.ConfirmationStatusConfirmed, Err: detail}},
	}
}

func unknownStatus() *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}
}

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func transferIx(from solana.PublicKey) solana.Instruction {
	return system.NewTransferInstruction(1_000, from, solana.NewWallet().PublicKey()).Build()
}

// fastPolicy политика без задержек для тестов.
func fastPolicy(retries, polls int) RetryPolicy {
	return RetryPolicy{MaxSubmitRetries: retries, MaxConfirmPolls: polls}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Standard = fastPolicy(3, 2)
	cfg.Tipped = fastPolicy(1, 3)
	return cfg
}

func testContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultTestTimeout)
}
