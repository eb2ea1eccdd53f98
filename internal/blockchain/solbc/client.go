// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain"
	solrpc "github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc/rpc"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc    *rpc.Client
	url    string
	logger *zap.Logger
}

// ErrEmptyResponse узел вернул пустой result.
var ErrEmptyResponse = fmt.Errorf("empty result: %w", solrpc.ErrInvalidResponse)

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		url:    rpcURL,
		logger: logger.Named("solbc-client"),
	}
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Debug("GetBalance error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return 0, solrpc.NewError(err, c.url, "getBalance")
	}
	if result == nil {
		return 0, solrpc.NewError(ErrEmptyResponse, c.url, "getBalance")
	}
	return result.Value, nil
}

// GetLatestBlockhash получает последний blockhash на заданном уровне commitment.
func (c *Client) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, commitment)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return solana.Hash{}, solrpc.NewError(err, c.url, "getLatestBlockhash")
	}
	if result == nil || result.Value == nil {
		return solana.Hash{}, solrpc.NewError(ErrEmptyResponse, c.url, "getLatestBlockhash")
	}
	return result.Value.Blockhash, nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
		MaxRetries:          opts.MaxRetries,
	})
	if err != nil {
		c.logger.Debug("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, solrpc.NewError(err, c.url, "sendTransaction")
	}
	return sig, nil
}

// GetSignatureStatuses получает статусы транзакций.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
		return nil, solrpc.NewError(err, c.url, "getSignatureStatuses")
	}
	return result, nil
}

// GetRecentPrioritizationFees получает приоритетные комиссии последних слотов.
func (c *Client) GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]rpc.PriorizationFeeResult, error) {
	result, err := c.rpc.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil {
		c.logger.Debug("GetRecentPrioritizationFees error", zap.Error(err))
		return nil, solrpc.NewError(err, c.url, "getRecentPrioritizationFees")
	}
	return result, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
