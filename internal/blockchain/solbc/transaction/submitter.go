// internal/blockchain/solbc/transaction/submitter.go
package transaction

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain"
	solrpc "github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc/rpc"
)

// Channel путь доставки транзакции.
type Channel int

const (
	ChannelRPC Channel = iota
	ChannelRelay
)

func (c Channel) String() string {
	switch c {
	case ChannelRPC:
		return "rpc"
	case ChannelRelay:
		return "relay"
	default:
		return "unknown"
	}
}

// ChannelFor выбирает канал только по наличию чаевых.
func ChannelFor(tipped bool) Channel {
	if tipped {
		return ChannelRelay
	}
	return ChannelRPC
}

// RelayError relay ответил статусом вне диапазона 2xx.
type RelayError struct {
	StatusCode int
	Body       string
}

func (e *RelayError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("relay returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Body)
}

// Unwrap сопоставляет статус с сигнальной ошибкой пакета rpc (429, 5xx...).
func (e *RelayError) Unwrap() error {
	return solrpc.ErrorForStatus(e.StatusCode)
}

const maxRelayErrorBody = 512

// Submitter отправляет подписанную транзакцию через RPC узел или relay.
type Submitter struct {
	client   blockchain.Client
	http     *http.Client
	relayURL string
	logger   *zap.Logger
}

// NewSubmitter создает отправителя. httpClient может быть nil.
func NewSubmitter(client blockchain.Client, httpClient *http.Client, config Config, logger *zap.Logger) *Submitter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.RelayTimeout}
	}
	return &Submitter{
		client:   client,
		http:     httpClient,
		relayURL: config.RelayURL,
		logger:   logger.Named("tx-submitter"),
	}
}

// Submit одна попытка доставки. Ошибки транспортные и подлежат повтору.
func (s *Submitter) Submit(ctx context.Context, tx *solana.Transaction, tipped bool) (solana.Signature, error) {
	switch ChannelFor(tipped) {
	case ChannelRelay:
		return s.sendRelay(ctx, tx)
	default:
		return s.sendRPC(ctx, tx)
	}
}

func (s *Submitter) sendRPC(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	maxRetries := uint(0)
	sig, err := s.client.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

func (s *Submitter) sendRelay(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, ErrInvalidSignature
	}

	payload, err := tx.ToBase64()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.relayURL, strings.NewReader(payload))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.http.Do(req)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("relay request failed: %w", solrpc.Annotate(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxRelayErrorBody))
		return solana.Signature{}, &RelayError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	sig := tx.Signatures[0]
	s.logger.Debug("Transaction accepted by relay",
		zap.String("signature", sig.String()),
		zap.Int("status", resp.StatusCode))
	return sig, nil
}
