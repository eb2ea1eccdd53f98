// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrNoKey ни base58 ключ, ни файл keypair не заданы.
var ErrNoKey = errors.New("wallet: private key or keypair path required")

// Wallet представляет кошелёк Solana.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return fromPrivateKey(solana.PrivateKey(privateKeyBytes))
}

// LoadKeypairFile читает JSON-массив из 64 байт в формате solana-keygen.
func LoadKeypairFile(path string) (*Wallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return fromPrivateKey(key)
}

// Load выбирает источник ключа: base58 строка приоритетнее файла.
func Load(privateKeyBase58, keypairPath string) (*Wallet, error) {
	switch {
	case privateKeyBase58 != "":
		return NewWallet(privateKeyBase58)
	case keypairPath != "":
		return LoadKeypairFile(keypairPath)
	default:
		return nil, ErrNoKey
	}
}

func fromPrivateKey(key solana.PrivateKey) (*Wallet, error) {
	if len(key) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(key))
	}
	return &Wallet{
		PrivateKey: key,
		PublicKey:  key.PublicKey(),
	}, nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
