// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain"
	"github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrExhaustedRetries   = errors.New("max retries")
	ErrInvalidSignature   = errors.New("invalid transaction signature")
	ErrInvalidBlockhash   = errors.New("invalid blockhash")
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrNoInstructions     = errors.New("no instructions provided")
)

const (
	// DynamicComputeUnits потолок compute units, пока нет оценки через симуляцию.
	DynamicComputeUnits uint32 = 1_400_000

	// DefaultMinBalanceLamports 0.005 SOL.
	DefaultMinBalanceLamports uint64 = 5_000_000

	// DefaultRelayURL внешний relay для транзакций с чаевыми.
	DefaultRelayURL = "https://rpc.ore.wtf/send"
)

// DefaultTipRecipient получатель чаевых для relay.
var DefaultTipRecipient = solana.MustPublicKeyFromBase58("EoXEM37CZpA4pPv2pet4befGQ93sw2ZRNUrEWVQRJQnK")

// ComputeBudget задаёт лимит compute units транзакции.
// Нулевое значение эквивалентно DynamicBudget().
type ComputeBudget struct {
	units uint32
	fixed bool
}

// DynamicBudget лимит определяется оценщиком или потолком DynamicComputeUnits.
func DynamicBudget() ComputeBudget {
	return ComputeBudget{}
}

// FixedBudget фиксированный лимит compute units.
func FixedBudget(units uint32) ComputeBudget {
	return ComputeBudget{units: units, fixed: true}
}

// IsDynamic true для DynamicBudget.
func (b ComputeBudget) IsDynamic() bool {
	return !b.fixed
}

// Units возвращает фиксированный лимит или placeholder для динамического бюджета.
func (b ComputeBudget) Units(placeholder uint32) uint32 {
	if b.fixed {
		return b.units
	}
	return placeholder
}

func (b ComputeBudget) String() string {
	if b.fixed {
		return fmt.Sprintf("fixed(%d)", b.units)
	}
	return "dynamic"
}

// FeeConfig комиссии одной отправки.
type FeeConfig struct {
	PriorityFeeMicroLamports uint64
	TipLamports              uint64
}

// Tipped true, если к транзакции прикладываются чаевые.
func (f FeeConfig) Tipped() bool {
	return f.TipLamports > 0
}

// RetryPolicy бюджеты повторов и задержки одной ветки (с чаевыми или без).
type RetryPolicy struct {
	// Потолок циклов отправки: остановка при attempts > MaxSubmitRetries,
	// то есть всего MaxSubmitRetries+1 отправок.
	MaxSubmitRetries int
	SubmitDelay      time.Duration
	MaxConfirmPolls  int
	ConfirmDelay     time.Duration
}

// DefaultStandardPolicy политика отправки через RPC узел.
func DefaultStandardPolicy() RetryPolicy {
	return RetryPolicy{
		MaxSubmitRetries: 150,
		SubmitDelay:      0,
		MaxConfirmPolls:  8,
		ConfirmDelay:     500 * time.Millisecond,
	}
}

// DefaultTippedPolicy политика отправки через relay с чаевыми.
func DefaultTippedPolicy() RetryPolicy {
	return RetryPolicy{
		MaxSubmitRetries: 1,
		SubmitDelay:      500 * time.Millisecond,
		MaxConfirmPolls:  20,
		ConfirmDelay:     500 * time.Millisecond,
	}
}

// Config параметры отправителя. Все константы протокола живут здесь, а не в коде.
type Config struct {
	MinBalanceLamports uint64
	Commitment         rpc.CommitmentType
	Standard           RetryPolicy
	Tipped             RetryPolicy
	TipRecipient       solana.PublicKey
	RelayURL           string
	RelayTimeout       time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		MinBalanceLamports: DefaultMinBalanceLamports,
		Commitment:         rpc.CommitmentConfirmed,
		Standard:           DefaultStandardPolicy(),
		Tipped:             DefaultTippedPolicy(),
		TipRecipient:       DefaultTipRecipient,
		RelayURL:           DefaultRelayURL,
		RelayTimeout:       10 * time.Second,
	}
}

// PolicyFor выбирает политику один раз на вызов.
func (c Config) PolicyFor(fee FeeConfig) RetryPolicy {
	if fee.Tipped() {
		return c.Tipped
	}
	return c.Standard
}

// Request входные данные SendAndConfirm.
type Request struct {
	Instructions []solana.Instruction
	Budget       ComputeBudget
	// TipLamports > 0 включает relay канал и политику Tipped.
	TipLamports uint64
	// Signer подписывает инструкции, FeePayer платит комиссию. Пустой FeePayer = Signer.
	Signer   solana.PrivateKey
	FeePayer solana.PrivateKey
	// SkipConfirm возвращает подпись сразу после успешной отправки.
	SkipConfirm bool
	Progress    ProgressFunc
}

// Outcome терминальное состояние вызова.
type Outcome int

const (
	OutcomeLanded Outcome = iota
	OutcomeRejected
	OutcomeExhausted
	// OutcomeCancelled контекст отменён до терминального исхода.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLanded:
		return "landed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result итог одного вызова SendAndConfirm.
type Result struct {
	Signature   solana.Signature
	Outcome     Outcome
	Attempts    int
	Polls       int
	PriorityFee uint64
	Channel     Channel
	Duration    time.Duration
	Err         error
}

// InsufficientFundsError баланс плательщика не выше минимального порога.
type InsufficientFundsError struct {
	Account solana.PublicKey
	Balance uint64
	Min     uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: %s SOL, please top up with at least %s SOL",
		LamportsToSOL(e.Balance), LamportsToSOL(e.Min))
}

// Unwrap позволяет errors.Is(err, ErrInsufficientFunds).
func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// OnChainError транзакция исполнена сетью и отклонена. Повтор не поможет.
type OnChainError struct {
	Signature solana.Signature
	Detail    interface{}
}

func (e *OnChainError) Error() string {
	return fmt.Sprintf("transaction %s failed on chain: %s", e.Signature, solbc.FormatStatusError(e.Detail))
}

// LamportsToSOL переводит лампорты в SOL без потери точности.
func LamportsToSOL(lamports uint64) string {
	return decimal.NewFromUint64(lamports).
		Div(decimal.NewFromUint64(blockchain.LamportsPerSOL)).
		String()
}

// SOLToLamports разбирает сумму в SOL ("0.25") в лампорты. Дробная часть длиннее 9 знаков ошибка.
func SOLToLamports(amount string) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid SOL amount %q: %w", amount, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("invalid SOL amount %q: must be positive", amount)
	}
	lamports := d.Mul(decimal.NewFromUint64(blockchain.LamportsPerSOL))
	if !lamports.IsInteger() {
		return 0, fmt.Errorf("invalid SOL amount %q: more than 9 decimal places", amount)
	}
	n := lamports.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("invalid SOL amount %q: too large", amount)
	}
	return n.Uint64(), nil
}
