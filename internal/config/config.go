// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-sender/internal/fee"
)

// EnvPrefix префикс переменных окружения: SOLANA_SENDER_RPC_URL, SOLANA_SENDER_SENDER_TIP_LAMPORTS...
const EnvPrefix = "SOLANA_SENDER"

type Config struct {
	RPCURL       string       `mapstructure:"rpc_url"`
	DebugLogging bool         `mapstructure:"debug_logging"`
	LogFile      string       `mapstructure:"log_file"`
	Wallet       WalletConfig `mapstructure:"wallet"`
	Sender       Sender       `mapstructure:"sender"`
}

type WalletConfig struct {
	// PrivateKey base58, приоритетнее KeypairPath.
	PrivateKey  string `mapstructure:"private_key"`
	KeypairPath string `mapstructure:"keypair_path"`
	// FeePayer необязательный base58 ключ отдельного плательщика.
	FeePayer string `mapstructure:"fee_payer"`
}

// Sender параметры отправки транзакций.
type Sender struct {
	Commitment         string        `mapstructure:"commitment"`
	MinBalanceLamports uint64        `mapstructure:"min_balance_lamports"`
	PriorityFee        uint64        `mapstructure:"priority_fee"`
	TipLamports        uint64        `mapstructure:"tip_lamports"`
	SkipConfirm        bool          `mapstructure:"skip_confirm"`
	TipRecipient       string        `mapstructure:"tip_recipient"`
	RelayURL           string        `mapstructure:"relay_url"`
	RelayTimeout       time.Duration `mapstructure:"relay_timeout"`
	ComputeUnits       uint32        `mapstructure:"compute_units"`
	Standard           Policy        `mapstructure:"standard"`
	Tipped             Policy        `mapstructure:"tipped"`
	DynamicFee         DynamicFee    `mapstructure:"dynamic_fee"`
}

type Policy struct {
	MaxSubmitRetries int           `mapstructure:"max_submit_retries"`
	MaxConfirmPolls  int           `mapstructure:"max_confirm_polls"`
	SubmitDelay      time.Duration `mapstructure:"submit_delay"`
	ConfirmDelay     time.Duration `mapstructure:"confirm_delay"`
}

type DynamicFee struct {
	Strategy   string `mapstructure:"strategy"`
	URL        string `mapstructure:"url"`
	Level      string `mapstructure:"level"`
	Percentile int    `mapstructure:"percentile"`
	Max        uint64 `mapstructure:"max"`
}

const (
	DefaultRPCURL  = "https://api.mainnet-beta.solana.com"
	DefaultLogFile = "sender.log"
)

func defaults() map[string]interface{} {
	std := transaction.DefaultStandardPolicy()
	tipped := transaction.DefaultTippedPolicy()
	cfg := transaction.DefaultConfig()

	return map[string]interface{}{
		"rpc_url":                            DefaultRPCURL,
		"log_file":                           DefaultLogFile,
		"debug_logging":                      false,
		"wallet.private_key":                 "",
		"wallet.keypair_path":                "",
		"wallet.fee_payer":                   "",
		"sender.commitment":                  string(cfg.Commitment),
		"sender.min_balance_lamports":        cfg.MinBalanceLamports,
		"sender.priority_fee":                0,
		"sender.tip_lamports":                0,
		"sender.skip_confirm":                false,
		"sender.tip_recipient":               cfg.TipRecipient.String(),
		"sender.relay_url":                   cfg.RelayURL,
		"sender.relay_timeout":               cfg.RelayTimeout,
		"sender.compute_units":               0,
		"sender.standard.max_submit_retries": std.MaxSubmitRetries,
		"sender.standard.max_confirm_polls":  std.MaxConfirmPolls,
		"sender.standard.submit_delay":       std.SubmitDelay,
		"sender.standard.confirm_delay":      std.ConfirmDelay,
		"sender.tipped.max_submit_retries":   tipped.MaxSubmitRetries,
		"sender.tipped.max_confirm_polls":    tipped.MaxConfirmPolls,
		"sender.tipped.submit_delay":         tipped.SubmitDelay,
		"sender.tipped.confirm_delay":        tipped.ConfirmDelay,
		"sender.dynamic_fee.strategy":        fee.StrategyNone,
		"sender.dynamic_fee.url":             "",
		"sender.dynamic_fee.level":           fee.HeliusPriorityHigh,
		"sender.dynamic_fee.percentile":      fee.DefaultPercentile,
		"sender.dynamic_fee.max":             0,
	}
}

// New возвращает viper с умолчаниями и переменными окружения. CLI привязывает к нему флаги.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig читает файл path (если задан) поверх умолчаний и валидирует результат.
func LoadConfig(path string) (*Config, error) {
	return Load(New(), path)
}

// Load читает конфигурацию из подготовленного viper.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}

	s := cfg.Sender
	switch rpc.CommitmentType(s.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("invalid sender.commitment %q", s.Commitment)
	}
	if _, err := solana.PublicKeyFromBase58(s.TipRecipient); err != nil {
		return fmt.Errorf("invalid sender.tip_recipient: %w", err)
	}
	if err := validateURL(s.RelayURL, "http"); err != nil {
		return fmt.Errorf("invalid sender.relay_url: %w", err)
	}
	if s.RelayTimeout <= 0 {
		return errors.New("invalid sender.relay_timeout")
	}
	if s.ComputeUnits > transaction.DynamicComputeUnits {
		return fmt.Errorf("sender.compute_units exceeds %d", transaction.DynamicComputeUnits)
	}
	if err := validatePolicy("sender.standard", s.Standard); err != nil {
		return err
	}
	if err := validatePolicy("sender.tipped", s.Tipped); err != nil {
		return err
	}

	switch strings.ToLower(s.DynamicFee.Strategy) {
	case fee.StrategyNone, fee.StrategyRecent:
	case fee.StrategyHelius:
		if err := validateURL(s.DynamicFee.URL, "http"); err != nil {
			return fmt.Errorf("invalid sender.dynamic_fee.url: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", fee.ErrUnknownStrategy, s.DynamicFee.Strategy)
	}
	level, err := fee.ParsePriorityLevel(s.DynamicFee.Level)
	if err != nil {
		return fmt.Errorf("invalid sender.dynamic_fee.level: %w", err)
	}
	cfg.Sender.DynamicFee.Level = level
	if p := s.DynamicFee.Percentile; p < 0 || p > 100 {
		return errors.New("invalid sender.dynamic_fee.percentile")
	}
	return nil
}

func validatePolicy(name string, p Policy) error {
	if p.MaxSubmitRetries < 0 {
		return fmt.Errorf("invalid %s.max_submit_retries", name)
	}
	if p.MaxConfirmPolls < 0 {
		return fmt.Errorf("invalid %s.max_confirm_polls", name)
	}
	if p.SubmitDelay < 0 || p.ConfirmDelay < 0 {
		return fmt.Errorf("invalid %s delay", name)
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func (p Policy) retryPolicy() transaction.RetryPolicy {
	return transaction.RetryPolicy{
		MaxSubmitRetries: p.MaxSubmitRetries,
		SubmitDelay:      p.SubmitDelay,
		MaxConfirmPolls:  p.MaxConfirmPolls,
		ConfirmDelay:     p.ConfirmDelay,
	}
}

// TransactionConfig переводит секцию sender в transaction.Config. Конфигурация должна быть валидной.
func (s Sender) TransactionConfig() transaction.Config {
	return transaction.Config{
		MinBalanceLamports: s.MinBalanceLamports,
		Commitment:         rpc.CommitmentType(s.Commitment),
		Standard:           s.Standard.retryPolicy(),
		Tipped:             s.Tipped.retryPolicy(),
		TipRecipient:       solana.MustPublicKeyFromBase58(s.TipRecipient),
		RelayURL:           s.RelayURL,
		RelayTimeout:       s.RelayTimeout,
	}
}

// FeeOptions параметры fee.New.
func (s Sender) FeeOptions() fee.Options {
	return fee.Options{
		Strategy:      s.DynamicFee.Strategy,
		URL:           s.DynamicFee.URL,
		PriorityLevel: s.DynamicFee.Level,
		Percentile:    s.DynamicFee.Percentile,
		Static:        s.PriorityFee,
		Max:           s.DynamicFee.Max,
	}
}

// Budget лимит compute units: 0 означает динамический.
func (s Sender) Budget() transaction.ComputeBudget {
	if s.ComputeUnits == 0 {
		return transaction.DynamicBudget()
	}
	return transaction.FixedBudget(s.ComputeUnits)
}
