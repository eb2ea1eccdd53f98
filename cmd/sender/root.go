// cmd/sender/root.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-sender/internal/config"
	"github.com/rovshanmuradov/solana-sender/internal/utils/logger"
	"github.com/rovshanmuradov/solana-sender/internal/wallet"
)

// GlobalFlags флаги, не входящие в файл конфигурации.
type GlobalFlags struct {
	ConfigPath  string
	MetricsAddr string
	Plain       bool
}

var (
	globalFlags GlobalFlags
	v           = config.New()
)

var rootCmd = &cobra.Command{
	Use:           "sender",
	Short:         "Reliable Solana transaction submission",
	Long:          "sender builds fee-prioritized transactions and drives them to confirmation over node RPC or a tipped relay.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&globalFlags.ConfigPath, "config", "c", "", "config file (yaml, json or toml)")
	pf.StringVar(&globalFlags.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	pf.BoolVar(&globalFlags.Plain, "plain", false, "log progress instead of the interactive view")

	pf.String("rpc-url", config.DefaultRPCURL, "Solana RPC endpoint")
	pf.Bool("debug", false, "debug logging")
	pf.String("log-file", config.DefaultLogFile, "rotating JSON log file")
	pf.String("private-key", "", "base58 signer private key")
	pf.String("keypair", "", "solana-keygen JSON keypair file")
	pf.String("commitment", "", "commitment for blockhash and balance queries")
	pf.Uint64("priority-fee", 0, "static priority fee in micro-lamports per compute unit")
	pf.Uint64("tip", 0, "relay tip in lamports; non-zero routes through the relay")
	pf.Uint32("compute-units", 0, "compute unit limit; 0 uses the ceiling")
	pf.Bool("skip-confirm", false, "return after the first accepted submission")
	pf.String("fee-strategy", "", "dynamic fee strategy: recent or helius")
	pf.String("fee-url", "", "Helius endpoint for the helius strategy")

	bindings := map[string]string{
		"rpc_url":                     "rpc-url",
		"debug_logging":               "debug",
		"log_file":                    "log-file",
		"wallet.private_key":          "private-key",
		"wallet.keypair_path":         "keypair",
		"sender.commitment":           "commitment",
		"sender.priority_fee":         "priority-fee",
		"sender.tip_lamports":         "tip",
		"sender.compute_units":        "compute-units",
		"sender.skip_confirm":         "skip-confirm",
		"sender.dynamic_fee.strategy": "fee-strategy",
		"sender.dynamic_fee.url":      "fee-url",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	rootCmd.AddCommand(transferCmd, feeCmd, balanceCmd)
}

// app общие зависимости команд.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	client   *solbc.Client
	registry *prometheus.Registry
}

// newApp загружает конфигурацию и поднимает логгер и RPC-клиент. quiet глушит консольный лог.
func newApp(quiet bool) (*app, error) {
	cfg, err := config.Load(v, globalFlags.ConfigPath)
	if err != nil {
		return nil, err
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	logCfg.Quiet = quiet
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	return &app{
		cfg:      cfg,
		log:      log,
		client:   solbc.NewClient(cfg.RPCURL, log.WithComponent("rpc")),
		registry: registry,
	}, nil
}

func (a *app) wallet() (*wallet.Wallet, error) {
	w, err := wallet.Load(a.cfg.Wallet.PrivateKey, a.cfg.Wallet.KeypairPath)
	if err != nil {
		return nil, err
	}
	a.log.WithWallet(w.String()).Debug("Wallet loaded")
	return w, nil
}

// feePayer отдельный плательщик комиссии, если задан.
func (a *app) feePayer() (*wallet.Wallet, error) {
	if a.cfg.Wallet.FeePayer == "" {
		return nil, nil
	}
	return wallet.NewWallet(a.cfg.Wallet.FeePayer)
}

// serveMetrics поднимает /metrics до отмены ctx. Пустой адрес ничего не делает.
func (a *app) serveMetrics(ctx context.Context) func() {
	if globalFlags.MetricsAddr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: globalFlags.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("Metrics server stopped", zap.Error(err))
		}
	}()
	a.log.Info("Serving metrics", zap.String("addr", globalFlags.MetricsAddr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

func (a *app) close() {
	_ = a.log.Sync()
}
