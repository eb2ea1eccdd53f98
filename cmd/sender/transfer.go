// cmd/sender/transfer.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-sender/internal/fee"
	"github.com/rovshanmuradov/solana-sender/internal/ui"
	"github.com/rovshanmuradov/solana-sender/internal/utils/logger"
)

var transferFlags struct {
	To     string
	Amount string
	Memo   string
}

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Send SOL and wait for confirmation",
	Example: `  sender transfer --keypair ~/.config/solana/id.json --to <address> --amount 0.01
  sender transfer --to <address> --amount 0.01 --tip 100000 --memo "invoice 42"`,
	RunE: runTransfer,
}

func init() {
	f := transferCmd.Flags()
	f.StringVar(&transferFlags.To, "to", "", "recipient address")
	f.StringVar(&transferFlags.Amount, "amount", "", "amount in SOL")
	f.StringVar(&transferFlags.Memo, "memo", "", "attach a memo instruction")
	_ = transferCmd.MarkFlagRequired("to")
	_ = transferCmd.MarkFlagRequired("amount")
}

func transferInstructions(from solana.PublicKey) ([]solana.Instruction, error) {
	to, err := solana.PublicKeyFromBase58(transferFlags.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	lamports, err := transaction.SOLToLamports(transferFlags.Amount)
	if err != nil {
		return nil, err
	}

	instructions := []solana.Instruction{
		system.NewTransferInstruction(lamports, from, to).Build(),
	}
	if transferFlags.Memo != "" {
		instructions = append(instructions, solana.NewInstruction(
			solana.MemoProgramID,
			solana.AccountMetaSlice{solana.Meta(from).SIGNER()},
			[]byte(transferFlags.Memo),
		))
	}
	return instructions, nil
}

func runTransfer(cmd *cobra.Command, _ []string) error {
	interactive := !globalFlags.Plain
	a, err := newApp(interactive)
	if err != nil {
		return err
	}
	defer a.close()

	signer, err := a.wallet()
	if err != nil {
		return err
	}
	payer, err := a.feePayer()
	if err != nil {
		return fmt.Errorf("invalid fee payer: %w", err)
	}
	instructions, err := transferInstructions(signer.PublicKey)
	if err != nil {
		return err
	}

	log := a.log.WithOperation("transfer")
	fees, err := fee.New(a.cfg.Sender.FeeOptions(), a.client, log)
	if err != nil {
		return err
	}
	manager := transaction.NewManager(a.client, fees, a.cfg.Sender.TransactionConfig(), log,
		transaction.WithRegisterer(a.registry))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.serveMetrics(ctx)()

	req := transaction.Request{
		Instructions: instructions,
		Budget:       a.cfg.Sender.Budget(),
		TipLamports:  a.cfg.Sender.TipLamports,
		Signer:       signer.PrivateKey,
		SkipConfirm:  a.cfg.Sender.SkipConfirm,
	}
	if payer != nil {
		req.FeePayer = payer.PrivateKey
	}

	var (
		result  *transaction.Result
		sendErr error
	)
	if interactive {
		result, sendErr = sendWithProgress(ctx, manager, req, log)
	} else {
		req.Progress = logProgress(log)
		result, sendErr = manager.SendAndConfirm(ctx, req)
	}

	logTransferResult(a.log, result, sendErr)
	fmt.Fprintln(os.Stdout, ui.Summary(result, sendErr))
	return sendErr
}

// logTransferResult итоговая запись с подписью; до сборки транзакции подписи нет.
func logTransferResult(l *logger.Logger, result *transaction.Result, err error) {
	if result == nil {
		l.Error("Transfer failed before submission", zap.Error(err))
		return
	}
	txLog := l.WithTransaction(result.Signature.String())
	fields := []zap.Field{
		zap.Stringer("outcome", result.Outcome),
		zap.Int("submissions", result.Attempts),
		zap.Duration("duration", result.Duration),
	}
	if err != nil {
		txLog.Warn("Transfer finished", append(fields, zap.Error(err))...)
		return
	}
	txLog.Info("Transfer finished", fields...)
}

// sendWithProgress запускает отправку и экран прогресса параллельно.
func sendWithProgress(ctx context.Context, manager *transaction.Manager, req transaction.Request, log *zap.Logger) (*transaction.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan tea.Msg, 64)
	feed := ui.NewProgressFeed(updates, log)
	defer feed.Close()
	req.Progress = feed.Progress()

	program := tea.NewProgram(
		ui.NewProgressModel("transfer "+transferFlags.Amount+" SOL → "+transferFlags.To, updates, cancel),
		tea.WithOutput(os.Stderr),
	)

	var (
		result  *transaction.Result
		sendErr error
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		result, sendErr = manager.SendAndConfirm(runCtx, req)
		// После выхода из программы Send ничего не делает.
		program.Send(ui.ResultMsg{Result: result, Err: sendErr})
		return nil
	})
	g.Go(func() error {
		_, err := program.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			cancel()
			return fmt.Errorf("progress view failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Warn("Progress view stopped early", zap.Error(err))
	}
	return result, sendErr
}

func logProgress(log *zap.Logger) transaction.ProgressFunc {
	return func(ev transaction.ProgressEvent) {
		fields := []zap.Field{
			zap.Stringer("stage", ev.Stage),
			zap.Stringer("channel", ev.Channel),
			zap.Int("attempt", ev.Attempt),
		}
		if ev.Stage == transaction.StagePolling {
			fields = append(fields, zap.Int("poll", ev.Poll), zap.Int("max_polls", ev.MaxPolls))
		}
		if !ev.Signature.IsZero() {
			fields = append(fields, zap.Stringer("signature", ev.Signature))
		}
		if ev.Err != nil {
			fields = append(fields, zap.Error(ev.Err))
		}
		log.Info("Progress", fields...)
	}
}
