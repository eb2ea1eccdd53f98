// internal/blockchain/solbc/transaction/validator.go
package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"go.uber.org/zap"
)

type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{
		logger: logger.Named("tx-validator"),
	}
}

// ValidateTransaction проверяет собранную и подписанную транзакцию перед отправкой.
func (v *Validator) ValidateTransaction(tx *solana.Transaction) error {
	if err := v.ValidateSignatures(tx); err != nil {
		return err
	}

	if err := v.ValidateBlockhash(tx); err != nil {
		return err
	}

	if err := v.ValidateInstructions(tx); err != nil {
		return err
	}

	return nil
}

func (v *Validator) ValidateSignatures(tx *solana.Transaction) error {
	if len(tx.Signatures) == 0 {
		return ErrInvalidSignature
	}
	if err := tx.VerifySignatures(); err != nil {
		v.logger.Debug("Signature verification failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

func (v *Validator) ValidateBlockhash(tx *solana.Transaction) error {
	if tx.Message.RecentBlockhash.IsZero() {
		return ErrInvalidBlockhash
	}
	return nil
}

// ValidateInstructions требует лимит и цену compute units первыми двумя инструкциями.
func (v *Validator) ValidateInstructions(tx *solana.Transaction) error {
	instructions := tx.Message.Instructions
	if len(instructions) < 2 {
		return ErrInvalidInstruction
	}

	expected := []uint8{
		computebudget.Instruction_SetComputeUnitLimit,
		computebudget.Instruction_SetComputeUnitPrice,
	}
	for i, want := range expected {
		programID, err := tx.ResolveProgramIDIndex(instructions[i].ProgramIDIndex)
		if err != nil {
			return fmt.Errorf("%w: instruction %d: %v", ErrInvalidInstruction, i, err)
		}
		if !programID.Equals(computebudget.ProgramID) {
			return fmt.Errorf("%w: instruction %d is not a compute budget instruction", ErrInvalidInstruction, i)
		}
		if len(instructions[i].Data) == 0 || instructions[i].Data[0] != want {
			return fmt.Errorf("%w: instruction %d has unexpected compute budget type", ErrInvalidInstruction, i)
		}
	}
	return nil
}
