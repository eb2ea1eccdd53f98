// internal/blockchain/solbc/error_analyzer_test.go
package solbc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	solrpc "github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc/rpc"
)

func TestErrorAnalyzer_AnalyzeError(t *testing.T) {
	ea := NewErrorAnalyzer(zaptest.NewLogger(t))

	t.Run("nil", func(t *testing.T) {
		a := ea.AnalyzeError(nil)
		assert.Equal(t, "none", a.Type)
		assert.Equal(t, solrpc.ClassNone, a.Class)
	})

	t.Run("http error", func(t *testing.T) {
		err := solrpc.NewError(jsonrpc.NewHTTPError(429, errors.New("too many requests")), "http://node", "sendTransaction")
		a := ea.AnalyzeError(err)
		assert.Equal(t, "http_error", a.Type)
		assert.Equal(t, 429, a.Code)
		assert.Equal(t, solrpc.ClassRetryable, a.Class)
	})

	t.Run("rpc error", func(t *testing.T) {
		rpcErr := &jsonrpc.RPCError{
			Code:    -32005,
			Message: "Node is behind by 42 slots",
		}
		a := ea.AnalyzeError(fmt.Errorf("send: %w", rpcErr))

		assert.Equal(t, "rpc_error", a.Type)
		assert.Equal(t, -32005, a.Code)
		assert.Equal(t, "Node is behind by 42 slots", a.Message)
		assert.Equal(t, solrpc.ClassRetryable, a.Class)
	})

	t.Run("rate limited node", func(t *testing.T) {
		a := ea.AnalyzeError(fmt.Errorf("send: %w", solrpc.ErrRateLimit))
		assert.Equal(t, "generic_error", a.Type)
		assert.Equal(t, solrpc.ClassRetryable, a.Class)
	})

	t.Run("plain error", func(t *testing.T) {
		a := ea.AnalyzeError(errors.New("something odd"))
		assert.Equal(t, "generic_error", a.Type)
		assert.Equal(t, solrpc.ClassUnknown, a.Class)
	})
}

func TestErrorAnalyzer_AnalyzeStatusError(t *testing.T) {
	ea := NewErrorAnalyzer(zaptest.NewLogger(t))

	detail := map[string]interface{}{
		"InstructionError": []interface{}{float64(3), "InvalidAccountData"},
	}
	a := ea.AnalyzeStatusError(detail)
	assert.Equal(t, "on_chain_error", a.Type)
	assert.Equal(t, solrpc.ClassCritical, a.Class)
	assert.Equal(t, `{"InstructionError":[3,"InvalidAccountData"]}`, a.Message)
	require.NotNil(t, a.Instruction)
	assert.Equal(t, 3, a.Instruction.Index)
	assert.Nil(t, a.Instruction.CustomCode)
	assert.Equal(t, "InvalidAccountData", a.Instruction.Reason)
}

func TestParseInstructionError(t *testing.T) {
	assert.Nil(t, ParseInstructionError(nil))
	assert.Nil(t, ParseInstructionError("AccountInUse"))
	assert.Nil(t, ParseInstructionError(map[string]interface{}{"InsufficientFundsForRent": map[string]interface{}{"account_index": 0}}))
	assert.Nil(t, ParseInstructionError(map[string]interface{}{"InstructionError": []interface{}{float64(1)}}))
}

func TestFormatStatusError(t *testing.T) {
	assert.Equal(t, "AccountInUse", FormatStatusError("AccountInUse"))
	assert.Equal(t, `{"InstructionError":[0,{"Custom":1}]}`, FormatStatusError(map[string]interface{}{
		"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 1}},
	}))
}
