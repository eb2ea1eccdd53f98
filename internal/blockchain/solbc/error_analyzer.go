package solbc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"

	solrpc "github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc/rpc"
)

// InstructionError is the decoded form of {"InstructionError":[idx, reason]}.
type InstructionError struct {
	Index      int         `json:"index"`
	Reason     interface{} `json:"reason"`
	CustomCode *int64      `json:"custom_code,omitempty"`
}

// Analysis is a flattened description of a failed submission or status.
type Analysis struct {
	Type        string            `json:"type"`
	Class       solrpc.Class      `json:"class"`
	Code        int               `json:"code,omitempty"`
	Message     string            `json:"message"`
	Instruction *InstructionError `json:"instruction_error,omitempty"`
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// AnalyzeError inspects a transport error returned by the RPC node or the relay.
func (ea *ErrorAnalyzer) AnalyzeError(err error) Analysis {
	if err == nil {
		return Analysis{Type: "none", Class: solrpc.ClassNone, Message: "no error"}
	}

	result := Analysis{
		Type:    "generic_error",
		Class:   solrpc.Classify(err),
		Message: err.Error(),
	}

	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		result.Type = "http_error"
		result.Code = httpErr.Code
		return result
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return result
	}

	result.Type = "rpc_error"
	result.Code = rpcErr.Code
	result.Message = rpcErr.Message
	ea.logger.Debug("RPC error classified",
		zap.Int("code", rpcErr.Code),
		zap.String("class", string(result.Class)))
	return result
}

// AnalyzeStatusError describes the err field of a signature status.
func (ea *ErrorAnalyzer) AnalyzeStatusError(detail interface{}) Analysis {
	result := Analysis{
		Type:        "on_chain_error",
		Class:       solrpc.ClassCritical,
		Message:     FormatStatusError(detail),
		Instruction: ParseInstructionError(detail),
	}
	return result
}

// ParseInstructionError extracts the failing instruction from a transaction error value.
// Returns nil when detail is not an InstructionError.
func ParseInstructionError(detail interface{}) *InstructionError {
	m, ok := detail.(map[string]interface{})
	if !ok {
		return nil
	}
	pair, ok := m["InstructionError"].([]interface{})
	if !ok || len(pair) != 2 {
		return nil
	}

	ie := &InstructionError{Reason: pair[1]}
	switch idx := pair[0].(type) {
	case float64:
		ie.Index = int(idx)
	case json.Number:
		n, _ := idx.Int64()
		ie.Index = int(n)
	}

	if reason, ok := pair[1].(map[string]interface{}); ok {
		switch code := reason["Custom"].(type) {
		case float64:
			c := int64(code)
			ie.CustomCode = &c
		case json.Number:
			if c, err := code.Int64(); err == nil {
				ie.CustomCode = &c
			}
		}
	}
	return ie
}

// FormatStatusError renders the err field of a signature status as compact JSON.
func FormatStatusError(detail interface{}) string {
	if s, ok := detail.(string); ok {
		return s
	}
	b, err := json.Marshal(detail)
	if err != nil {
		return fmt.Sprintf("%v", detail)
	}
	return string(b)
}
