// internal/blockchain/solbc/rpc/errors.go
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrRateLimit возникает при превышении лимита запросов
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout возникает при превышении времени ожидания
	ErrTimeout = errors.New("request timeout")

	// ErrInvalidResponse возникает при получении некорректного ответа
	ErrInvalidResponse = errors.New("invalid RPC response")

	// ErrConnectionFailed возникает при ошибке подключения
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNodeUnavailable узел ответил 5xx
	ErrNodeUnavailable = errors.New("node unavailable")

	// ErrUnauthorized узел отклонил ключ доступа
	ErrUnauthorized = errors.New("unauthorized")
)

// Коды ошибок JSON-RPC узла Solana, после которых имеет смысл повторить запрос.
const (
	codeBlockhashNotFound    = -32002
	codeNodeUnhealthy        = -32005
	codeSlotSkipped          = -32007
	codeMinContextSlotNotMet = -32016
)

// Error представляет ошибку RPC с дополнительным контекстом
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создает новую ошибку RPC. Распознанные транспортные сбои
// дополнительно оборачиваются сигнальной ошибкой (ErrRateLimit, ErrTimeout...),
// исходная ошибка остается доступной через errors.As.
func NewError(err error, nodeURL, method string) error {
	return &Error{
		Err:     Annotate(err),
		NodeURL: nodeURL,
		Method:  method,
	}
}

// Annotate добавляет к err подходящую сигнальную ошибку, если её ещё нет.
func Annotate(err error) error {
	if err == nil {
		return nil
	}
	sentinel := sentinelFor(err)
	if sentinel == nil || errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// ErrorForStatus сигнальная ошибка для HTTP статуса, nil если статус не распознан.
func ErrorForStatus(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrRateLimit
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code >= http.StatusInternalServerError:
		return ErrNodeUnavailable
	}
	return nil
}

func sentinelFor(err error) error {
	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		return ErrorForStatus(httpErr.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return ErrConnectionFailed
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnectionFailed
	}
	return nil
}

// Class грубая категория транспортной ошибки, используется в логах и метриках.
type Class string

const (
	ClassNone      Class = "none"
	ClassRetryable Class = "retryable"
	ClassCritical  Class = "critical"
	ClassUnknown   Class = "unknown"
)

// Classify относит ошибку к одной из категорий.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case IsCriticalError(err):
		return ClassCritical
	case IsRetryableError(err):
		return ClassRetryable
	default:
		return ClassUnknown
	}
}

// IsRetryableError определяет, можно ли повторить операцию при данной ошибке
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrNodeUnavailable) {
		return true
	}

	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code == http.StatusTooManyRequests || httpErr.Code >= http.StatusInternalServerError
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case codeBlockhashNotFound, codeNodeUnhealthy, codeSlotSkipped, codeMinContextSlotNotMet:
			return true
		}
	}

	// Проверяем текст ошибки для общих сетевых проблем
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "eof")
}

// IsCriticalError определяет, является ли ошибка критической
func IsCriticalError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrUnauthorized) {
		return true
	}

	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code == http.StatusUnauthorized || httpErr.Code == http.StatusForbidden
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "invalid request") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden")
}
