// internal/utils/logger/logger_test.go
package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_ConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "sender.log")

	l, err := New(&Config{LogFile: path, MaxSize: 1, Console: &console})
	require.NoError(t, err)

	l.WithComponent("tx-manager").Info("transaction landed", zap.String("signature", "abc"))
	l.Debug("hidden at info level")
	require.NoError(t, l.Sync())

	assert.Contains(t, console.String(), "transaction landed")
	assert.NotContains(t, console.String(), "hidden at info level")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "tx-manager", entry["component"])
	assert.Equal(t, "abc", entry["signature"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_QuietDevelopment(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "sender.log")

	l, err := New(&Config{LogFile: path, Development: true, Quiet: true, Console: &console})
	require.NoError(t, err)

	l.Debug("debug reaches the file")
	require.NoError(t, l.Sync())

	assert.Empty(t, console.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug reaches the file")
}

func TestWithOperation(t *testing.T) {
	var console bytes.Buffer
	l, err := New(&Config{Console: &console})
	require.NoError(t, err)

	l.WithOperation("transfer").Info("start")
	l.WithOperation("transfer").Info("start")
	require.NoError(t, l.Sync())

	lines := bytes.Split(bytes.TrimSpace(console.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "correlation_id")
	assert.NotEqual(t, string(lines[0]), string(lines[1]))
}

func TestWalletAndTransactionContext(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "sender.log")
	l, err := New(&Config{LogFile: path, Development: true, Console: &console})
	require.NoError(t, err)

	l.WithWallet("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin").Debug("Wallet loaded")
	l.WithTransaction("5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb").Info("Transfer finished")
	end := l.TrackPerformance("fee")
	end()
	require.NoError(t, l.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.Len(t, entries, 4)

	assert.Equal(t, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", entries[0]["wallet"])
	assert.Equal(t, "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb", entries[1]["signature"])
	assert.Contains(t, entries[1], "tx_time")
	assert.Equal(t, "Starting operation", entries[2]["msg"])
	assert.Equal(t, "fee", entries[3]["operation"])
	assert.Contains(t, entries[3], "duration")
	assert.Equal(t, entries[2]["correlation_id"], entries[3]["correlation_id"])
}
