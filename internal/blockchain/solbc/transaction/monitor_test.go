// internal/blockchain/solbc/transaction/monitor_test.go
package transaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testSignature() solana.Signature {
	var sig solana.Signature
	sig[0] = 1
	return sig
}

func TestMonitor_Await(t *testing.T) {
	instructionErr := map[string]interface{}{
		"InstructionError": []interface{}{float64(2), map[string]interface{}{"Custom": float64(6001)}},
	}

	tests := []struct {
		name      string
		responses []*rpc.GetSignatureStatusesResult
		errs      []error
		maxPolls  int
		want      PollOutcome
		wantPolls int
	}{
		{
			name:      "confirmed after pending and processed",
			responses: []*rpc.GetSignatureStatusesResult{unknownStatus(), statusOf(rpc.ConfirmationStatusProcessed), statusOf(rpc.ConfirmationStatusConfirmed)},
			maxPolls:  5,
			want:      PollConfirmed,
			wantPolls: 3,
		},
		{
			name:      "finalized counts as confirmed",
			responses: []*rpc.GetSignatureStatusesResult{statusOf(rpc.ConfirmationStatusFinalized)},
			maxPolls:  5,
			want:      PollConfirmed,
			wantPolls: 1,
		},
		{
			name:      "empty value list is pending",
			responses: []*rpc.GetSignatureStatusesResult{{}, statusOf(rpc.ConfirmationStatusConfirmed)},
			maxPolls:  5,
			want:      PollConfirmed,
			wantPolls: 2,
		},
		{
			name:      "on-chain error rejects",
			responses: []*rpc.GetSignatureStatusesResult{statusOf(rpc.ConfirmationStatusProcessed), failedStatus(instructionErr)},
			maxPolls:  5,
			want:      PollRejected,
			wantPolls: 2,
		},
		{
			name:      "processed only times out",
			responses: []*rpc.GetSignatureStatusesResult{statusOf(rpc.ConfirmationStatusProcessed), statusOf(rpc.ConfirmationStatusProcessed), statusOf(rpc.ConfirmationStatusProcessed)},
			maxPolls:  3,
			want:      PollTimedOut,
			wantPolls: 3,
		},
		{
			name:      "transport error keeps polling",
			responses: []*rpc.GetSignatureStatusesResult{nil, statusOf(rpc.ConfirmationStatusConfirmed)},
			errs:      []error{errors.New("connection refused"), nil},
			maxPolls:  3,
			want:      PollConfirmed,
			wantPolls: 2,
		},
		{
			name:      "zero poll budget times out immediately",
			maxPolls:  0,
			want:      PollTimedOut,
			wantPolls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := testContext()
			defer cancel()

			client := new(MockClient)
			for i, res := range tt.responses {
				var err error
				if i < len(tt.errs) {
					err = tt.errs[i]
				}
				client.onStatus(res, err)
			}

			var events []ProgressEvent
			m := NewMonitor(client, zaptest.NewLogger(t))
			outcome, polls, err := m.Await(ctx, testSignature(), fastPolicy(0, tt.maxPolls), func(ev ProgressEvent) {
				events = append(events, ev)
			})

			assert.Equal(t, tt.want, outcome)
			assert.Equal(t, tt.wantPolls, polls)
			assert.Len(t, events, tt.wantPolls)
			client.AssertNumberOfCalls(t, "GetSignatureStatuses", tt.wantPolls)

			if tt.want == PollRejected {
				var onChain *OnChainError
				require.ErrorAs(t, err, &onChain)
				assert.Equal(t, instructionErr, onChain.Detail)
				assert.Equal(t, testSignature(), onChain.Signature)
				assert.Contains(t, err.Error(), "6001")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMonitor_AwaitHonoursDelay(t *testing.T) {
	ctx, cancel := testContext()
	defer cancel()

	client := new(MockClient)
	client.onStatus(statusOf(rpc.ConfirmationStatusProcessed), nil)
	client.onStatus(statusOf(rpc.ConfirmationStatusConfirmed), nil)

	policy := RetryPolicy{MaxConfirmPolls: 5, ConfirmDelay: 20 * time.Millisecond}
	start := time.Now()
	outcome, polls, err := NewMonitor(client, zaptest.NewLogger(t)).Await(ctx, testSignature(), policy, nil)

	require.NoError(t, err)
	assert.Equal(t, PollConfirmed, outcome)
	assert.Equal(t, 2, polls)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestMonitor_AwaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	client := new(MockClient)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusOf(rpc.ConfirmationStatusProcessed), nil).
		Run(func(mock.Arguments) { cancel() }).
		Once()

	policy := RetryPolicy{MaxConfirmPolls: 10, ConfirmDelay: time.Hour}
	done := make(chan struct{})
	var (
		polls int
		err   error
	)
	go func() {
		defer close(done)
		_, polls, err = NewMonitor(client, zaptest.NewLogger(t)).Await(ctx, testSignature(), RetryPolicy{MaxConfirmPolls: 10}, nil)
	}()

	select {
	case <-done:
	case <-time.After(defaultTestTimeout):
		t.Fatal("Await did not return after cancellation")
	}
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, polls)

	// Отмена во время ожидания между опросами.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, polls, err = NewMonitor(new(MockClient), zaptest.NewLogger(t)).Await(ctx2, testSignature(), policy, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, polls)
}

func TestMonitor_Check(t *testing.T) {
	ctx, cancel := testContext()
	defer cancel()

	confirmations := uint64(3)
	client := new(MockClient)
	client.onStatus(&rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{{
			Slot:               99,
			Confirmations:      &confirmations,
			ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		}},
	}, nil)
	client.onStatus(unknownStatus(), nil)
	client.onStatus(failedStatus("AccountInUse"), nil)

	m := NewMonitor(client, zaptest.NewLogger(t))

	status, err := m.Check(ctx, testSignature())
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, status.Status)
	assert.Equal(t, uint64(99), status.Slot)
	assert.Equal(t, uint64(3), status.Confirmations)
	assert.True(t, status.Landed())

	status, err = m.Check(ctx, testSignature())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status.Status)
	assert.False(t, status.Landed())

	status, err = m.Check(ctx, testSignature())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status.Status)
	assert.Equal(t, "AccountInUse", status.Err)
	assert.False(t, status.Landed())
}
