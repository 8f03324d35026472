package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/D191001/libra/internal/config"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) PingContext(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func readyCfg(attempts int) config.DBConfig {
	return config.DBConfig{
		ReadyAttempts:  attempts,
		ReadyBaseDelay: time.Millisecond,
		ReadyMaxDelay:  2 * time.Millisecond,
	}
}

func TestWaitReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		failures  int
		attempts  int
		wantErr   bool
		wantCalls int
	}{
		{name: "ready at once", failures: 0, attempts: 3, wantCalls: 1},
		{name: "ready after retries", failures: 2, attempts: 3, wantCalls: 3},
		{name: "gives up", failures: 5, attempts: 3, wantErr: true, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &flakyPinger{failures: tt.failures}
			err := WaitReady(context.Background(), p, readyCfg(tt.attempts), nil)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, p.calls)
		})
	}
}

func TestWaitReady_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitReady(ctx, &flakyPinger{failures: 100}, readyCfg(10), nil)
	require.ErrorIs(t, err, context.Canceled)
}
