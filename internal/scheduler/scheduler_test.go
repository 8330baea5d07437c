package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddRejectsInvalidSpec(t *testing.T) {
	s := New()
	require.Error(t, s.Add("not a schedule", func() {}))
	require.NoError(t, s.Add("*/5 * * * *", func() {}))
	require.NoError(t, s.Add("@every 1h", func() {}))
}

func TestRunFiresAndStops(t *testing.T) {
	s := New()
	var runs atomic.Int32
	require.NoError(t, s.Add("@every 1s", func() { runs.Add(1) }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
