package sweeper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingRegistry struct {
	calls atomic.Int64
}

func (c *countingRegistry) Expire() {
	c.calls.Add(1)
}

func TestRunCallsExpireOnEveryTick(t *testing.T) {
	reg := &countingRegistry{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Run(ctx, reg, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(55 * time.Millisecond)
	cancel()
	<-done

	if got := reg.calls.Load(); got < 2 {
		t.Fatalf("expected at least 2 expire calls, got %d", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	reg := &countingRegistry{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		Run(ctx, reg, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return promptly after context cancellation")
	}
}
