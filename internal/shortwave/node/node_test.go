package node

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alxayo/shortwave/internal/shortwave/config"
)

func minimalConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		NodeID:                 uuid.New().String(),
		Bind:                   "127.0.0.1:0",
		AdvertiseTTLSeconds:    30,
		MaxFrequenciesPerOwner: 3,
	}
}

func TestStartAndStopCleanShutdown(t *testing.T) {
	n := New(minimalConfig(t), nil, "test")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := n.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := n.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
