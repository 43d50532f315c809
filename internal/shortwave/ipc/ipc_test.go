package ipc

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/alxayo/shortwave/internal/shortwave/broadcast"
	"github.com/alxayo/shortwave/internal/shortwave/domain"
	"github.com/alxayo/shortwave/internal/shortwave/nowplaying"
)

func TestListenNowPlayingAppliesValidLines(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "now.sock")
	hub := broadcast.NewHub()
	store := nowplaying.New(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- ListenNowPlaying(ctx, socketPath, store, nil) }()
	waitForSocket(t, socketPath)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	line, _ := json.Marshal(domain.NowPlaying{Title: "Live Song"})
	if _, err := conn.Write(append(line, '\n')); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Malformed line should be skipped without killing the connection.
	if _, err := conn.Write([]byte("not json\n")); err != nil {
		t.Fatalf("write malformed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if np, ok := store.Get(); ok && np.Title == "Live Song" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("now-playing store never observed the applied update")
}

func TestListenAudioForwardsChunksToHub(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "audio.sock")
	hub := broadcast.NewHub()
	sub := hub.Audio.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = ListenAudio(ctx, socketPath, hub, nil) }()
	waitForSocket(t, socketPath)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("pcm-bytes")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case chunk := <-sub.C():
		if string(chunk) != "pcm-bytes" {
			t.Fatalf("unexpected chunk: %q", chunk)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for forwarded audio chunk")
	}
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", path); err == nil {
			conn.Close()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("socket %s never became available", path)
}
