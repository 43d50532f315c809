// Package ipc runs the two optional Unix-domain-socket listeners: one
// accepting newline-delimited JSON now-playing updates, the other a raw
// audio byte stream. Both unlink any stale socket file before binding and
// accept connections in a loop, spawning one goroutine per connection, the
// same accept-loop shape as the original ipc.rs listeners.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/alxayo/shortwave/internal/bufpool"
	"github.com/alxayo/shortwave/internal/logger"
	"github.com/alxayo/shortwave/internal/shortwave/broadcast"
	"github.com/alxayo/shortwave/internal/shortwave/domain"
	"github.com/alxayo/shortwave/internal/shortwave/nowplaying"
)

const audioReadChunk = 16 * 1024

// connCounter assigns each accepted connection a short-lived id for log
// correlation; Unix sockets rarely carry a meaningful RemoteAddr.
var connCounter atomic.Uint64

func nextConnID() string {
	return fmt.Sprintf("conn-%d", connCounter.Add(1))
}

// ListenNowPlaying binds socketPath and, until ctx is cancelled, accepts
// connections whose lines are JSON objects applied to store via Set. Bad or
// partial lines are logged and the connection's read loop continues.
func ListenNowPlaying(ctx context.Context, socketPath string, store *nowplaying.Store, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	ln, err := bindUnix(socketPath)
	if err != nil {
		return err
	}
	go closeOnDone(ctx, ln)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("now-playing IPC accept error", "error", err)
			continue
		}
		go handleNowPlayingConn(conn, store, log)
	}
}

func handleNowPlayingConn(conn net.Conn, store *nowplaying.Store, log *slog.Logger) {
	defer conn.Close()
	connLog := logger.WithConn(log, nextConnID(), conn.RemoteAddr().String())
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var np domain.NowPlaying
		if err := json.Unmarshal(line, &np); err != nil {
			connLog.Warn("invalid now-playing IPC line", "error", err)
			continue
		}
		np.UpdatedAt = time.Now()
		store.Set(np)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		connLog.Warn("now-playing IPC read error", "error", err)
	}
}

// ListenAudio binds socketPath and, until ctx is cancelled, forwards every
// connection's byte stream onto hub's audio topic in chunks of up to
// audioReadChunk bytes.
func ListenAudio(ctx context.Context, socketPath string, hub *broadcast.Hub, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	ln, err := bindUnix(socketPath)
	if err != nil {
		return err
	}
	go closeOnDone(ctx, ln)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("audio IPC accept error", "error", err)
			continue
		}
		go handleAudioConn(conn, hub, log)
	}
}

func handleAudioConn(conn net.Conn, hub *broadcast.Hub, log *slog.Logger) {
	defer conn.Close()
	connLog := logger.WithConn(log, nextConnID(), conn.RemoteAddr().String())
	buf := bufpool.Get(audioReadChunk)
	defer bufpool.Put(buf)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			hub.Audio.Publish(chunk)
		}
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
				connLog.Warn("audio IPC read error", "error", err)
			}
			return
		}
	}
}

func bindUnix(socketPath string) (*net.UnixListener, error) {
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}
	addr, err := net.ResolveUnixAddr("unix", socketPath)
	if err != nil {
		return nil, err
	}
	return net.ListenUnix("unix", addr)
}

func closeOnDone(ctx context.Context, ln net.Listener) {
	<-ctx.Done()
	_ = ln.Close()
}
