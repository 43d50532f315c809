package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alxayo/shortwave/internal/logger"
	"github.com/alxayo/shortwave/internal/shortwave/config"
	"github.com/alxayo/shortwave/internal/shortwave/node"
)

func main() {
	cliCfg, err := parseFlags(os.Args[1:])
	if err != nil {
		// flag package already printed usage/error
		os.Exit(2)
	}
	if cliCfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cliCfg.logLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cliCfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	cfg, err := config.Load(cliCfg.configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	n := node.New(cfg, logger.Logger(), version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := n.Start(ctx); err != nil {
		log.Error("failed to start node", "error", err)
		os.Exit(1)
	}
	log.Info("node started", "node_id", cfg.NodeID, "bind", cfg.Bind, "version", version)

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if err := config.WatchReload(watchCtx, cliCfg.configPath, func(reloaded *config.Config) {
		log.Info("config file changed; restart the node to apply it", "path", cliCfg.configPath)
		_ = reloaded
	}, log); err != nil {
		log.Warn("config hot-reload watcher unavailable", "error", err)
	}

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := n.Stop(shutdownCtx); err != nil {
			log.Error("node stop error", "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("node stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
	}
}
