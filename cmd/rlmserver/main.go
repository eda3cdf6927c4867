// Command rlmserver boots the context engine: configuration, logging,
// metrics, the session registry, optional persistence, the sandbox
// engine, and the RPC tool dispatcher, exposed over stdio and/or HTTP.
// Grounded on the teacher's apps/edge-mcp/cmd/server/main.go dual
// stdio/HTTP bootstrap.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ctxrelay/rlm-server/internal/config"
	"github.com/ctxrelay/rlm-server/internal/observability"
	"github.com/ctxrelay/rlm-server/internal/persistence"
	"github.com/ctxrelay/rlm-server/internal/rpc"
	"github.com/ctxrelay/rlm-server/internal/sandbox"
	"github.com/ctxrelay/rlm-server/internal/session"
	"github.com/ctxrelay/rlm-server/internal/tokenizer"
)

func main() {
	configFile := flag.String("config", "", "optional config file (yaml/json/toml, read through viper)")
	flag.Parse()

	logger := observability.NewStandardLogger("rlmserver")

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	metrics := observability.New()

	store, err := buildStore(cfg, logger)
	if err != nil {
		logger.Fatalf("open persistence store: %v", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	tok, err := tokenizer.NewTiktokenProvider(tokenizer.Options{})
	if err != nil {
		logger.Fatalf("init tokenizer: %v", err)
	}
	defer tok.Release()

	registry := session.New(session.Config{
		MaxSessions:       cfg.Session.MaxSessions,
		MaxContextBytes:   cfg.Session.MaxContextBytes,
		MaxSessionMemory:  cfg.Session.MaxMemoryBytes,
		MaxContexts:       cfg.Session.MaxContexts,
		MaxVariables:      cfg.Session.MaxVariables,
		MaxHistoryEntries: cfg.Session.MaxHistoryEntries,
		TTL:               cfg.Session.TTL,
		ScavengeInterval:  cfg.Session.ScavengeInterval,
		ChunkCacheEntries: cfg.Cache.ChunkCacheEntries,
		IndexCacheEntries: cfg.Cache.IndexCacheEntries,
		QueryCacheEntries: cfg.Cache.QueryCacheEntries,
	}, store, logger, metrics)
	defer registry.Close()

	engine := sandbox.New(cfg.Sandbox.TimeBudget, cfg.Sandbox.OutputCap)

	dispatcher := rpc.NewDispatcher(&rpc.Deps{
		Registry: registry,
		Sandbox:  engine,
		Tokens:   tok,
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var httpServer *http.Server
	if cfg.Server.HTTPPort > 0 {
		h := rpc.NewHTTPServer(dispatcher)
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler:           h.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Infof("http listening on %s", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("http server error: %v", err)
			}
		}()
	}

	if cfg.Server.Stdio {
		go rpc.ServeStdio(ctx, dispatcher, os.Stdin, os.Stdout, logger)
	}

	<-ctx.Done()
	logger.Info("shutting down", nil)

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}
}

func buildStore(cfg *config.Config, logger observability.Logger) (persistence.Store, error) {
	if !cfg.Storage.Enabled {
		return persistence.NoopStore{}, nil
	}
	path := cfg.Storage.BaseDir
	if path == "" {
		path = "rlm-data.bbolt"
	}
	logger.Infof("opening persistence store at %s", path)
	return persistence.OpenBoltStore(path, persistence.Options{
		BaseDir:      cfg.Storage.BaseDir,
		Snapshots:    cfg.Storage.Snapshots,
		MaxSnapshots: cfg.Storage.MaxSnapshots,
	})
}
