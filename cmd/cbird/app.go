package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fortemezzo/cbird/internal/database"
	"github.com/fortemezzo/cbird/internal/filesystem"
	"github.com/fortemezzo/cbird/internal/indexer"
	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/metrics"
	"github.com/fortemezzo/cbird/internal/startup"
)

// collectInterval is how often the metrics collector samples the index.
const collectInterval = 15 * time.Second

// app holds the library opened by the running command.
type app struct {
	cfg *startup.Config
	db  *database.Database
	idx *indexer.Indexer

	server    *http.Server
	collector *metrics.Collector
}

// open loads the configuration and opens the library once.
func (a *app) open(cmd *cobra.Command) error {
	if a.idx != nil {
		return nil
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		logging.SetLevel(logging.ParseLevel(lvl))
	}

	dir, _ := cmd.Flags().GetString("dir")
	cfg, err := startup.LoadConfig(dir)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := applyParamFlags(cmd, cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.MetricsAddr = addr
	}
	startup.LogConfig(cfg)

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"library": cfg.IndexDir,
		"index":   filepath.Join(cfg.IndexDir, database.IndexDirName),
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	start := time.Now()
	db, err := database.Open(cmd.Context(), cfg.IndexDir)
	if err != nil {
		return err
	}
	startup.LogDatabaseInit(db.Path(), time.Since(start))

	a.cfg = cfg
	a.db = db
	a.idx = indexer.New(db, cfg.Index)

	if cfg.MetricsAddr != "" {
		if err := a.serveMetrics(cfg.MetricsAddr); err != nil {
			return err
		}
	}
	return nil
}

func applyParamFlags(cmd *cobra.Command, cfg *startup.Config) error {
	params, _ := cmd.Flags().GetStringArray("param")
	for _, kv := range params {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("-p %q: want key=value", kv)
		}
		if err := cfg.Search.Set(key, val); err != nil {
			return err
		}
	}

	indexParams, _ := cmd.Flags().GetStringArray("index-param")
	for _, kv := range indexParams {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("-i %q: want key=value", kv)
		}
		if err := cfg.Index.Set(key, val); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) serveMetrics(addr string) error {
	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	a.server = &http.Server{
		Handler:           newMetricsRouter(a.idx),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()

	a.collector = metrics.NewCollector(a.db, a.db.Path(), collectInterval)
	a.collector.Start()

	logging.Info("Metrics available at http://%s/metrics", ln.Addr())
	return nil
}

// close releases whatever open acquired. It is safe to call more than once.
func (a *app) close() {
	if a.collector != nil {
		a.collector.Stop()
		a.collector = nil
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
		cancel()
		a.server = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logging.Warn("Error closing database: %v", err)
		}
		a.db = nil
		a.idx = nil
	}
}
