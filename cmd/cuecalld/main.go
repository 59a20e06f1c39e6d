package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/rfoster/cuecall/internal/config"
	"github.com/rfoster/cuecall/internal/database"
	"github.com/rfoster/cuecall/internal/logging"
	"github.com/rfoster/cuecall/internal/server"
	"github.com/rfoster/cuecall/internal/wire"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "path to JSONC config file")
		httpAddr   = pflag.String("http-addr", "", "HTTP listen address (overrides config)")
		udpAddr    = pflag.String("udp-addr", "", "wire protocol listen address (overrides config)")
		dbPath     = pflag.String("db", "", "sqlite database path (overrides config)")
		logLevel   = pflag.String("log-level", "", "debug, info, warn, or error (overrides config)")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *udpAddr != "" {
		cfg.UDPAddr = *udpAddr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wireSrv := wire.NewServer(cfg.UDPAddr, srv.Dispatcher(), logger.With("component", "wire"))
	wireErr := make(chan error, 1)
	go func() {
		wireErr <- wireSrv.Run(ctx)
	}()

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-wireErr:
		if err != nil {
			logger.Error("wire server", "error", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
