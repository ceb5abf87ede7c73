// Command auditd starts the StayScore audit API server.
// Usage: go run ./cmd/auditd [flags]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stayscore/stayscore/internal/logging"
	"github.com/stayscore/stayscore/internal/server"
	"github.com/stayscore/stayscore/internal/webclient"
)

func main() {
	cfg := server.DefaultConfig()

	flag.StringVar(&cfg.ListenAddr, "addr", envOr("STAYSCORE_ADDR", cfg.ListenAddr), "HTTP listen address")
	flag.StringVar(&cfg.DBPath, "db", envOr("STAYSCORE_DB", cfg.DBPath), "SQLite database path")
	flag.IntVar(&cfg.Scheduler.Concurrency, "concurrency", cfg.Scheduler.Concurrency, "max in-flight audits per batch")
	flag.DurationVar(&cfg.Scheduler.RunTimeout, "run-timeout", cfg.Scheduler.RunTimeout, "per-domain analysis timeout")
	backend := flag.String("fetch-backend", envOr("STAYSCORE_FETCH_BACKEND", string(webclient.BackendNetHTTP)),
		"page fetch backend (nethttp or chromedp)")
	flag.Parse()

	cfg.Analyzer.WebClient.Backend = webclient.Backend(*backend)
	cfg.Logger = logging.NewStdoutLogger("auditd")

	s, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("starting server: %v", err)
	}
	defer s.Close()

	httpSrv := s.HTTPServer()
	go func() {
		cfg.Logger.Info("listening", logging.Field{Key: "addr", Value: cfg.ListenAddr})
		if err := httpSrv.ListenAndServe(); err != nil {
			cfg.Logger.Error("http server stopped", logging.Field{Key: "error", Value: err.Error()})
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cfg.Logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		cfg.Logger.Warn("shutdown", logging.Field{Key: "error", Value: err.Error()})
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
