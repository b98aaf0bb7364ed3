// Command webhook-relay receives Airtable webhook deliveries and forwards
// them to the OxiForms server with the webhook secret header attached.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parisxmas/OxiDB/OxiForms/internal/config"
	"github.com/parisxmas/OxiDB/OxiForms/internal/logging"
	"github.com/parisxmas/OxiDB/OxiForms/internal/relay"
)

func main() {
	cfg, err := config.LoadRelay()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	closeLogs, err := logging.Init(cfg.Log, "oxiforms-webhook-relay")
	if err != nil {
		slog.Warn("log sink init failed", slog.String("error", err.Error()))
	}
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           relay.New(cfg.TargetURL, cfg.Secret, nil).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	slog.Info("webhook relay starting",
		slog.String("addr", cfg.Addr),
		slog.String("target", cfg.TargetURL+relay.WebhookPath))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("relay server failed", slog.String("error", err.Error()))
		closeLogs()
		os.Exit(1)
	}
}
