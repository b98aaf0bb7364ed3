package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/parisxmas/OxiDB/OxiForms/internal/airtable"
	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/config"
	"github.com/parisxmas/OxiDB/OxiForms/internal/db"
	"github.com/parisxmas/OxiDB/OxiForms/internal/handler"
	"github.com/parisxmas/OxiDB/OxiForms/internal/logging"
	"github.com/parisxmas/OxiDB/OxiForms/internal/mongostore"
	"github.com/parisxmas/OxiDB/OxiForms/internal/repository"
	"github.com/parisxmas/OxiDB/OxiForms/internal/router"
	"github.com/parisxmas/OxiDB/OxiForms/internal/service"
	"github.com/parisxmas/OxiDB/OxiForms/internal/telemetry"
)

const serviceName = "oxiforms"

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// stores is whichever backend the config selected.
type stores struct {
	forms     service.FormStore
	responses service.ResponseStore
	users     service.UserStore
	ping      func(context.Context) error
	close     func()
}

func main() {
	if err := run(); err != nil {
		slog.Error("oxiforms exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	closeLogs, err := logging.Init(cfg.Log, serviceName)
	if err != nil {
		slog.Warn("log sink init failed", slog.String("error", err.Error()))
	}
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		slog.Warn("tracing disabled", slog.String("error", err.Error()))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	if cfg.JWTSecret == config.DevJWTSecret {
		slog.Warn("JWT_SECRET is not set, using the development secret")
	}
	if cfg.Airtable.ClientID == "" {
		slog.Warn("AIRTABLE_CLIENT_ID is not set, login will fail")
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// Index builds can be slow on large collections, so the server starts
	// accepting requests first.
	go ensureIndexes(st.forms, st.responses, st.users)

	sealer, err := auth.NewSealer(cfg.SealingKey())
	if err != nil {
		return fmt.Errorf("token sealer: %w", err)
	}
	oauth := airtable.NewOAuth(airtable.OAuthConfig{
		ClientID:     cfg.Airtable.ClientID,
		ClientSecret: cfg.Airtable.ClientSecret,
		RedirectURI:  cfg.Airtable.RedirectURI,
		Scopes:       cfg.Airtable.Scopes(),
		AuthURL:      cfg.Airtable.AuthURL,
		TokenURL:     cfg.Airtable.TokenURL,
	})
	factory := func(ts oauth2.TokenSource) service.Airtable {
		return airtable.NewClient(cfg.Airtable.APIURL, ts, nil)
	}

	tokens := service.NewTokenKeeper(st.users, oauth, sealer, factory)
	authSvc := service.NewAuthService(st.users, oauth, tokens, sealer, cfg.JWTSecret, cfg.SessionTTL)
	formSvc := service.NewFormService(st.forms, tokens)
	respSvc := service.NewResponseService(formSvc, st.responses, st.users, tokens)
	hookSvc := service.NewWebhookService(st.responses, cfg.Webhook.Secret, cfg.Webhook.RequireSecret)

	mux := router.New(cfg.JWTSecret, cfg.CORSOrigins, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc, cfg.FrontendURL, cfg.SecureCookies),
		Forms:     handler.NewFormHandler(formSvc),
		Responses: handler.NewResponseHandler(respSvc),
		Webhooks:  handler.NewWebhookHandler(hookSvc),
		Dashboard: handler.NewDashboardHandler(respSvc, st.ping),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("OxiForms server starting", slog.String("addr", cfg.HTTPAddr), slog.String("store", cfg.Store))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store {
	case config.StoreMongo:
		m, err := mongostore.Connect(ctx, mongostore.Config{
			URI:         cfg.Mongo.URI,
			Database:    cfg.Mongo.Database,
			Timeout:     cfg.Mongo.Timeout,
			MaxPoolSize: cfg.Mongo.MaxPoolSize,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("connected to MongoDB", slog.String("database", cfg.Mongo.Database))
		return &stores{
			forms:     m.Forms(),
			responses: m.Responses(),
			users:     m.Users(),
			ping:      m.Ping,
			close: func() {
				cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = m.Close(cctx)
			},
		}, nil
	default:
		pool, err := db.NewPool(ctx, cfg.OxiDB.Host, cfg.OxiDB.Port, cfg.OxiDB.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("connect to OxiDB: %w", err)
		}
		slog.Info("connected to OxiDB",
			slog.String("host", cfg.OxiDB.Host),
			slog.Int("port", cfg.OxiDB.Port),
			slog.Int("poolSize", cfg.OxiDB.PoolSize))
		return &stores{
			forms:     repository.NewFormRepo(pool),
			responses: repository.NewResponseRepo(pool),
			users:     repository.NewUserRepo(pool),
			ping:      pool.Ping,
			close:     pool.Close,
		}, nil
	}
}

func ensureIndexes(all ...any) {
	ctx := context.Background()
	for _, s := range all {
		ix, ok := s.(indexer)
		if !ok {
			continue
		}
		start := time.Now()
		if err := ix.EnsureIndexes(ctx); err != nil {
			slog.Warn("index creation failed", slog.String("store", fmt.Sprintf("%T", s)), slog.String("error", err.Error()))
			continue
		}
		slog.Info("indexes ready", slog.String("store", fmt.Sprintf("%T", s)), slog.Duration("took", time.Since(start)))
	}
}
