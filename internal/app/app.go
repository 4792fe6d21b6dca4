// Package app builds the process-wide dependency graph from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"

	"contactform/internal/adapters/challenge"
	"contactform/internal/adapters/email"
	web "contactform/internal/adapters/http"
	"contactform/internal/adapters/http/perf"
	"contactform/internal/adapters/storage"
	recipientStore "contactform/internal/adapters/storage/recipient"
	"contactform/internal/application/orchestrators"
	"contactform/internal/config"
)

// App is the wired service. Close releases the directory connection.
type App struct {
	Deps      web.Deps
	Directory recipientStore.Store
	Collector *perf.Collector
	closers   []func()
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Build wires the directory, sender and verifier described by cfg.
// PRE: cfg.Validate() returned nil
// POST: Returns an App whose Deps pass web.Deps.Validate; the caller owns Close
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Collector: perf.NewCollector(perf.DefaultRingSize)}

	dir, closeDir, err := OpenDirectory(ctx, cfg, a.Collector)
	if err != nil {
		return nil, err
	}
	a.Directory = dir
	a.closers = append(a.closers, closeDir)

	sender, err := NewSender(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	verifier, err := challenge.NewAltchaVerifier(cfg.AltchaURL, cfg.AltchaAPIKey, nil)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("altcha verifier: %w", err)
	}

	a.Deps = web.Deps{
		Enquiry: orchestrators.SubmitEnquiryDeps{
			Verifier:  verifier,
			Directory: dir,
			Sender:    sender,
			From:      cfg.Sender,
			Bcc:       cfg.Bcc,
			Provider:  cfg.EmailProvider,
			Collector: a.Collector,
		},
		Health:         dir,
		Collector:      a.Collector,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		TrustProxy:     cfg.TrustProxy,
		SlowRequest:    cfg.SlowRequest,
	}
	if err := a.Deps.Validate(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// OpenDirectory connects to the recipient directory selected by cfg and
// ensures its schema exists.
// PRE: cfg.DirectoryDriver is sqlite or postgres; collector may be nil
// POST: Returns the store and a func that closes its connection
func OpenDirectory(ctx context.Context, cfg config.Config, collector *perf.Collector) (recipientStore.Store, func(), error) {
	switch cfg.DirectoryDriver {
	case config.DriverSQLite:
		db, err := storage.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.InitDB(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		timed := storage.NewTimedDB(db, collector, cfg.SlowQuery)
		slog.Info("directory_opened", "driver", cfg.DirectoryDriver, "path", cfg.DBPath)
		return recipientStore.NewSQLiteStore(timed), func() { timed.Close() }, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := recipientStore.NewPostgresStore(pool)
		if err := store.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres unreachable: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("directory_opened", "driver", cfg.DirectoryDriver)
		return store, pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown directory driver %q", cfg.DirectoryDriver)
}

// ErrUnknownProvider is returned for an unsupported CONTACT_EMAIL_PROVIDER.
var ErrUnknownProvider = errors.New("unknown email provider")

// NewSender builds the email adapter selected by cfg.
// PRE: credentials for the chosen provider are present
// POST: Returns a Sender; SES loads the default AWS credential chain
func NewSender(ctx context.Context, cfg config.Config) (email.Sender, error) {
	switch cfg.EmailProvider {
	case config.ProviderResend:
		return email.NewResendSender(cfg.ResendKey, cfg.Sender), nil
	case config.ProviderSES:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SESRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return email.NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.Sender, cfg.SESConfiguration), nil
	case config.ProviderNoop:
		slog.Warn("email_delivery_disabled", "provider", cfg.EmailProvider)
		return email.NewNoopSender(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.EmailProvider)
}
