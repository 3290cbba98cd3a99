package app

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

	httpapi "github.com/milan-stefanik/flyhigh/internal/blog/http"
	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/milan-stefanik/flyhigh/internal/blog/media/s3blob"
	"github.com/milan-stefanik/flyhigh/internal/blog/service"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
	"github.com/milan-stefanik/flyhigh/internal/blog/store/drivers/postgres"
	"github.com/milan-stefanik/flyhigh/internal/blog/store/drivers/sqlite"
	"github.com/milan-stefanik/flyhigh/pkg/cryptox"
	"github.com/milan-stefanik/flyhigh/pkg/httpx"
	"github.com/milan-stefanik/flyhigh/pkg/jwtx"
	"github.com/milan-stefanik/flyhigh/pkg/mailx"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

const tokenIssuer = "flyhigh"

// Application encapsulates the blog with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	blobs  media.BlobStore
	mailer mailx.Sender
	hasher *cryptox.Hasher
	signer *jwtx.HS256
	media  *media.Pipeline

	// Services
	authService         *service.AuthService
	postService         *service.PostService
	accountService      *service.AccountService
	resetService        *service.ResetService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "flyhigh",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initSecurity(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initBlobs(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initMailer(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("flyhigh starting", "addr", app.server.Addr, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down flyhigh...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("flyhigh stopped")
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.FileDSN(app.cfg.DatabaseURL))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initSecurity sets up password hashing and the reset token signer.
func (app *Application) initSecurity() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	secret := app.cfg.SecretKey
	if secret == "" {
		secret, err = cryptox.RandomHex(32)
		if err != nil {
			return fmt.Errorf("failed to generate secret key: %w", err)
		}
		app.logger.Warn("SECRET_KEY not set, reset links will not survive a restart")
	}

	app.signer, err = jwtx.NewHS256([]byte(secret), tokenIssuer)
	if err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}
	return nil
}

// initBlobs picks where image bytes live.
func (app *Application) initBlobs(ctx context.Context) error {
	switch app.cfg.BlobBackend {
	case "s3":
		s, err := s3blob.New(ctx, s3blob.Config{
			Bucket:    app.cfg.S3Bucket,
			Prefix:    app.cfg.S3Prefix,
			Region:    app.cfg.S3Region,
			Endpoint:  app.cfg.S3Endpoint,
			AccessKey: app.cfg.S3AccessKey,
			SecretKey: app.cfg.S3SecretKey,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize s3 blob store: %w", err)
		}
		app.blobs = s
	default:
		app.blobs = store.NewBlobStoreAdapter(app.db)
	}

	app.media = media.NewPipeline(app.blobs, app.cfg.TempDir, app.logger)
	app.logger.Info("blob backend ready", "backend", app.cfg.BlobBackend)
	return nil
}

// initMailer sends through SMTP when a relay is configured and logs
// messages otherwise.
func (app *Application) initMailer() error {
	if app.cfg.MailHost == "" {
		app.logger.Warn("MAIL_HOST not set, outgoing mail will only be logged")
		app.mailer = mailx.LogSender{Logger: app.logger}
		return nil
	}

	sender, err := mailx.NewSMTPSender(mailx.SMTPConfig{
		Host:     app.cfg.MailHost,
		Port:     app.cfg.MailPort,
		Username: app.cfg.MailUsername,
		Password: app.cfg.MailPassword,
		From:     app.cfg.MailFrom,
		SSL:      app.cfg.MailPort == 465,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	app.mailer = sender
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:      app.db,
		Hasher:     app.hasher,
		SessionTTL: app.cfg.SessionTTL,
	}
	app.postService = &service.PostService{Store: app.db, Media: app.media}
	app.accountService = &service.AccountService{Store: app.db, Media: app.media}
	app.userService = &service.UserService{Store: app.db}
	app.resetService = &service.ResetService{
		Store:   app.db,
		Hasher:  app.hasher,
		Signer:  app.signer,
		Mailer:  app.mailer,
		BaseURL: app.cfg.PublicBaseURL,
		TTL:     app.cfg.ResetTokenTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.media,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.OrphanGracePeriod,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.Config{
		BuildVersion:   BuildVersion,
		SecureCookies:  app.cfg.CookieSecure,
		SessionTTL:     app.cfg.SessionTTL,
		MaxUploadBytes: app.cfg.MaxUploadBytes,
	}, app.db, app.logger)

	router.Limits = httpapi.Limits{
		Strict:   httpx.ParseRateLimitFromEnv("STRICT", httpx.StrictLimit),
		Moderate: httpx.ParseRateLimitFromEnv("MODERATE", httpx.ModerateLimit),
		Lenient:  httpx.ParseRateLimitFromEnv("LENIENT", httpx.LenientLimit),
		Public:   httpx.ParseRateLimitFromEnv("PUBLIC", httpx.PublicLimit),
	}.TrustProxyHeaders(app.cfg.TrustProxy)

	router.AuthService = app.authService
	router.PostService = app.postService
	router.AccountService = app.accountService
	router.ResetService = app.resetService
	router.UserService = app.userService
	router.Media = app.media
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
