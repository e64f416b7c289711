// Package server builds the application object graph from configuration and
// runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/api"
	"github.com/JakeFAU/mars-scraper/internal/browser"
	"github.com/JakeFAU/mars-scraper/internal/browser/chrome"
	"github.com/JakeFAU/mars-scraper/internal/browser/gorod"
	"github.com/JakeFAU/mars-scraper/internal/clock/system"
	"github.com/JakeFAU/mars-scraper/internal/config"
	collyfetcher "github.com/JakeFAU/mars-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/mars-scraper/internal/id/uuid"
	"github.com/JakeFAU/mars-scraper/internal/logging"
	"github.com/JakeFAU/mars-scraper/internal/mars"
	"github.com/JakeFAU/mars-scraper/internal/metrics"
	"github.com/JakeFAU/mars-scraper/internal/scrape"
	"github.com/JakeFAU/mars-scraper/internal/snapshot"
	gcsstorage "github.com/JakeFAU/mars-scraper/internal/storage/gcs"
	localstorage "github.com/JakeFAU/mars-scraper/internal/storage/local"
	memorystorage "github.com/JakeFAU/mars-scraper/internal/storage/memory"
	pgstore "github.com/JakeFAU/mars-scraper/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/mars-scraper/internal/storage/sqlite"
)

// Browser is a mars.Browser that owns a process and must be closed.
type Browser interface {
	mars.Browser
	Close() error
}

// Option overrides a dependency Build would otherwise construct from config.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	browser Browser
	docs    mars.DocumentFetcher
}

// WithLogger uses logger instead of building one from the logging config.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBrowser uses b instead of launching the configured driver.
func WithBrowser(b Browser) Option {
	return func(o *options) { o.browser = b }
}

// WithDocumentFetcher uses docs instead of the colly fetcher.
func WithDocumentFetcher(docs mars.DocumentFetcher) Option {
	return func(o *options) { o.docs = docs }
}

// App contains the application's dependencies.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	browser    Browser
	store      mars.RecordStore
	storeClose func() error
	gcs        *storage.Client
	scraper    *scrape.Scraper
	service    *scrape.Service
	apiServer  *api.Server
}

// Build creates the application's dependencies. On error everything built so
// far is released.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger, err = logging.New(cfg.Logging.Development, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
		zap.ReplaceGlobals(logger)
	}
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.closeInfrastructure()
		}
	}()

	app.logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("browser_driver", cfg.Browser.Driver),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Bool("archive_enabled", cfg.Archive.Enabled),
	)

	if err = app.setupStore(ctx); err != nil {
		return nil, err
	}
	wrapper, err := app.setupArchive(ctx)
	if err != nil {
		return nil, err
	}

	app.browser = o.browser
	if app.browser == nil {
		if app.browser, err = newBrowser(cfg.Browser, logger.Named("browser")); err != nil {
			return nil, err
		}
	}

	docs := o.docs
	if docs == nil {
		docs = collyfetcher.New(cfg.HTTP, logger.Named("fetcher"))
		app.logger.Info("using colly document fetcher",
			zap.String("user_agent", cfg.HTTP.UserAgent),
			zap.Bool("respect_robots", cfg.HTTP.RespectRobots),
		)
	}

	app.scraper = scrape.New(cfg.Sources, app.browser, docs, system.New(), wrapper, logger.Named("scrape"))
	app.service = scrape.NewService(app.scraper, app.store, logger.Named("service"))
	app.apiServer = api.NewServer(app.service, api.Options{
		RequestTimeout: cfg.RequestTimeout(),
	}, logger.Named("api"))

	return app, nil
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Scraper returns the aggregator built from config.
func (a *App) Scraper() *scrape.Scraper {
	return a.scraper
}

// Service returns the refresh/read service.
func (a *App) Service() *scrape.Service {
	return a.service
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves HTTP until ctx is canceled or SIGINT/SIGTERM arrives, then
// shuts down gracefully and releases every dependency.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve http: %w", err)
	default:
		return nil
	}
}

// Close releases the browser, stores, and flushes the logger.
func (a *App) Close() {
	a.closeInfrastructure()
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure() {
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			a.logger.Warn("browser close failed", zap.Error(err))
		}
		a.browser = nil
	}
	if a.storeClose != nil {
		if err := a.storeClose(); err != nil {
			a.logger.Warn("record store close failed", zap.Error(err))
		}
		a.storeClose = nil
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
		a.gcs = nil
	}
}

func newBrowser(cfg browser.Config, logger *zap.Logger) (Browser, error) {
	switch cfg.Driver {
	case browser.DriverRod:
		b, err := gorod.New(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("rod browser init failed: %w", err)
		}
		logger.Info("using rod browser", zap.Bool("headless", cfg.Headless), zap.Bool("stealth", cfg.Stealth))
		return b, nil
	default:
		b, err := chrome.New(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("chromedp browser init failed: %w", err)
		}
		logger.Info("using chromedp browser", zap.Bool("headless", cfg.Headless))
		return b, nil
	}
}

func (a *App) setupStore(ctx context.Context) error {
	storeCfg := a.cfg.Store
	switch storeCfg.Driver {
	case config.StorePostgres:
		store, err := pgstore.NewRecordStore(ctx, pgstore.RecordStoreConfig{
			DSN:      storeCfg.DSN,
			Table:    storeCfg.Table,
			MaxConns: storeCfg.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("postgres record store init failed: %w", err)
		}
		a.store = store
		a.storeClose = func() error {
			store.Close()
			return nil
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("postgres schema init failed: %w", err)
		}
		a.logger.Info("using postgres record store", zap.String("table", storeCfg.Table))
	case config.StoreSQLite:
		store, err := sqlitestore.Open(ctx, storeCfg.DSN, storeCfg.Table)
		if err != nil {
			return fmt.Errorf("sqlite record store init failed: %w", err)
		}
		a.store = store
		a.storeClose = store.Close
		a.logger.Info("using sqlite record store", zap.String("table", storeCfg.Table))
	default:
		a.logger.Info("using in-memory record store")
		a.store = memorystorage.NewRecordStore()
	}
	return nil
}

// setupArchive returns nil when archiving is disabled.
func (a *App) setupArchive(ctx context.Context) (scrape.SessionWrapper, error) {
	archiveCfg := a.cfg.Archive
	if !archiveCfg.Enabled {
		return nil, nil
	}
	var blobs mars.BlobStore
	switch archiveCfg.Provider {
	case config.ArchiveGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcs = client
		store, err := gcsstorage.New(client, gcsstorage.Config{Bucket: archiveCfg.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		blobs = store
		a.logger.Info("archiving snapshots to GCS", zap.String("bucket", archiveCfg.GCSBucket))
	case config.ArchiveLocal:
		store, err := localstorage.New(localstorage.Config{BaseDir: archiveCfg.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		blobs = store
		a.logger.Info("archiving snapshots locally", zap.String("path", archiveCfg.BaseDir))
	default:
		a.logger.Info("archiving snapshots in memory")
		blobs = memorystorage.NewBlobStore()
	}
	return snapshot.NewRecorder(blobs, uuid.New(), archiveCfg.Prefix, a.logger.Named("snapshot")), nil
}
