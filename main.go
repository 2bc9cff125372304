// Command telecarousel is the main entrypoint for the video relay bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations, falling back to
//     in-memory storage for the whole run when the database is unreachable.
//   - Starts the background channel indexer that backfills the video catalog.
//   - Runs the Telegram update loop (long polling or webhook).
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/telecarousel/bot"
	"github.com/onnwee/telecarousel/config"
	"github.com/onnwee/telecarousel/db"
	"github.com/onnwee/telecarousel/server"
	"github.com/onnwee/telecarousel/store"
	"github.com/onnwee/telecarousel/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config (fatal when required identifiers are missing)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdownTracing, err := telemetry.InitTracing("telecarousel", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage: durable when DB_DSN is set and reachable, otherwise in-memory
	// for the remainder of the run. No reconnection is attempted.
	var (
		catalog     store.CatalogStore
		state       store.PlaybackStore
		database    *sql.DB
		storageMode = "memory"
	)
	if cfg.DBDsn != "" {
		if d, err := connectAndMigrate(ctx, cfg.DBDsn); err != nil {
			slog.Warn("database unavailable, falling back to in-memory storage", slog.Any("err", err))
		} else {
			database = d
			storageMode = "postgres"
		}
	} else {
		slog.Info("no DB_DSN provided, using in-memory storage")
	}
	if database != nil {
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		pgCatalog := store.NewPostgresCatalog(database)
		if err := pgCatalog.Load(ctx); err != nil {
			slog.Error("catalog load failed", slog.Any("err", err))
			os.Exit(1)
		}
		catalog = pgCatalog
		state = store.NewPostgresPlayback(database)
	} else {
		catalog = store.NewMemoryCatalog()
		state = store.NewMemoryPlayback()
	}
	telemetry.SetCatalogSize(catalog.Size())
	slog.Info("storage ready", slog.String("mode", storageMode), slog.Int("videos", catalog.Size()))

	// Telegram bot + relay core
	tgBot, err := bot.New(cfg, catalog, state)
	if err != nil {
		slog.Error("telegram connect failed", slog.Any("err", err))
		os.Exit(1)
	}
	if database != nil {
		dbc := database
		tgBot.OnScanComplete = func(cctx context.Context) {
			if err := db.SetKV(cctx, dbc, "scan_last_complete", time.Now().UTC().Format(time.RFC3339)); err != nil {
				slog.Warn("scan bookkeeping failed", slog.Any("err", err))
			}
		}
	}

	// Background catalog backfill, started once at boot. Admin /rescan
	// re-invokes it; re-discovered ids are no-ops on the catalog.
	indexer := tgBot.Indexer()
	go func() {
		indexer.Run(ctx)
		if tgBot.OnScanComplete != nil {
			tgBot.OnScanComplete(ctx)
		}
	}()

	// HTTP server (health/status/metrics, webhook in webhook mode)
	handlers := &server.Handlers{
		DB:          database,
		Catalog:     catalog,
		Indexer:     indexer,
		StorageMode: storageMode,
		StartedAt:   time.Now(),
	}
	if cfg.WebhookURL != "" {
		handlers.Webhook = tgBot.WebhookHandler()
	}
	go func() {
		if err := server.Start(ctx, handlers, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Telegram update loop (blocks until shutdown)
	if err := tgBot.Run(ctx); err != nil {
		slog.Error("bot exited with error", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutting down")
}

// connectAndMigrate opens the database, verifies connectivity, and applies migrations.
func connectAndMigrate(ctx context.Context, dsn string) (*sql.DB, error) {
	d, err := db.Connect(dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.PingContext(pingCtx); err != nil {
		_ = d.Close()
		return nil, err
	}
	if err := db.Migrate(ctx, d); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}
