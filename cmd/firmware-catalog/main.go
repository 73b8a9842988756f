package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "firmware-catalog/docs"
	"firmware-catalog/internal/api"
	"firmware-catalog/internal/api/handlers"
	"firmware-catalog/internal/catalog"
	"firmware-catalog/internal/config"
	"firmware-catalog/internal/db"
	"firmware-catalog/internal/feed"
	"firmware-catalog/internal/gate"
	"firmware-catalog/internal/identity"
	"firmware-catalog/internal/logging"
	"firmware-catalog/internal/metrics"
	"firmware-catalog/internal/session"
	"firmware-catalog/internal/webhook"

	"github.com/rs/zerolog/log"
)

// @title        Firmware Catalog API
// @version      1.0
// @description  Browse OpenWrt and ImmortalWrt release assets and gate repeated downloads per client.
// @BasePath     /api
func main() {
	cfgPath := os.Getenv("FWC_CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}

	// Initialize logger
	if err := logging.Setup(cfg); err != nil {
		log.Fatal().Err(err).Msg("Logger setup failed")
	}

	log.Info().
		Str("version", "1.0.0").
		Str("listen_addr", cfg.ListenAddr).
		Str("feed_url", cfg.Feed.URL).
		Msg("Firmware Catalog starting")

	// DB + migrations
	log.Info().Str("db_path", cfg.DBPath).Msg("Opening database")
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("Database setup failed")
	}
	defer func() { _ = database.Close() }()

	// Download gate
	var store gate.Store
	switch cfg.Gate.Store {
	case "memory":
		store = gate.NewMemoryStore()
	default:
		store = &gate.SQLiteStore{DB: database}
	}
	g := gate.New(store, time.Duration(cfg.Gate.CooldownSec)*time.Second)
	log.Info().
		Str("store", cfg.Gate.Store).
		Dur("cooldown", g.Cooldown).
		Msg("Download gate ready")

	// Webhook layer
	whRepo := &webhook.SQLiteRepo{DB: database}
	whSvc := &webhook.Service{
		Repo:       whRepo,
		Secret:     cfg.Webhooks.Secret,
		TimeoutSec: cfg.Webhooks.TimeoutSec,
		Retries:    cfg.Webhooks.Retries,
	}

	// Session
	resolver := identity.NewResolver(cfg.Identity.URL, time.Duration(cfg.Identity.TimeoutSec)*time.Second)
	resolver.Observe = metrics.RecordIdentityLookup
	feedClient := feed.New(cfg.Feed.URL, time.Duration(cfg.Feed.TimeoutSec)*time.Second)

	ctrl := session.New(feedClient, resolver, g)
	ctrl.Builder = catalog.Builder{Normalizer: catalog.NewNormalizer(cfg.Catalog.VanityTags)}
	ctrl.Notifier = whSvc
	ctrl.Tick = time.Duration(cfg.Gate.TickMs) * time.Millisecond
	ctrl.SetFilter(catalog.Filter{Sort: catalog.ParseSortKey(cfg.Catalog.Sort)})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A failed first load is reported through the catalog status; the
	// reload endpoint retries it.
	if err := ctrl.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial catalog load did not produce builds")
	}

	router := api.NewRouter(
		&handlers.CatalogHandler{Session: ctrl},
		&handlers.WebhookHandler{Repo: whRepo},
	)

	// Apply middlewares: metrics, logging, then CORS
	handler := metrics.Middleware(api.PathLabel)(router)
	handler = logging.HTTPLogger(handler)
	handler = api.CORSMiddleware(cfg.CORS.AllowedOrigins)(handler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("listen_addr", cfg.ListenAddr).
			Msg("Firmware Catalog listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	ctrl.Close()
	whSvc.Wait()
}
