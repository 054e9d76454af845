package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/batch"
	"studio/internal/domain/scenecfg"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/infra/geoip"
	"studio/internal/media"
	"studio/internal/middleware"
	"studio/internal/providers/genai"
	"studio/internal/session"
)

func main() {
	_ = godotenv.Load(".env", ".env.local")

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	scenes, err := scenecfg.Load(cfg.ScenesFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: load scene catalog")
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	optimizer, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: configure gemini client")
	}
	if optimizer.Synthetic() {
		logger.Warn().Str("model", optimizer.Model()).Msg("api: GEMINI_API_KEY missing, rendering synthetic results")
	}

	previews := session.NewMemoryPreviews()
	store := session.NewStore(session.Options{MaxItems: cfg.MaxItems, Previews: previews})
	scheduler, err := batch.New(batch.Options{
		Store:       store,
		Scenes:      scenes,
		Compressor:  media.NewCompressor(cfg.CompressThreshold, cfg.CompressMaxDimension, cfg.CompressQuality, logger),
		Optimizer:   optimizer,
		Concurrency: cfg.BatchConcurrency,
		ItemTimeout: cfg.ItemTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: configure scheduler")
	}

	app := handlers.NewApp(cfg, logger, store, previews, scheduler, scenes)
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, lookup))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("api: listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown server")
	}
	if err := scheduler.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: in-flight items did not finish")
	}
	logger.Info().Msg("api: stopped")
}
