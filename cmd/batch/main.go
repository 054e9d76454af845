package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"studio/internal/batch"
	"studio/internal/domain"
	"studio/internal/domain/scenecfg"
	"studio/internal/export"
	"studio/internal/infra"
	"studio/internal/media"
	"studio/internal/providers/genai"
	"studio/internal/session"
	"studio/internal/storage"
	"studio/pkg/zip"
)

type runner struct {
	logger    zerolog.Logger
	cfg       *infra.Config
	in        *storage.FileStore
	out       *storage.FileStore
	store     *session.Store
	scenes    *scenecfg.Catalog
	scheduler *batch.Scheduler
}

func main() {
	var (
		inFlag          string
		outFlag         string
		sceneFlag       string
		descriptionFlag string
		concurrencyFlag int
		noZipFlag       bool
	)
	flag.StringVar(&inFlag, "in", "", "Directory holding the product photos (required)")
	flag.StringVar(&outFlag, "out", "", "Output directory (defaults to STORAGE_PATH)")
	flag.StringVar(&sceneFlag, "scene", string(domain.SceneAuto), "Scene id applied to every photo")
	flag.StringVar(&descriptionFlag, "describe", "", "Optional product name applied to every photo")
	flag.IntVar(&concurrencyFlag, "concurrency", 0, "Items optimized at once (defaults to BATCH_CONCURRENCY)")
	flag.BoolVar(&noZipFlag, "no-zip", false, "Skip writing "+export.ArchiveName)
	flag.Parse()

	_ = godotenv.Load(".env", ".env.local")

	if strings.TrimSpace(inFlag) == "" {
		fmt.Fprintln(os.Stderr, "-in is required")
		os.Exit(2)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	outPath := strings.TrimSpace(outFlag)
	if outPath == "" {
		outPath = cfg.StoragePath
	}
	if abs, err := filepath.Abs(outPath); err == nil {
		outPath = abs
	}

	in, err := storage.NewFileStore(inFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch: open input directory")
	}
	out, err := storage.NewFileStore(outPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch: open output directory")
	}

	scenes, err := scenecfg.Load(cfg.ScenesFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch: load scene catalog")
	}
	optimizer, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("batch: configure gemini client")
	}
	if optimizer.Synthetic() {
		logger.Warn().Str("model", optimizer.Model()).Msg("batch: GEMINI_API_KEY missing, rendering synthetic results")
	}

	store := session.NewStore(session.Options{MaxItems: cfg.MaxItems})
	concurrency := cfg.BatchConcurrency
	if concurrencyFlag > 0 {
		concurrency = concurrencyFlag
	}
	scheduler, err := batch.New(batch.Options{
		Store:       store,
		Scenes:      scenes,
		Compressor:  media.NewCompressor(cfg.CompressThreshold, cfg.CompressMaxDimension, cfg.CompressQuality, logger),
		Optimizer:   optimizer,
		Concurrency: concurrency,
		ItemTimeout: cfg.ItemTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("batch: configure scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &runner{logger: logger, cfg: cfg, in: in, out: out, store: store, scenes: scenes, scheduler: scheduler}
	failed, err := r.run(ctx, sceneFlag, descriptionFlag, !noZipFlag)
	_ = scheduler.Close(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("batch: stopped with error")
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// run optimizes the input directory in chunks that fit one session and
// returns how many photos failed.
func (r *runner) run(ctx context.Context, sceneID, description string, writeZip bool) (int, error) {
	if _, err := r.scenes.Resolve(sceneID); err != nil {
		return 0, err
	}
	keys, err := r.in.List(ctx)
	if err != nil {
		return 0, err
	}

	var completed []domain.Item
	failed := 0
	chunk := r.store.MaxItems()
	for start := 0; start < len(keys); start += chunk {
		end := start + chunk
		if end > len(keys) {
			end = len(keys)
		}
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		r.store.Clear()
		if n := r.load(ctx, keys[start:end], description); n == 0 {
			continue
		}
		report, err := r.scheduler.RunBatch(ctx, batch.Request{SceneID: sceneID})
		if err != nil {
			return failed, err
		}
		for _, id := range report.Failed {
			if it, ok := r.store.Get(id); ok {
				r.logger.Error().Str("file", it.Filename).Str("error", it.Error).Msg("batch: photo failed")
			}
		}
		failed += len(report.Failed)
		completed = append(completed, r.store.Completed()...)
	}

	assets := export.Bundle(completed)
	var total int64
	for _, asset := range assets {
		if _, err := r.out.Write(ctx, asset.Filename, asset.Data); err != nil {
			return failed, err
		}
		total += int64(len(asset.Data))
	}
	if writeZip && len(assets) > 0 {
		archive, err := zip.ArchiveAssets(assets)
		if err != nil {
			return failed, err
		}
		if _, err := r.out.Write(ctx, export.ArchiveName, archive); err != nil {
			return failed, err
		}
	}

	r.logger.Info().
		Int("optimized", len(assets)).
		Int("failed", failed).
		Str("written", humanize.Bytes(uint64(total))).
		Str("out", r.out.BasePath()).
		Msg("batch: finished")
	return failed, nil
}

// load adds the readable images among keys to the session store.
func (r *runner) load(ctx context.Context, keys []string, description string) int {
	added := 0
	for _, key := range keys {
		data, err := r.in.Read(ctx, key)
		if err != nil {
			r.logger.Warn().Err(err).Str("file", key).Msg("batch: skip unreadable file")
			continue
		}
		if int64(len(data)) > r.cfg.MaxUploadSize {
			r.logger.Warn().Str("file", key).Str("size", humanize.Bytes(uint64(len(data)))).Msg("batch: skip oversized file")
			continue
		}
		if !media.IsImage(data, "") {
			r.logger.Debug().Str("file", key).Msg("batch: skip non-image file")
			continue
		}
		id, err := r.store.Add(key, domain.Image{MIME: media.DetectMIME(data, ""), Data: data})
		if err != nil {
			if errors.Is(err, domain.ErrStoreFull) {
				break
			}
			continue
		}
		if description != "" {
			_ = r.store.UpdateDescription(id, description)
		}
		added++
	}
	return added
}
