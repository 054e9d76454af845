package infra

import "testing"

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "GEMINI_API_KEY", "GEMINI_MODEL", "MAX_ITEMS",
		"BATCH_CONCURRENCY", "ITEM_TIMEOUT_SECONDS", "COMPRESS_THRESHOLD",
		"COMPRESS_MAX_DIMENSION", "COMPRESS_QUALITY", "MAX_UPLOAD_SIZE",
		"DEFAULT_LOCALE", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" || cfg.AppEnv != "development" {
		t.Fatalf("unexpected defaults: port=%q env=%q", cfg.Port, cfg.AppEnv)
	}
	if cfg.MaxItems != 10 || cfg.BatchConcurrency != 3 {
		t.Fatalf("unexpected limits: items=%d concurrency=%d", cfg.MaxItems, cfg.BatchConcurrency)
	}
	if cfg.CompressThreshold != 1<<20 {
		t.Fatalf("CompressThreshold mismatch: got %d", cfg.CompressThreshold)
	}
	if cfg.MaxUploadSize != 10_000_000 {
		t.Fatalf("MaxUploadSize mismatch: got %d", cfg.MaxUploadSize)
	}
	if cfg.CompressMaxDimension != 1536 || cfg.CompressQuality != 80 {
		t.Fatalf("unexpected compression defaults: %d/%d", cfg.CompressMaxDimension, cfg.CompressQuality)
	}
	if cfg.GeminiModel != "gemini-2.5-flash-image" {
		t.Fatalf("GeminiModel mismatch: %q", cfg.GeminiModel)
	}
	if !cfg.SyntheticOptimizer() {
		t.Fatalf("expected synthetic optimizer without API key")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GEMINI_API_KEY", "abc")
	t.Setenv("COMPRESS_THRESHOLD", "512 KiB")
	t.Setenv("MAX_UPLOAD_SIZE", "20MB")
	t.Setenv("BATCH_CONCURRENCY", "5")
	t.Setenv("DEFAULT_LOCALE", "ZH")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, http://127.0.0.1:5173")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CompressThreshold != 512*1024 || cfg.MaxUploadSize != 20_000_000 {
		t.Fatalf("size overrides not applied: %d %d", cfg.CompressThreshold, cfg.MaxUploadSize)
	}
	if cfg.BatchConcurrency != 5 || cfg.DefaultLocale != "zh" || cfg.SyntheticOptimizer() {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://127.0.0.1:5173" {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"COMPRESS_THRESHOLD", "lots"},
		{"MAX_UPLOAD_SIZE", "0"},
		{"COMPRESS_QUALITY", "150"},
		{"BATCH_CONCURRENCY", "-1"},
		{"BATCH_CONCURRENCY", "x"},
		{"MAX_ITEMS", "abc"},
		{"ITEM_TIMEOUT_SECONDS", "soon"},
		{"RATE_LIMIT_PER_MINUTE", "3.5"},
		{"DEFAULT_LOCALE", "fr"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}
