package config

import (
	"os"
	"path/filepath"
	"testing"
)

var allKeys = []string{
	"HTTP_PORT", "DATABASE_URL", "REDIS_URL", "API_KEY", "LOG_LEVEL",
	"DEFAULT_SOURCE", "COINGECKO_MAX_LOOKBACK_DAYS", "YAHOO_MAX_LOOKBACK_DAYS",
	"SERIES_CACHE_TTL_SECS", "WARM_INTERVAL_SECS", "WARM_WINDOW_DAYS", "WEIGHTS_FILE",
	"TELEGRAM_BOT_TOKEN", "SSH_PORT", "SSH_HOST_KEY_PATH", "SSH_AUTHORIZED_FINGERPRINTS",
	"TRACING_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func writeWeights(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weights.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write weights: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.HTTPPort != 8080 || cfg.SSHPort != 23234 {
		t.Fatalf("unexpected default ports: http=%d ssh=%d", cfg.HTTPPort, cfg.SSHPort)
	}
	if cfg.DefaultSource != "coingecko" {
		t.Fatalf("expected coingecko default, got %s", cfg.DefaultSource)
	}
	if cfg.CoinGeckoMaxLookbackDays != 365 || cfg.YahooMaxLookbackDays != 730 {
		t.Fatalf("unexpected lookbacks: %d %d", cfg.CoinGeckoMaxLookbackDays, cfg.YahooMaxLookbackDays)
	}
	if cfg.SeriesCacheTTLSecs != 600 || cfg.WarmIntervalSecs != 900 || cfg.WarmWindowDays != 365 {
		t.Fatalf("unexpected cache defaults: %+v", cfg)
	}
	if cfg.Weights["BTC"] != 0.5 || len(cfg.Weights) != 5 {
		t.Fatalf("expected default weights, got %v", cfg.Weights)
	}
	if cfg.LogLevel != "info" || cfg.TracingEnabled {
		t.Fatalf("unexpected logging/tracing defaults: %+v", cfg)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("DEFAULT_SOURCE", "Yahoo")
	t.Setenv("SERIES_CACHE_TTL_SECS", "60")
	t.Setenv("SSH_AUTHORIZED_FINGERPRINTS", "SHA256:abc, SHA256:def ,")
	t.Setenv("TRACING_ENABLED", "TRUE")

	cfg := Load()
	if cfg.HTTPPort != 9090 || cfg.DatabaseURL != "postgres://example" || cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.DefaultSource != "yahoo" {
		t.Fatalf("expected yahoo, got %s", cfg.DefaultSource)
	}
	if cfg.SeriesCacheTTLSecs != 60 {
		t.Fatalf("expected ttl 60, got %d", cfg.SeriesCacheTTLSecs)
	}
	if len(cfg.SSHAuthorizedFingerprints) != 2 || cfg.SSHAuthorizedFingerprints[1] != "SHA256:def" {
		t.Fatalf("unexpected fingerprints: %v", cfg.SSHAuthorizedFingerprints)
	}
	if !cfg.TracingEnabled {
		t.Fatal("expected tracing enabled")
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "bad")
	t.Setenv("WARM_WINDOW_DAYS", "-3")
	t.Setenv("DEFAULT_SOURCE", "bloomberg")

	cfg := Load()
	if cfg.HTTPPort != 8080 || cfg.WarmWindowDays != 365 {
		t.Fatalf("invalid values should fall back to defaults: %+v", cfg)
	}
	if cfg.DefaultSource != "coingecko" {
		t.Fatalf("unsupported source should fall back, got %s", cfg.DefaultSource)
	}
}

func TestLoadWeightsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEIGHTS_FILE", writeWeights(t, "weights:\n  btc: 0.6\n  ETH: 0.4\n"))

	cfg := Load()
	if len(cfg.Weights) != 2 || cfg.Weights["BTC"] != 0.6 || cfg.Weights["ETH"] != 0.4 {
		t.Fatalf("expected weights from file, got %v", cfg.Weights)
	}
}

func TestLoadWeightsFileInvalidFallsBack(t *testing.T) {
	tests := map[string]string{
		"bad sum":    "weights:\n  BTC: 0.6\n  ETH: 0.3\n",
		"bad symbol": "weights:\n  DOGE: 1.0\n",
		"bad yaml":   "weights: [",
		"no weights": "other: 1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("WEIGHTS_FILE", writeWeights(t, body))

			cfg := Load()
			if cfg.Weights["BTC"] != 0.5 || len(cfg.Weights) != 5 {
				t.Fatalf("expected default weights, got %v", cfg.Weights)
			}
		})
	}

	clearEnv(t)
	t.Setenv("WEIGHTS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg := Load(); len(cfg.Weights) != 5 {
		t.Fatalf("missing file should fall back, got %v", cfg.Weights)
	}
}
