package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"t5index/internal/domain"
	"t5index/internal/index"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort    int
	DatabaseURL string
	RedisURL    string
	APIKey      string
	LogLevel    string

	DefaultSource            string
	CoinGeckoMaxLookbackDays int
	YahooMaxLookbackDays     int
	SeriesCacheTTLSecs       int
	WarmIntervalSecs         int
	WarmWindowDays           int
	Weights                  domain.WeightTable

	TelegramBotToken string

	SSHPort                   int
	SSHHostKeyPath            string
	SSHAuthorizedFingerprints []string

	TracingEnabled bool
	OTLPEndpoint   string
}

type weightsFile struct {
	Weights map[string]float64 `yaml:"weights"`
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		APIKey:           os.Getenv("API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		OTLPEndpoint:     strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
	}

	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, price archive and run history disabled")
	}
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.TelegramBotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.HTTPPort = positiveInt("HTTP_PORT", 8080)

	cfg.DefaultSource = strings.ToLower(strings.TrimSpace(os.Getenv("DEFAULT_SOURCE")))
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = "coingecko"
	}
	if cfg.DefaultSource != "coingecko" && cfg.DefaultSource != "yahoo" {
		log.Warn().Str("source", cfg.DefaultSource).Msg("unsupported DEFAULT_SOURCE, defaulting to coingecko")
		cfg.DefaultSource = "coingecko"
	}

	cfg.CoinGeckoMaxLookbackDays = positiveInt("COINGECKO_MAX_LOOKBACK_DAYS", 365)
	cfg.YahooMaxLookbackDays = positiveInt("YAHOO_MAX_LOOKBACK_DAYS", 730)
	cfg.SeriesCacheTTLSecs = positiveInt("SERIES_CACHE_TTL_SECS", 600)
	cfg.WarmIntervalSecs = positiveInt("WARM_INTERVAL_SECS", 900)
	cfg.WarmWindowDays = positiveInt("WARM_WINDOW_DAYS", 365)

	cfg.Weights = domain.DefaultWeights()
	if path := strings.TrimSpace(os.Getenv("WEIGHTS_FILE")); path != "" {
		weights, err := LoadWeights(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("invalid WEIGHTS_FILE, using default T5 weights")
		} else {
			cfg.Weights = weights
		}
	}

	cfg.SSHPort = positiveInt("SSH_PORT", 23234)
	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/t5index_ed25519"
	}
	for _, fp := range strings.Split(os.Getenv("SSH_AUTHORIZED_FINGERPRINTS"), ",") {
		if fp = strings.TrimSpace(fp); fp != "" {
			cfg.SSHAuthorizedFingerprints = append(cfg.SSHAuthorizedFingerprints, fp)
		}
	}

	cfg.TracingEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("TRACING_ENABLED")), "true")

	return cfg
}

// LoadWeights reads a YAML weight table of the form
//
//	weights:
//	  BTC: 0.5
//	  ETH: 0.5
//
// and rejects unsupported symbols and tables that do not sum to 1.
func LoadWeights(path string) (domain.WeightTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f weightsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse weights: %w", err)
	}
	if len(f.Weights) == 0 {
		return nil, fmt.Errorf("no weights in %s", path)
	}

	weights := make(domain.WeightTable, len(f.Weights))
	for symbol, w := range f.Weights {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if !domain.IsSupported(symbol) {
			return nil, fmt.Errorf("unsupported symbol %q", symbol)
		}
		weights[symbol] = w
	}
	if err := index.ValidateWeights(weights); err != nil {
		return nil, err
	}
	return weights, nil
}

func positiveInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Int("default", fallback).Msg("invalid value, using default")
		return fallback
	}
	return n
}
