package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"t5index/internal/cache"
	"t5index/internal/config"
	"t5index/internal/db"
	"t5index/internal/logging"
	"t5index/internal/provider"
	"t5index/internal/repository"
	"t5index/internal/service"
	"t5index/internal/tui"
	"t5index/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	wishlogging "github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	gossh "golang.org/x/crypto/ssh"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initPostgresFunc  = db.InitPostgres
	initRedisFunc     = cache.InitRedis
	initTracerFunc    = tracing.InitTracer
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()
	logging.Init(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx, cfg.TracingEnabled, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	indexService := service.NewIndexService(tracer, cfg.Weights, cfg.DefaultSource,
		provider.NewCoinGeckoProvider(tracer, cfg.CoinGeckoMaxLookbackDays),
		provider.NewYahooProvider(tracer, cfg.YahooMaxLookbackDays),
	).WithDefaultWindow(cfg.WarmWindowDays)
	if cache.Client != nil {
		indexService.WithCache(cache.NewSeriesCache(tracer, cache.Client, time.Duration(cfg.SeriesCacheTTLSecs)*time.Second))
	}
	if db.Pool != nil {
		indexService.WithArchive(repository.NewPriceRepository(db.Pool, tracer), repository.NewRunRepository(db.Pool, tracer))
	}

	if len(cfg.SSHAuthorizedFingerprints) == 0 {
		log.Warn().Msg("SSH_AUTHORIZED_FINGERPRINTS empty, every public key will be rejected")
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)
	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(fingerprintAuth(cfg.SSHAuthorizedFingerprints)),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				model := tui.NewModel(indexService)
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)
				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			wishlogging.Middleware(),
		),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create SSH server")
	}

	if srv != nil {
		go func() {
			log.Info().Str("addr", addr).Msg("SSH server listening")
			if err := srv.ListenAndServe(); err != nil {
				log.Info().Err(err).Msg("SSH server stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down SSH server")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("SSH server shutdown error")
		}
	}
	db.Close()

	log.Info().Msg("SSH server exited")
}

// fingerprintAuth accepts keys whose SHA256 fingerprint is in allowed.
func fingerprintAuth(allowed []string) ssh.PublicKeyHandler {
	set := make(map[string]struct{}, len(allowed))
	for _, fp := range allowed {
		set[fp] = struct{}{}
	}
	return func(ctx ssh.Context, key ssh.PublicKey) bool {
		fingerprint := gossh.FingerprintSHA256(key)
		if _, ok := set[fingerprint]; !ok {
			log.Warn().Str("fingerprint", fingerprint).Msg("SSH auth denied")
			return false
		}
		log.Info().Str("user", ctx.User()).Str("fingerprint", fingerprint).Msg("SSH auth accepted")
		return true
	}
}
