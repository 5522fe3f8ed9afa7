package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"t5index/internal/bot"
	"t5index/internal/cache"
	"t5index/internal/config"
	"t5index/internal/db"
	"t5index/internal/handler"
	"t5index/internal/job"
	"t5index/internal/logging"
	"t5index/internal/provider"
	"t5index/internal/repository"
	"t5index/internal/service"
	"t5index/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "t5index/docs"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	newSourcesFunc   = func(tracer trace.Tracer, cfg *config.Config) []service.SeriesSource {
		return []service.SeriesSource{
			provider.NewCoinGeckoProvider(tracer, cfg.CoinGeckoMaxLookbackDays),
			provider.NewYahooProvider(tracer, cfg.YahooMaxLookbackDays),
		}
	}
	newCacheWarmerFunc     = job.NewCacheWarmer
	startWarmerFunc        = func(w *job.CacheWarmer, ctx context.Context) { go w.Start(ctx) }
	startTelegramBotFunc   = func(token string, svc *service.IndexService) { bot.StartTelegramBot(token, svc) }
	newRouterFunc          = gin.New
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           T5 Index API
// @version         1.0
// @description     Fixed-weight BTC/ETH/XRP/SOL/ADA composite index rebased to 1000.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
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

	indexService := service.NewIndexService(tracer, cfg.Weights, cfg.DefaultSource, newSourcesFunc(tracer, cfg)...).
		WithDefaultWindow(cfg.WarmWindowDays)
	if cache.Client != nil {
		ttl := time.Duration(cfg.SeriesCacheTTLSecs) * time.Second
		indexService.WithCache(cache.NewSeriesCache(tracer, cache.Client, ttl))
	}
	if db.Pool != nil {
		indexService.WithArchive(
			repository.NewPriceRepository(db.Pool, tracer),
			repository.NewRunRepository(db.Pool, tracer),
		)
	}

	// Background cache warmer, stopped by ctx cancel
	warmer := newCacheWarmerFunc(tracer, indexService, cfg.DefaultSource, cfg.WarmIntervalSecs)
	startWarmerFunc(warmer, ctx)

	startTelegramBotFunc(cfg.TelegramBotToken, indexService)

	h := handler.New(tracer, indexService, cfg.APIKey)

	r := newRouterFunc()
	r.Use(gin.Recovery(), handler.RequestID(), handler.RequestLogger())
	r.Use(otelgin.Middleware(tracing.ServiceName))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	db.Close()

	log.Info().Msg("server exiting")
}
