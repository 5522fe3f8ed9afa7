package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"t5index/internal/daterange"
	"t5index/internal/domain"
	"t5index/internal/index"
	"t5index/internal/render"
	"t5index/internal/service"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

const buildTimeout = 2 * time.Minute

var errUsage = errors.New("invalid arguments")

// IndexService is what the bot commands need from the index pipeline.
type IndexService interface {
	Build(ctx context.Context, req service.IndexRequest) (*service.IndexResult, error)
	Weights() domain.WeightTable
	DefaultRange(source string) (daterange.Range, error)
}

// StartTelegramBot registers /index and /weights and starts long polling in
// the background. An empty token skips startup.
func StartTelegramBot(token string, svc IndexService) {
	if token == "" {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Error().Err(err).Msg("failed to create Telegram bot")
		return
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/weights", func(c tele.Context) error {
		return c.Send(weightsMessage(svc.Weights()))
	})

	b.Handle("/index", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
		defer cancel()

		png, caption, err := indexReply(ctx, svc, c.Args(), time.Now())
		if err != nil {
			return c.Send(userMessage(err))
		}
		return c.Send(&tele.Photo{File: tele.FromReader(bytes.NewReader(png)), Caption: caption})
	})

	log.Info().Msg("Telegram bot started")
	go b.Start()
}

// parseIndexArgs accepts an optional day count and an optional source name
// in any order.
func parseIndexArgs(args []string) (days int, source string, err error) {
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		if n, convErr := strconv.Atoi(arg); convErr == nil {
			if n <= 0 {
				return 0, "", fmt.Errorf("%w: days must be positive, got %d", errUsage, n)
			}
			days = n
			continue
		}
		source = strings.ToLower(arg)
	}
	return days, source, nil
}

func indexReply(ctx context.Context, svc IndexService, args []string, now time.Time) ([]byte, string, error) {
	days, source, err := parseIndexArgs(args)
	if err != nil {
		return nil, "", err
	}
	r := daterange.Default(days, now)
	if days == 0 {
		if r, err = svc.DefaultRange(source); err != nil {
			return nil, "", err
		}
	}

	result, err := svc.Build(ctx, service.IndexRequest{Source: source, Range: r, Record: true})
	if err != nil {
		return nil, "", err
	}

	png, err := render.IndexChartPNG(result.Index, result.Weights, render.DefaultChartOptions())
	if err != nil {
		return nil, "", err
	}

	summary, _ := render.Summarize(result.Index)
	caption := fmt.Sprintf("T5 Index (%s)\n%s\n%s", result.Source, result.Weights.Title(), summary)
	return png, caption, nil
}

// userMessage turns pipeline errors into chat replies.
func userMessage(err error) string {
	var fetchErr *service.FetchError
	switch {
	case errors.Is(err, errUsage):
		return "Usage: /index [days] [coingecko|yahoo]\n" + err.Error()
	case errors.Is(err, service.ErrUnknownSource):
		return "Unknown source. Use coingecko or yahoo."
	case errors.Is(err, daterange.ErrInvalidRange), errors.Is(err, index.ErrInvalidInput):
		return "Cannot build index: " + err.Error()
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("Price source unavailable for %s, try again later.", fetchErr.Symbol)
	default:
		return "Error building index: " + err.Error()
	}
}

func weightsMessage(weights domain.WeightTable) string {
	var sb strings.Builder
	sb.WriteString("T5 Index weights\n")
	for _, symbol := range weights.Symbols() {
		fmt.Fprintf(&sb, "%s: %.0f%%\n", symbol, weights[symbol]*100)
	}
	return strings.TrimRight(sb.String(), "\n")
}
