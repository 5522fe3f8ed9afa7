package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"t5index/internal/config"
	"t5index/internal/daterange"
	"t5index/internal/domain"
	"t5index/internal/logging"
	"t5index/internal/provider"
	"t5index/internal/render"
	"t5index/internal/service"
	"t5index/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"
)

// indexBuilder is the slice of the index service the CLI drives.
type indexBuilder interface {
	Build(ctx context.Context, req service.IndexRequest) (*service.IndexResult, error)
	Weights() domain.WeightTable
	DefaultSource() string
	DefaultRange(source string) (daterange.Range, error)
	MaxLookbackDays(source string) (int, error)
}

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	newServiceFunc = func(cfg *config.Config) indexBuilder {
		tracer := noop.NewTracerProvider().Tracer(tracing.ServiceName)
		return service.NewIndexService(tracer, cfg.Weights, cfg.DefaultSource,
			provider.NewCoinGeckoProvider(tracer, cfg.CoinGeckoMaxLookbackDays),
			provider.NewYahooProvider(tracer, cfg.YahooMaxLookbackDays),
		).WithDefaultWindow(cfg.WarmWindowDays)
	}
	writeFileFunc = os.WriteFile
	nowFunc       = time.Now
)

var errPartialRange = errors.New("--start and --end must be given together")

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var svc indexBuilder

	root := &cobra.Command{
		Use:   "t5index",
		Short: "Build the T5 crypto index from the command line",
		Long: `t5index fetches daily USD prices for BTC, ETH, XRP, SOL and ADA,
combines them with fixed weights and rebases the result to 1000.

Examples:
  t5index weights
  t5index build --start 2025-01-01 --end 2025-06-30
  t5index build --source yahoo --out t5.png --rows 5`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadEnvFunc()
			cfg := loadConfigFunc()
			logging.Init(cfg.LogLevel)
			svc = newServiceFunc(cfg)
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	root.AddCommand(newBuildCmd(out, func() indexBuilder { return svc }))
	root.AddCommand(newWeightsCmd(out, func() indexBuilder { return svc }))
	return root
}

type buildFlags struct {
	source  string
	start   string
	end     string
	outPath string
	rows    int
	days    int
}

func newBuildCmd(out io.Writer, svc func() indexBuilder) *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the index once, print asset tables and write the chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), out, svc(), f)
		},
	}
	cmd.Flags().StringVar(&f.source, "source", "", "Price source (coingecko|yahoo), defaults to DEFAULT_SOURCE")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "End date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.outPath, "out", "chart.png", "Chart output path, empty to skip")
	cmd.Flags().IntVar(&f.rows, "rows", 5, "Rows printed from each end of every asset series")
	cmd.Flags().IntVar(&f.days, "days", 0, "Window length when no dates are given, 0 for WARM_WINDOW_DAYS")
	return cmd
}

func runBuild(ctx context.Context, out io.Writer, svc indexBuilder, f buildFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	source := f.source
	if source == "" {
		source = svc.DefaultSource()
	}
	r, err := buildRange(svc, source, f)
	if err != nil {
		return err
	}

	result, err := svc.Build(ctx, service.IndexRequest{Source: source, Range: r, Record: true})
	if err != nil {
		return err
	}
	log.Info().Str("source", result.Source).Int("points", len(result.Index)).Msg("index built")

	fmt.Fprintf(out, "T5 Index: %s\n", result.Weights.Title())
	fmt.Fprintf(out, "source %s, %s\n\n", result.Source, result.Range)
	rows := f.rows
	if rows <= 0 {
		rows = render.DefaultRows
	}
	for _, symbol := range result.Weights.Active() {
		series := result.Series[symbol]
		fmt.Fprintf(out, "%s first %d\n%s\n", symbol, rows, render.ObservationTable(symbol, render.Head(series, rows)))
		fmt.Fprintf(out, "%s last %d\n%s\n\n", symbol, rows, render.ObservationTable(symbol, render.Tail(series, rows)))
	}
	if summary, ok := render.Summarize(result.Index); ok {
		fmt.Fprintln(out, summary.String())
	}

	if f.outPath == "" {
		return nil
	}
	png, err := render.IndexChartPNG(result.Index, result.Weights, render.DefaultChartOptions())
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if err := writeFileFunc(f.outPath, png, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	fmt.Fprintf(out, "chart written to %s\n", f.outPath)
	return nil
}

func buildRange(svc indexBuilder, source string, f buildFlags) (daterange.Range, error) {
	switch {
	case f.start == "" && f.end == "" && f.days <= 0:
		return svc.DefaultRange(source)
	case f.start == "" && f.end == "":
		days := f.days
		if lookback, err := svc.MaxLookbackDays(source); err == nil && lookback < days {
			days = lookback
		}
		return daterange.Default(days, nowFunc()), nil
	case f.start == "" || f.end == "":
		return daterange.Range{}, errPartialRange
	default:
		return daterange.Parse(f.start, f.end)
	}
}

func newWeightsCmd(out io.Writer, svc func() indexBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "weights",
		Short: "Print the index weight table",
		RunE: func(cmd *cobra.Command, args []string) error {
			weights := svc().Weights()
			fmt.Fprintln(out, render.WeightsTable(weights))
			fmt.Fprintln(out, weights.Title())
			return nil
		},
	}
}
