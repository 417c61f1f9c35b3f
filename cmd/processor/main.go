package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"vehinspect/internal/config"
	"vehinspect/internal/dataprocessing"
	apperrors "vehinspect/internal/errors"
	"vehinspect/internal/files"
	"vehinspect/internal/infrastructure"
	"vehinspect/internal/operations"
	"vehinspect/pkg/contracts"
	"vehinspect/pkg/contracts/domain"
)

// Exit codes
const (
	exitOK         = 0
	exitFailure    = 1
	exitUsageError = 2
)

// options holds the parsed command line
type options struct {
	input       string
	sheet       string
	output      string
	configFile  string
	metricsFile string
	full        bool
	report      bool
	version     bool
	filters     domain.Filters
}

// result is the JSON document written by the processor
type result struct {
	Metadata     domain.Metadata       `json:"metadata"`
	Columns      domain.ColumnMap      `json:"columns"`
	Stats        domain.SystemStats    `json:"stats"`
	ItemAnalysis []domain.ItemAnalysis `json:"item_analysis"`
	UniqueValues domain.UniqueValues   `json:"unique_values"`
	View         *domain.View          `json:"view,omitempty"`
	Report       *domain.Report        `json:"report,omitempty"`
	Inspections  []domain.Inspection   `json:"inspections,omitempty"`
	Raw          []domain.Inspection   `json:"raw_inspections,omitempty"`
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsageError)
	}
	if opts.version {
		fmt.Println(contracts.GetFullVersionString())
		os.Exit(exitOK)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		slog.Error("Processing failed", slog.String("error", err.Error()))
		stop()
		os.Exit(exitCode(err))
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("processor", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.input, "in", "", "inspection file (.xlsx, .xlsm, .csv) or a directory holding them; a directory uses its newest file")
	fs.StringVar(&opts.sheet, "sheet", "", "worksheet name (defaults to the first sheet)")
	fs.StringVar(&opts.output, "out", "", "output JSON file (defaults to stdout)")
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus text metrics to this file after processing")
	fs.BoolVar(&opts.full, "full", false, "include every inspection in the output")
	fs.BoolVar(&opts.report, "report", false, "include vehicle, inspector and monthly roll-ups")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")

	f := &opts.filters
	fs.StringVar(&f.Search, "search", "", "case-insensitive text search over inspector, vehicle, location, contract and observations")
	fs.StringVar(&f.Inspector, "inspector", "", "exact inspector name")
	fs.StringVar(&f.Vehicle, "vehicle", "", "exact vehicle identifier")
	fs.StringVar(&f.Location, "location", "", "exact location")
	fs.StringVar(&f.Contract, "contract", "", "exact contract")
	fs.StringVar(&f.Shift, "shift", "", "exact shift")
	fs.IntVar(&f.Year, "year", 0, "inspection year")
	fs.IntVar(&f.Month, "month", 0, "inspection month (1-12)")
	fs.BoolVar(&f.CriticalItemsOnly, "critical-only", false, "only inspections with critical failures")
	fs.Func("risk", "risk level (Bajo, Medio, Alto, Crítico)", func(s string) error {
		f.RiskLevel = domain.RiskLevel(s)
		return nil
	})
	fs.Func("weekday", "day of week (0=Sunday ... 6=Saturday)", func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		day := time.Weekday(n)
		f.DayOfWeek = &day
		return nil
	})
	fs.Func("min-compliance", "minimum compliance percentage", floatFlag(&f.ComplianceMin))
	fs.Func("max-compliance", "maximum compliance percentage", floatFlag(&f.ComplianceMax))
	fs.Func("from", "earliest inspection date (YYYY-MM-DD or RFC3339)", dateFlag(&f.DateStart))
	fs.Func("to", "latest inspection date, a bare date includes the whole day", dateFlag(&f.DateEnd))
	fs.Func("sort", "sort field (timestamp, compliance, inspector, vehicle, mileage, criticalFailures)", func(s string) error {
		f.SortBy = domain.SortField(s)
		return nil
	})
	fs.Func("order", "sort order (asc, desc)", func(s string) error {
		f.SortOrder = domain.SortOrder(s)
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.input == "" && !opts.version {
		fs.Usage()
		return nil, errors.New("-in is required")
	}
	if err := dataprocessing.ValidateFilters(opts.filters); err != nil {
		return nil, err
	}
	return opts, nil
}

func floatFlag(dst **float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	}
}

func dateFlag(dst **time.Time) func(string) error {
	return func(s string) error {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				*dst = &t
				return nil
			}
		}
		return fmt.Errorf("invalid date %q", s)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(ctx context.Context, opts *options, stdout io.Writer) error {
	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return apperrors.NewConfigError("failed to initialize logger", err)
	}
	defer infrastructure.CloseLogFile()

	// records logged with ctx carry trace_id
	ctx = infrastructure.EnsureTraceID(ctx)

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return apperrors.NewTelemetryError("failed to initialize telemetry", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			infrastructure.WithError(logger, err).WarnContext(ctx, "Telemetry shutdown failed")
		}
	}()

	metrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return apperrors.NewTelemetryError("failed to create metrics", err)
	}

	path, err := files.NewDiscovery("").ResolveInput(opts.input)
	if err != nil {
		return apperrors.NewInputError("cannot resolve input", err).WithContext("input", opts.input)
	}
	table, source, err := files.ReadTable(path, opts.sheet)
	if err != nil {
		return err
	}

	processor := dataprocessing.NewProcessor(logger, cfg.Processing,
		dataprocessing.WithTracer(providers.Tracer),
		dataprocessing.WithMetrics(metrics),
		dataprocessing.WithProgress(progressLogger(ctx, logger)),
	)

	data, err := processor.Process(ctx, table, source)
	if err != nil {
		return err
	}

	out := result{
		Metadata:     data.Metadata,
		Columns:      data.Columns,
		Stats:        data.Stats,
		ItemAnalysis: data.ItemAnalysis,
		UniqueValues: data.UniqueValues,
	}
	if opts.full {
		out.Inspections = data.Inspections
		out.Raw = data.RawInspections
	}

	selected := data.Inspections
	if !opts.filters.IsZero() {
		view, err := processor.Query(ctx, data, opts.filters)
		if err != nil {
			return err
		}
		out.View = view
		selected = view.Inspections
	}
	if opts.report {
		report := processor.Aggregator().Report(selected)
		out.Report = &report
	}

	manager := files.NewManager("", logger)
	if err := writeResult(manager, opts.output, stdout, out); err != nil {
		return err
	}

	if opts.metricsFile != "" {
		if err := manager.WriteFile(opts.metricsFile, providers.WriteMetrics); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	logger.InfoContext(ctx, "Processing completed",
		slog.String("file", source.FileName),
		slog.Int("valid_rows", data.Metadata.ValidRows),
		slog.Int("invalid_rows", data.Metadata.InvalidRows),
		slog.Duration("duration", data.Metadata.ProcessingTime))
	return nil
}

func writeResult(manager *files.Manager, path string, stdout io.Writer, out result) error {
	encode := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	if path == "" {
		return encode(stdout)
	}
	return manager.WriteFile(path, encode)
}

// progressLogger logs stage completion at info level and row batches, with an ETA, at debug level
func progressLogger(ctx context.Context, logger *slog.Logger) operations.ProgressFunc {
	return func(p operations.Progress) {
		attrs := []any{
			slog.String("stage", p.Stage),
			slog.Int("current", p.Current),
			slog.Int("total", p.Total),
			slog.Float64("percentage", p.Percentage),
			slog.String("message", p.Message),
		}
		if p.Complete {
			logger.InfoContext(ctx, "Progress", append(attrs, slog.Duration("elapsed", p.Elapsed))...)
			return
		}
		logger.DebugContext(ctx, "Progress", append(attrs, slog.String("eta", p.ETA))...)
	}
}

func exitCode(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrTypeInput, apperrors.ErrTypeValidation:
		return exitUsageError
	}
	return exitFailure
}
