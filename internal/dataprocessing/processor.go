package dataprocessing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"vehinspect/internal/config"
	apperrors "vehinspect/internal/errors"
	"vehinspect/internal/infrastructure"
	"vehinspect/internal/operations"
	"vehinspect/pkg/contracts/domain"
)

// Whole-file preconditions. They are returned wrapped in an INPUT AppError.
var (
	ErrNoHeader   = errors.New("file has no header row")
	ErrNoDataRows = errors.New("file has no data rows")
)

// Processor turns decoded tables into scored inspection datasets and answers
// filter queries over them.
type Processor struct {
	logger     *slog.Logger
	cfg        config.ProcessingConfig
	aggregator *Aggregator
	tracer     trace.Tracer
	metrics    *infrastructure.PipelineMetrics
	progress   operations.ProgressFunc
	now        func() time.Time
}

// Option customizes a Processor
type Option func(*Processor)

// WithTracer records a span per Process and Query call
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Processor) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithMetrics records pipeline metrics
func WithMetrics(metrics *infrastructure.PipelineMetrics) Option {
	return func(p *Processor) { p.metrics = metrics }
}

// WithProgress receives a snapshot after each stage and each row batch
func WithProgress(fn operations.ProgressFunc) Option {
	return func(p *Processor) { p.progress = fn }
}

// NewProcessor creates a processor
func NewProcessor(logger *slog.Logger, cfg config.ProcessingConfig, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = config.Default().Processing.BatchSize
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	p := &Processor{
		logger:     infrastructure.WithComponent(logger, "dataprocessing"),
		cfg:        cfg,
		aggregator: NewAggregator(cfg),
		tracer:     tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Aggregator returns the aggregator used for statistics
func (p *Processor) Aggregator() *Aggregator {
	return p.aggregator
}

// Process detects columns, scores every data row and aggregates the validated set.
// Only a missing header or missing data rows are fatal. A cancelled ctx
// discards all partial work and returns ctx.Err().
func (p *Processor) Process(ctx context.Context, table domain.Table, source domain.SourceInfo) (data *domain.ProcessedData, err error) {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "dataprocessing.Process",
		trace.WithAttributes(
			attribute.String("file.name", source.FileName),
			attribute.Int("rows.total", len(table.Rows)),
		))
	defer span.End()

	defer func() {
		var invalid int
		if data != nil {
			invalid = data.Metadata.InvalidRows
		}
		p.metrics.RecordRun(ctx, len(table.Rows), invalid, p.now().Sub(start), err)
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !hasHeader(table.Header) {
		return nil, apperrors.NewInputError("cannot process file", ErrNoHeader).
			WithContext("file", source.FileName)
	}
	if len(table.Rows) == 0 {
		return nil, apperrors.NewInputError("cannot process file", ErrNoDataRows).
			WithContext("file", source.FileName)
	}

	processingID := uuid.New().String()
	logger := p.logger.With(slog.String("processing_id", processingID))
	if otelTraceID := infrastructure.TraceIDFromContext(ctx); otelTraceID != "" {
		logger = logger.With(slog.String("otel_trace_id", otelTraceID))
	}
	logger.InfoContext(ctx, "processing inspection file",
		slog.String("file", source.FileName),
		slog.String("sheet", source.SheetName),
		slog.Int("rows", len(table.Rows)),
		slog.Int("workers", p.cfg.Workers))

	cols := DetectColumns(table.Header)
	p.logColumns(ctx, logger, table.Header, cols)
	operations.NewProgressTracker(operations.StageDetect, 1, p.progress).Update(1, "columns detected")

	raw, err := p.buildAll(ctx, table.Rows, cols)
	if err != nil {
		logger.WarnContext(ctx, "processing cancelled", slog.String("error", err.Error()))
		return nil, err
	}
	infrastructure.AddSpanEvent(ctx, "rows.built", attribute.Int("rows", len(raw)))

	validated := ValidInspections(raw)
	data = &domain.ProcessedData{
		Inspections:    validated,
		RawInspections: raw,
		Columns:        cols,
		UniqueValues:   p.aggregator.UniqueValues(validated),
		Stats:          p.aggregator.ComputeStats(validated, len(raw)),
		ItemAnalysis:   p.aggregator.AnalyzeItems(validated),
	}
	operations.NewProgressTracker(operations.StageAggregate, 1, p.progress).Update(1, "statistics computed")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data.Metadata = domain.Metadata{
		ProcessingID:   processingID,
		FileName:       source.FileName,
		FileSize:       source.FileSize,
		SheetName:      source.SheetName,
		ProcessedAt:    start,
		ProcessingTime: p.now().Sub(start),
		TotalRows:      len(raw),
		ValidRows:      len(validated),
		InvalidRows:    len(raw) - len(validated),
	}

	span.SetAttributes(
		attribute.Int("rows.valid", data.Metadata.ValidRows),
		attribute.Int("rows.invalid", data.Metadata.InvalidRows),
	)
	logger.InfoContext(ctx, "inspection file processed",
		slog.Int("valid_rows", data.Metadata.ValidRows),
		slog.Int("invalid_rows", data.Metadata.InvalidRows),
		slog.Float64("average_compliance", data.Stats.AverageCompliance),
		slog.Int("critical_failures", data.Stats.CriticalFailures),
		slog.Duration("duration", data.Metadata.ProcessingTime))

	return data, nil
}

// buildAll scores rows in batches of BatchSize, concurrently when Workers > 1.
// Each batch writes its own slice range, so the output order matches the input.
func (p *Processor) buildAll(ctx context.Context, rows []domain.RawRow, cols domain.ColumnMap) ([]domain.Inspection, error) {
	out := make([]domain.Inspection, len(rows))
	tracker := operations.NewProgressTracker(operations.StageBuild, len(rows), p.progress)
	batches := chunkBounds(len(rows), p.cfg.BatchSize)

	buildBatch := func(b bounds) {
		for i := b.lo; i < b.hi; i++ {
			out[i] = BuildInspection(rows[i], cols, i)
		}
		tracker.Advance(b.hi-b.lo, "rows built")
	}

	if p.cfg.Workers <= 1 {
		for _, b := range batches {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			buildBatch(b)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, b := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			buildBatch(b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Processor) logColumns(ctx context.Context, logger *slog.Logger, header []string, cols domain.ColumnMap) {
	resolved := cols.ResolvedRoles()
	names := make([]string, len(resolved))
	for i, role := range resolved {
		names[i] = string(role)
	}

	logger.InfoContext(ctx, "columns detected",
		slog.String("roles", strings.Join(names, ",")),
		slog.Int("items", len(cols.Items)),
		slog.Int("critical_items", cols.CriticalItems()),
		slog.Int("ignored", len(cols.Ignored)))

	if len(cols.Ignored) > 0 {
		ignored := make([]string, 0, len(cols.Ignored))
		for _, i := range cols.Ignored {
			ignored = append(ignored, strings.TrimSpace(header[i]))
		}
		logger.WarnContext(ctx, "headers ignored, role already assigned",
			slog.Any("headers", ignored))
	}

	if !cols.Inspector.Set || !cols.Vehicle.Set {
		logger.WarnContext(ctx, "inspector or vehicle column not found, rows will be excluded from statistics",
			slog.Bool("inspector_found", cols.Inspector.Set),
			slog.Bool("vehicle_found", cols.Vehicle.Set))
	}
}

// Query filters the validated inspections of data and recomputes statistics
// for the matching subset.
func (p *Processor) Query(ctx context.Context, data *domain.ProcessedData, filters domain.Filters) (view *domain.View, err error) {
	ctx, span := p.tracer.Start(ctx, "dataprocessing.Query")
	defer span.End()

	defer func() {
		matched := 0
		if view != nil {
			matched = len(view.Inspections)
		}
		p.metrics.RecordQuery(ctx, matched, err)
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, apperrors.NewInputError("no processed data to query", nil)
	}
	if err := ValidateFilters(filters); err != nil {
		p.logger.WarnContext(ctx, "rejected filters", slog.String("error", err.Error()))
		return nil, err
	}

	subset := ApplyFilters(data.Inspections, filters)
	view = &domain.View{
		Filters:      filters,
		Inspections:  subset,
		Stats:        p.aggregator.ComputeStats(subset, len(data.RawInspections)),
		ItemAnalysis: p.aggregator.AnalyzeItems(subset),
	}

	span.SetAttributes(attribute.Int("inspections.matched", len(subset)))
	p.logger.DebugContext(ctx, "query executed",
		slog.Int("matched", len(subset)),
		slog.Int("candidates", len(data.Inspections)))

	return view, nil
}

// hasHeader reports whether at least one header cell is non-blank
func hasHeader(header []string) bool {
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			return true
		}
	}
	return false
}
