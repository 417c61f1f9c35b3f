package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vehinspect/internal/errors"
	"vehinspect/internal/infrastructure"
	"vehinspect/internal/operations"
	"vehinspect/internal/shared/testutil"
	"vehinspect/pkg/contracts/domain"
)

const inspectionCSV = "Marca temporal,Nombre del inspector,Placa,Kilometraje,**Luces,Frenos,Observaciones\n" +
	"15/03/2024 08:30,Ana,ABC123,125400,CUMPLE,CUMPLE,\n" +
	"16/03/2024 09:00,Luis,XYZ789,98765,NO CUMPLE,CUMPLE,Faro roto\n" +
	"17/03/2024 10:00,,XYZ789,98800,CUMPLE,NO CUMPLE,\n"

// output mirrors the parts of result the tests look at
type output struct {
	Metadata domain.Metadata    `json:"metadata"`
	Stats    domain.SystemStats `json:"stats"`
	View     *struct {
		Inspections []domain.Inspection `json:"inspections"`
		Stats       domain.SystemStats  `json:"stats"`
	} `json:"view"`
	Report *struct {
		Vehicles []domain.GroupSummary `json:"vehicles"`
	} `json:"report"`
	Inspections []domain.Inspection `json:"inspections"`
	Raw         []domain.Inspection `json:"raw_inspections"`
}

// setupRun writes the inspection export and a config that sends logs to a file
func setupRun(t *testing.T) (input, configFile, logFile string) {
	t.Helper()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	dir := t.TempDir()
	input = filepath.Join(dir, "inspecciones.csv")
	require.NoError(t, os.WriteFile(input, []byte(inspectionCSV), 0644))

	logFile = filepath.Join(dir, "logs", "processor.log")
	configFile = filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`logging:
  level: debug
  format: json
  output: file
  file_path: %q
processing:
  batch_size: 2
  workers: 1
telemetry:
  service_name: vehinspect-test
  enable_metrics: true
  trace_exporter: none
`, logFile)
	require.NoError(t, os.WriteFile(configFile, []byte(cfg), 0644))
	return input, configFile, logFile
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		errType  apperrors.ErrorType
		validate func(*testing.T, *options)
	}{
		{
			name: "input only",
			args: []string{"-in", "export.xlsx"},
			validate: func(t *testing.T, o *options) {
				assert.Equal(t, "export.xlsx", o.input)
				assert.True(t, o.filters.IsZero())
				assert.False(t, o.full)
			},
		},
		{
			name: "filters",
			args: []string{
				"-in", "exports", "-sheet", "Respuestas", "-full", "-report",
				"-risk", "Alto", "-weekday", "1", "-min-compliance", "50,5", "-max-compliance", "90",
				"-from", "2024-03-01", "-to", "2024-03-31T23:00:00Z", "-sort", "compliance", "-order", "asc",
				"-inspector", "Ana", "-critical-only",
			},
			validate: func(t *testing.T, o *options) {
				f := o.filters
				assert.Equal(t, "Respuestas", o.sheet)
				assert.True(t, o.full)
				assert.True(t, o.report)
				assert.Equal(t, domain.RiskHigh, f.RiskLevel)
				require.NotNil(t, f.DayOfWeek)
				assert.Equal(t, time.Monday, *f.DayOfWeek)
				require.NotNil(t, f.ComplianceMin)
				assert.InDelta(t, 50.5, *f.ComplianceMin, 1e-9)
				require.NotNil(t, f.ComplianceMax)
				assert.InDelta(t, 90, *f.ComplianceMax, 1e-9)
				require.NotNil(t, f.DateStart)
				assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *f.DateStart)
				require.NotNil(t, f.DateEnd)
				assert.Equal(t, 23, f.DateEnd.Hour())
				assert.Equal(t, domain.SortField("compliance"), f.SortBy)
				assert.Equal(t, domain.SortOrder("asc"), f.SortOrder)
				assert.Equal(t, "Ana", f.Inspector)
				assert.True(t, f.CriticalItemsOnly)
			},
		},
		{
			name: "version without input",
			args: []string{"-version"},
			validate: func(t *testing.T, o *options) {
				assert.True(t, o.version)
			},
		},
		{name: "missing input", args: []string{"-full"}, wantErr: true},
		{name: "bad weekday", args: []string{"-in", "x.csv", "-weekday", "lunes"}, wantErr: true},
		{name: "bad date", args: []string{"-in", "x.csv", "-from", "03/01/2024"}, wantErr: true},
		{name: "bad compliance", args: []string{"-in", "x.csv", "-min-compliance", "mucho"}, wantErr: true},
		{name: "unknown risk", args: []string{"-in", "x.csv", "-risk", "Extremo"}, wantErr: true, errType: apperrors.ErrTypeValidation},
		{name: "weekday out of range", args: []string{"-in", "x.csv", "-weekday", "9"}, wantErr: true, errType: apperrors.ErrTypeValidation},
		{name: "compliance out of range", args: []string{"-in", "x.csv", "-max-compliance", "120"}, wantErr: true, errType: apperrors.ErrTypeValidation},
		{name: "unknown sort", args: []string{"-in", "x.csv", "-sort", "color"}, wantErr: true, errType: apperrors.ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args, io.Discard)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errType != "" {
					assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
				}
				return
			}
			require.NoError(t, err)
			tt.validate(t, opts)
		})
	}
}

func TestParseFlags_Help(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseFlags([]string{"-h"}, &stderr)
	assert.True(t, errors.Is(err, flag.ErrHelp))
	assert.Contains(t, stderr.String(), "-in")
}

func TestRun_Summary(t *testing.T) {
	input, configFile, logFile := setupRun(t)
	metricsFile := filepath.Join(t.TempDir(), "metrics.prom")

	var stdout bytes.Buffer
	err := run(context.Background(), &options{input: input, configFile: configFile, metricsFile: metricsFile}, &stdout)
	require.NoError(t, err)

	var out output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))

	assert.Equal(t, "inspecciones.csv", out.Metadata.FileName)
	assert.Equal(t, 3, out.Metadata.TotalRows)
	assert.Equal(t, 2, out.Metadata.ValidRows)
	assert.Equal(t, 1, out.Metadata.InvalidRows)
	assert.NotEmpty(t, out.Metadata.ProcessingID)

	assert.Equal(t, 2, out.Stats.TotalInspections)
	assert.Equal(t, 3, out.Stats.TotalRawRecords)
	assert.InDelta(t, 75, out.Stats.AverageCompliance, 1e-9)
	assert.Equal(t, 1, out.Stats.CriticalFailures)
	assert.Nil(t, out.View)
	assert.Nil(t, out.Report)
	assert.Empty(t, out.Inspections, "inspections only with -full")

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "inspection_processing_runs_total")
	assert.Contains(t, string(metrics), "inspection_rows_processed_total")

	logs, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logs), `"msg":"Processing completed"`)
	assert.Contains(t, string(logs), `"trace_id"`)
	assert.Contains(t, string(logs), `"msg":"Progress"`)
}

func TestRun_FilteredReportToFile(t *testing.T) {
	input, configFile, _ := setupRun(t)
	outFile := filepath.Join(t.TempDir(), "out", "result.json")

	opts := &options{
		input:      filepath.Dir(input),
		configFile: configFile,
		output:     outFile,
		full:       true,
		report:     true,
		filters:    domain.Filters{RiskLevel: domain.RiskCritical},
	}
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), opts, &stdout))
	assert.Zero(t, stdout.Len(), "result goes to the output file")

	content, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var out output
	require.NoError(t, json.Unmarshal(content, &out))

	require.NotNil(t, out.View)
	require.Len(t, out.View.Inspections, 1)
	luis := out.View.Inspections[0]
	assert.Equal(t, "Luis", luis.Inspector)
	assert.Equal(t, 98765, luis.Mileage)
	assert.Equal(t, 1, luis.CriticalFailures)
	assert.Equal(t, domain.RiskCritical, luis.RiskLevel)
	assert.Equal(t, 1, out.View.Stats.TotalInspections)

	require.NotNil(t, out.Report)
	require.Len(t, out.Report.Vehicles, 1, "report covers the filtered view")
	assert.Equal(t, "XYZ789", out.Report.Vehicles[0].Key)

	assert.Len(t, out.Inspections, 2)
	assert.Len(t, out.Raw, 3)
}

func TestRun_Errors(t *testing.T) {
	_, configFile, _ := setupRun(t)

	t.Run("missing input", func(t *testing.T) {
		err := run(context.Background(), &options{input: filepath.Join(t.TempDir(), "nada.csv"), configFile: configFile}, io.Discard)
		require.Error(t, err)
		assert.Equal(t, exitUsageError, exitCode(err))
	})

	t.Run("no data rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vacio.csv")
		require.NoError(t, os.WriteFile(path, []byte("Marca temporal,Placa\n"), 0644))

		err := run(context.Background(), &options{input: path, configFile: configFile}, io.Discard)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInput))
		assert.Equal(t, exitUsageError, exitCode(err))
	})

	t.Run("bad config file", func(t *testing.T) {
		err := run(context.Background(), &options{input: "x.csv", configFile: filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard)
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		input, configFile, _ := setupRun(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := run(ctx, &options{input: input, configFile: configFile}, io.Discard)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, exitFailure, exitCode(err))
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitUsageError, exitCode(apperrors.NewInputError("bad", nil)))
	assert.Equal(t, exitUsageError, exitCode(apperrors.NewValidationError("bad", nil)))
	assert.Equal(t, exitFailure, exitCode(apperrors.NewParsingError("bad", nil)))
	assert.Equal(t, exitFailure, exitCode(errors.New("plain")))
}

func TestProgressLogger(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	report := progressLogger(context.Background(), logger)

	tracker := operations.NewProgressTracker(operations.StageBuild, 4, report)
	tracker.Update(2, "rows built")
	tracker.Update(4, "rows built")

	debug := handler.GetRecordsByLevel(slog.LevelDebug)
	require.Len(t, debug, 1)
	assert.Contains(t, debug[0].Attrs, "eta")

	info := handler.GetRecordsByLevel(slog.LevelInfo)
	require.Len(t, info, 1)
	assert.Equal(t, "Progress", info[0].Message)
	assert.Contains(t, info[0].Attrs, "elapsed")
	assert.NotContains(t, info[0].Attrs, "eta")
}
