package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehinspect/internal/config"
	"vehinspect/internal/shared/testutil"
	"vehinspect/pkg/contracts/domain"
)

func newTestAggregator(workers int) *Aggregator {
	cfg := config.Default().Processing
	cfg.Workers = workers
	return NewAggregator(cfg)
}

func allPass() map[string]domain.ItemResult {
	return map[string]domain.ItemResult{"Luces": testutil.Pass(true), "Frenos": testutil.Pass(false)}
}

func halfFail() map[string]domain.ItemResult {
	return map[string]domain.ItemResult{"Luces": testutil.Fail(true), "Frenos": testutil.Pass(false)}
}

func TestComputeStats_AllCompliant(t *testing.T) {
	const n = 7
	inspections := make([]domain.Inspection, n)
	for i := range inspections {
		inspections[i] = testutil.NewInspection(testutil.InspectionOpts{
			ID:        i + 1,
			Timestamp: testutil.Date(2024, 3, i+1, 9),
			Inspector: "Ana",
			Vehicle:   "ABC123",
			Items:     allPass(),
		})
	}

	stats := newTestAggregator(1).ComputeStats(inspections, n+2)

	assert.Equal(t, n, stats.TotalInspections)
	assert.Equal(t, n+2, stats.TotalRawRecords)
	assert.Equal(t, 100.0, stats.AverageCompliance)
	assert.Equal(t, domain.RiskDistribution{Bajo: n}, stats.RiskDistribution)
	assert.Zero(t, stats.CriticalFailures)
	require.NotNil(t, stats.DateRange.Start)
	require.NotNil(t, stats.DateRange.End)
	assert.Equal(t, *testutil.Date(2024, 3, 1, 9), *stats.DateRange.Start)
	assert.Equal(t, *testutil.Date(2024, 3, 7, 9), *stats.DateRange.End)
}

func TestComputeStats_Mixed(t *testing.T) {
	inspections := []domain.Inspection{
		testutil.NewInspection(testutil.InspectionOpts{ID: 1, Inspector: "Ana", Vehicle: "ABC123", Location: "Campo 1", Items: allPass()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 2, Inspector: "Luis", Vehicle: "ABC123", Contract: "C-1", Items: halfFail()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 3, Inspector: "Luis", Vehicle: "XYZ789", Shift: "Noche", Items: map[string]domain.ItemResult{
			"Pito": testutil.Fail(false),
		}}),
	}

	stats := newTestAggregator(1).ComputeStats(inspections, 3)

	assert.InDelta(t, 50.0, stats.AverageCompliance, 1e-9)
	assert.Equal(t, 1, stats.CriticalFailures)
	assert.Equal(t, domain.RiskDistribution{Bajo: 1, Critico: 2}, stats.RiskDistribution)
	assert.Nil(t, stats.DateRange.Start)
	assert.Nil(t, stats.DateRange.End)
	assert.Equal(t, domain.UniqueCounts{
		Inspectors:      2,
		Vehicles:        2,
		Locations:       1,
		Contracts:       1,
		Shifts:          1,
		InspectionItems: 3,
		CriticalItems:   1,
	}, stats.UniqueCounts)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := newTestAggregator(4).ComputeStats(nil, 5)

	assert.Zero(t, stats.TotalInspections)
	assert.Equal(t, 5, stats.TotalRawRecords)
	assert.Zero(t, stats.AverageCompliance)
	assert.Zero(t, stats.RiskDistribution.Total())
	assert.Nil(t, stats.DateRange.Start)
}

func TestComputeStats_WorkerIndependent(t *testing.T) {
	table := testutil.GenerateTable(3*statsChunkSize+123, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	valid := ValidInspections(BuildInspections(table.Rows, DetectColumns(table.Header), 0))
	require.Greater(t, len(valid), 2*statsChunkSize)

	sequential := newTestAggregator(1).ComputeStats(valid, len(table.Rows))
	for _, workers := range []int{2, 3, 8} {
		parallel := newTestAggregator(workers).ComputeStats(valid, len(table.Rows))
		assert.Equal(t, sequential, parallel, "workers=%d", workers)
	}
	assert.Equal(t, len(valid), sequential.RiskDistribution.Total())
}

func TestAnalyzeItems(t *testing.T) {
	var inspections []domain.Inspection
	// Luces observed 11 times with 3 failures, Frenos observed 10 times
	for i := 0; i < 11; i++ {
		items := map[string]domain.ItemResult{"Luces": testutil.Pass(true)}
		if i < 3 {
			items["Luces"] = testutil.Fail(true)
		}
		if i < 10 {
			items["Frenos"] = testutil.Fail(false)
		}
		inspections = append(inspections, testutil.NewInspection(testutil.InspectionOpts{ID: i + 1, Inspector: "Ana", Vehicle: "ABC123", Items: items}))
	}

	t.Run("threshold excludes items seen ten times or fewer", func(t *testing.T) {
		analysis := newTestAggregator(1).AnalyzeItems(inspections)

		require.Len(t, analysis, 1)
		assert.Equal(t, "Luces", analysis[0].Item)
		assert.True(t, analysis[0].IsCritical)
		assert.Equal(t, 11, analysis[0].Total)
		assert.Equal(t, 8, analysis[0].Compliant)
		assert.Equal(t, 3, analysis[0].NonCompliant)
		assert.InDelta(t, 300.0/11, analysis[0].FailureRate, 1e-9)
		assert.InDelta(t, 100.0, analysis[0].ComplianceRate+analysis[0].FailureRate, 1e-9)
	})

	t.Run("thresholds below ten are raised", func(t *testing.T) {
		for _, min := range []int{0, -3, 5} {
			cfg := config.Default().Processing
			cfg.MinItemObservations = min
			analysis := NewAggregator(cfg).AnalyzeItems(inspections)

			require.Len(t, analysis, 1, "min %d", min)
			assert.Equal(t, "Luces", analysis[0].Item)
		}

		analysis := NewAggregator(config.ProcessingConfig{}).AnalyzeItems(inspections)
		require.Len(t, analysis, 1)
	})

	t.Run("higher thresholds are honored", func(t *testing.T) {
		cfg := config.Default().Processing
		cfg.MinItemObservations = 11
		assert.Empty(t, NewAggregator(cfg).AnalyzeItems(inspections))
	})

	t.Run("ordered by failure rate", func(t *testing.T) {
		var busy []domain.Inspection
		for i := 0; i < 12; i++ {
			items := map[string]domain.ItemResult{"Luces": testutil.Pass(true), "Frenos": testutil.Fail(false)}
			if i < 3 {
				items["Luces"] = testutil.Fail(true)
			}
			busy = append(busy, testutil.NewInspection(testutil.InspectionOpts{ID: i + 1, Inspector: "Ana", Vehicle: "ABC123", Items: items}))
		}
		analysis := newTestAggregator(1).AnalyzeItems(busy)

		require.Len(t, analysis, 2)
		assert.Equal(t, "Frenos", analysis[0].Item)
		assert.Equal(t, 100.0, analysis[0].FailureRate)
		assert.Equal(t, "Luces", analysis[1].Item)
		assert.InDelta(t, 25.0, analysis[1].FailureRate, 1e-9)
	})
}

func TestUniqueValues(t *testing.T) {
	inspections := []domain.Inspection{
		testutil.NewInspection(testutil.InspectionOpts{ID: 1, Timestamp: testutil.Date(2024, 1, 5, 8), Inspector: "Zoe", Vehicle: "B2", Items: allPass()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 2, Timestamp: testutil.Date(2022, 7, 1, 8), Inspector: "Ángel", Vehicle: "A1", Location: "Campo", Items: allPass()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 3, Timestamp: testutil.Date(2024, 2, 5, 8), Inspector: "Beatriz", Vehicle: "A1", Items: allPass()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 4, Inspector: "Carlos", Vehicle: "C3", Items: halfFail()}),
	}

	values := newTestAggregator(1).UniqueValues(inspections)

	assert.Equal(t, []string{"Ángel", "Beatriz", "Carlos", "Zoe"}, values.Inspectors)
	assert.Equal(t, []string{"A1", "B2", "C3"}, values.Vehicles)
	assert.Equal(t, []string{"Campo"}, values.Locations)
	assert.Empty(t, values.Contracts, "placeholders are not listed")
	assert.Equal(t, []string{"Frenos", "Luces"}, values.Items)
	assert.Equal(t, []int{2022, 2024}, values.Years)
}

func TestGroupSummaries(t *testing.T) {
	inspections := []domain.Inspection{
		testutil.NewInspection(testutil.InspectionOpts{ID: 1, Timestamp: testutil.Date(2024, 3, 1, 8), Inspector: "Ana", Vehicle: "V1", Items: allPass()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 2, Timestamp: testutil.Date(2024, 3, 10, 8), Inspector: "Luis", Vehicle: "V1", Items: halfFail()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 3, Timestamp: testutil.Date(2024, 1, 1, 8), Inspector: "Ana", Vehicle: "V2", Items: allPass()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 4, Inspector: "Ana", Items: allPass()}),
	}
	agg := newTestAggregator(1)

	t.Run("vehicles", func(t *testing.T) {
		summaries := agg.VehicleSummaries(inspections)

		require.Len(t, summaries, 2)
		v1, v2 := summaries[0], summaries[1]

		assert.Equal(t, "V1", v1.Key)
		assert.Equal(t, 2, v1.Inspections)
		assert.InDelta(t, 75.0, v1.AverageCompliance, 1e-9)
		assert.Equal(t, 1, v1.CriticalFailures)
		assert.Equal(t, 1, v1.FailedItems)
		assert.Equal(t, domain.RiskCritical, v1.WorstRiskLevel)
		assert.Equal(t, testutil.Date(2024, 3, 10, 8), v1.LastInspection)
		assert.Equal(t, domain.StatusActive, v1.Status)

		assert.Equal(t, "V2", v2.Key)
		assert.Equal(t, 100.0, v2.AverageCompliance)
		assert.Equal(t, domain.RiskLow, v2.WorstRiskLevel)
		assert.Equal(t, domain.StatusInactive, v2.Status)
	})

	t.Run("inspectors", func(t *testing.T) {
		summaries := agg.InspectorSummaries(inspections)

		require.Len(t, summaries, 2)
		assert.Equal(t, "Luis", summaries[0].Key)
		assert.Equal(t, "Ana", summaries[1].Key)
		assert.Equal(t, 3, summaries[1].Inspections)
	})

	t.Run("activity window", func(t *testing.T) {
		cfg := config.Default().Processing
		cfg.ActivityWindow = 90 * 24 * time.Hour

		summaries := NewAggregator(cfg).VehicleSummaries(inspections)

		require.Len(t, summaries, 2)
		assert.Equal(t, domain.StatusActive, summaries[1].Status)
	})
}

func TestMonthlyTrends(t *testing.T) {
	inspections := []domain.Inspection{
		testutil.NewInspection(testutil.InspectionOpts{ID: 1, Timestamp: testutil.Date(2024, 2, 3, 8), Inspector: "Ana", Vehicle: "V1", Items: allPass()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 2, Timestamp: testutil.Date(2023, 12, 24, 8), Inspector: "Ana", Vehicle: "V1", Items: halfFail()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 3, Timestamp: testutil.Date(2024, 2, 20, 8), Inspector: "Ana", Vehicle: "V1", Items: halfFail()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 4, Inspector: "Ana", Vehicle: "V1", Items: allPass()}),
	}

	trends := newTestAggregator(1).MonthlyTrends(inspections)

	require.Len(t, trends, 2)
	assert.Equal(t, domain.MonthlyTrend{Year: 2023, Month: 12, Label: "Diciembre 2023", Inspections: 1, AverageCompliance: 50, CriticalFailures: 1}, trends[0])
	assert.Equal(t, domain.MonthlyTrend{Year: 2024, Month: 2, Label: "Febrero 2024", Inspections: 2, AverageCompliance: 75, CriticalFailures: 1}, trends[1])
}

func TestFilterOptions(t *testing.T) {
	inspections := []domain.Inspection{
		testutil.NewInspection(testutil.InspectionOpts{ID: 1, Timestamp: testutil.Date(2024, 2, 3, 8), Inspector: "Ana", Vehicle: "V1", Shift: "Día", Items: allPass()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 2, Timestamp: testutil.Date(2023, 5, 3, 8), Inspector: "Ana", Vehicle: "V2", Shift: "Noche", Items: halfFail()}),
		testutil.NewInspection(testutil.InspectionOpts{ID: 3, Inspector: "Luis", Vehicle: "V1", Items: halfFail()}),
	}

	opts := newTestAggregator(1).FilterOptions(inspections)

	assert.Equal(t, []domain.FilterOption{
		{Value: "Ana", Label: "Ana", Count: 2},
		{Value: "Luis", Label: "Luis", Count: 1},
	}, opts.Inspectors)
	assert.Equal(t, []domain.FilterOption{
		{Value: "2023", Label: "2023", Count: 1},
		{Value: "2024", Label: "2024", Count: 1},
	}, opts.Years)
	assert.Empty(t, opts.Locations)

	require.Len(t, opts.RiskLevels, 4)
	for i, level := range domain.RiskLevels() {
		assert.Equal(t, level.String(), opts.RiskLevels[i].Value)
	}
	assert.Equal(t, 1, opts.RiskLevels[0].Count)
	assert.Equal(t, 2, opts.RiskLevels[3].Count)
}

func TestReport(t *testing.T) {
	table := testutil.GenerateTable(200, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	valid := ValidInspections(BuildInspections(table.Rows, DetectColumns(table.Header), 0))
	agg := newTestAggregator(1)

	report := agg.Report(valid)

	assert.Equal(t, agg.VehicleSummaries(valid), report.Vehicles)
	assert.Equal(t, agg.InspectorSummaries(valid), report.Inspectors)
	assert.Equal(t, agg.MonthlyTrends(valid), report.MonthlyTrends)

	total := 0
	for _, trend := range report.MonthlyTrends {
		total += trend.Inspections
	}
	assert.Equal(t, len(valid), total)

	for i := 1; i < len(report.Vehicles); i++ {
		assert.LessOrEqual(t, report.Vehicles[i-1].AverageCompliance, report.Vehicles[i].AverageCompliance)
	}
}
