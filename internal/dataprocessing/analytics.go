package dataprocessing

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"vehinspect/internal/config"
	"vehinspect/pkg/contracts/domain"
)

// DefaultMinItemObservations is the lowest item analysis threshold. Items
// observed this many times or fewer never appear in ItemAnalysis.
const DefaultMinItemObservations = 10

// DefaultActivityWindow is used when the configured window is zero
const DefaultActivityWindow = 30 * 24 * time.Hour

// statsChunkSize fixes the fold partition so float sums do not depend on the worker count
const statsChunkSize = 4096

// Aggregator derives statistics from a validated inspection set.
// All methods are pure and safe for concurrent use.
type Aggregator struct {
	minItemObservations int
	workers             int
	activityWindow      time.Duration
}

// NewAggregator creates an aggregator from the processing configuration
func NewAggregator(cfg config.ProcessingConfig) *Aggregator {
	a := &Aggregator{
		minItemObservations: cfg.MinItemObservations,
		workers:             cfg.Workers,
		activityWindow:      cfg.ActivityWindow,
	}
	if a.workers < 1 {
		a.workers = 1
	}
	if a.minItemObservations < DefaultMinItemObservations {
		a.minItemObservations = DefaultMinItemObservations
	}
	if a.activityWindow <= 0 {
		a.activityWindow = DefaultActivityWindow
	}
	return a
}

// statsAccumulator is the associative partial result of ComputeStats
type statsAccumulator struct {
	count         int
	complianceSum float64
	critical      int
	risk          domain.RiskDistribution
	start, end    *time.Time
	inspectors    map[string]struct{}
	vehicles      map[string]struct{}
	locations     map[string]struct{}
	contracts     map[string]struct{}
	shifts        map[string]struct{}
	// items maps item name to whether it was ever critical
	items map[string]bool
}

func newStatsAccumulator() *statsAccumulator {
	return &statsAccumulator{
		inspectors: make(map[string]struct{}),
		vehicles:   make(map[string]struct{}),
		locations:  make(map[string]struct{}),
		contracts:  make(map[string]struct{}),
		shifts:     make(map[string]struct{}),
		items:      make(map[string]bool),
	}
}

func (s *statsAccumulator) add(insp domain.Inspection) {
	s.count++
	s.complianceSum += insp.Compliance
	s.critical += insp.CriticalFailures
	s.risk.Add(insp.RiskLevel, 1)

	if insp.Timestamp != nil {
		s.extendRange(insp.Timestamp, insp.Timestamp)
	}

	addSpecified(s.inspectors, insp.Inspector)
	addSpecified(s.vehicles, insp.Vehicle)
	addSpecified(s.locations, insp.Location)
	addSpecified(s.contracts, insp.Contract)
	addSpecified(s.shifts, insp.Shift)

	for name, result := range insp.Items {
		s.items[name] = s.items[name] || result.IsCritical
	}
}

func (s *statsAccumulator) extendRange(start, end *time.Time) {
	if start != nil && (s.start == nil || start.Before(*s.start)) {
		t := *start
		s.start = &t
	}
	if end != nil && (s.end == nil || end.After(*s.end)) {
		t := *end
		s.end = &t
	}
}

func (s *statsAccumulator) merge(o *statsAccumulator) {
	s.count += o.count
	s.complianceSum += o.complianceSum
	s.critical += o.critical
	for _, level := range domain.RiskLevels() {
		s.risk.Add(level, o.risk.Get(level))
	}
	s.extendRange(o.start, o.end)

	mergeSet(s.inspectors, o.inspectors)
	mergeSet(s.vehicles, o.vehicles)
	mergeSet(s.locations, o.locations)
	mergeSet(s.contracts, o.contracts)
	mergeSet(s.shifts, o.shifts)
	for name, critical := range o.items {
		s.items[name] = s.items[name] || critical
	}
}

func (s *statsAccumulator) stats(rawCount int) domain.SystemStats {
	stats := domain.SystemStats{
		TotalInspections: s.count,
		TotalRawRecords:  rawCount,
		DateRange:        domain.DateRange{Start: s.start, End: s.end},
		CriticalFailures: s.critical,
		RiskDistribution: s.risk,
		UniqueCounts: domain.UniqueCounts{
			Inspectors:      len(s.inspectors),
			Vehicles:        len(s.vehicles),
			Locations:       len(s.locations),
			Contracts:       len(s.contracts),
			Shifts:          len(s.shifts),
			InspectionItems: len(s.items),
		},
	}
	if s.count > 0 {
		stats.AverageCompliance = s.complianceSum / float64(s.count)
	}
	for _, critical := range s.items {
		if critical {
			stats.UniqueCounts.CriticalItems++
		}
	}
	return stats
}

// ComputeStats aggregates the validated set. rawCount is the size of the
// unfiltered collection the set was drawn from.
func (a *Aggregator) ComputeStats(validated []domain.Inspection, rawCount int) domain.SystemStats {
	chunks := chunkBounds(len(validated), statsChunkSize)
	partials := make([]*statsAccumulator, len(chunks))

	fold := func(i int) {
		acc := newStatsAccumulator()
		for _, insp := range validated[chunks[i].lo:chunks[i].hi] {
			acc.add(insp)
		}
		partials[i] = acc
	}

	if a.workers > 1 && len(chunks) > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, a.workers)
		for i := range chunks {
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				fold(i)
			}()
		}
		wg.Wait()
	} else {
		for i := range chunks {
			fold(i)
		}
	}

	total := newStatsAccumulator()
	for _, p := range partials {
		total.merge(p)
	}
	return total.stats(rawCount)
}

// AnalyzeItems computes per-item failure rates, keeping items observed more
// than the configured minimum. Results are ordered by failure rate, worst first.
func (a *Aggregator) AnalyzeItems(validated []domain.Inspection) []domain.ItemAnalysis {
	byItem := make(map[string]*domain.ItemAnalysis)
	for _, insp := range validated {
		for name, result := range insp.Items {
			entry, ok := byItem[name]
			if !ok {
				entry = &domain.ItemAnalysis{Item: name}
				byItem[name] = entry
			}
			entry.Total++
			entry.IsCritical = entry.IsCritical || result.IsCritical
			if result.Compliant {
				entry.Compliant++
			} else {
				entry.NonCompliant++
			}
		}
	}

	out := make([]domain.ItemAnalysis, 0, len(byItem))
	for _, entry := range byItem {
		if entry.Total <= a.minItemObservations {
			continue
		}
		entry.ComplianceRate = domain.ComplianceOf(entry.Compliant, entry.Total)
		entry.FailureRate = domain.ComplianceOf(entry.NonCompliant, entry.Total)
		out = append(out, *entry)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FailureRate != out[j].FailureRate {
			return out[i].FailureRate > out[j].FailureRate
		}
		return out[i].Item < out[j].Item
	})
	return out
}

// UniqueValues lists the distinct values per category in Spanish collation order
func (a *Aggregator) UniqueValues(validated []domain.Inspection) domain.UniqueValues {
	inspectors := make(map[string]struct{})
	vehicles := make(map[string]struct{})
	locations := make(map[string]struct{})
	contracts := make(map[string]struct{})
	shifts := make(map[string]struct{})
	items := make(map[string]struct{})
	years := make(map[int]struct{})

	for _, insp := range validated {
		addSpecified(inspectors, insp.Inspector)
		addSpecified(vehicles, insp.Vehicle)
		addSpecified(locations, insp.Location)
		addSpecified(contracts, insp.Contract)
		addSpecified(shifts, insp.Shift)
		for name := range insp.Items {
			items[name] = struct{}{}
		}
		if year, ok := insp.Year(); ok {
			years[year] = struct{}{}
		}
	}

	yearList := make([]int, 0, len(years))
	for y := range years {
		yearList = append(yearList, y)
	}
	sort.Ints(yearList)

	return domain.UniqueValues{
		Inspectors: sortedKeys(inspectors),
		Vehicles:   sortedKeys(vehicles),
		Locations:  sortedKeys(locations),
		Contracts:  sortedKeys(contracts),
		Shifts:     sortedKeys(shifts),
		Items:      sortedKeys(items),
		Years:      yearList,
	}
}

// VehicleSummaries rolls up compliance per vehicle, lowest average first
func (a *Aggregator) VehicleSummaries(validated []domain.Inspection) []domain.GroupSummary {
	return a.groupSummaries(validated, func(i domain.Inspection) string { return i.Vehicle })
}

// InspectorSummaries rolls up compliance per inspector, lowest average first
func (a *Aggregator) InspectorSummaries(validated []domain.Inspection) []domain.GroupSummary {
	return a.groupSummaries(validated, func(i domain.Inspection) string { return i.Inspector })
}

func (a *Aggregator) groupSummaries(validated []domain.Inspection, keyOf func(domain.Inspection) string) []domain.GroupSummary {
	type group struct {
		summary       domain.GroupSummary
		complianceSum float64
	}

	// activity is judged against the newest inspection in the set, not the wall clock
	reference := latestTimestamp(validated)
	groups := make(map[string]*group)

	for _, insp := range validated {
		key := keyOf(insp)
		if !domain.IsSpecified(key) {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{summary: domain.GroupSummary{Key: key, WorstRiskLevel: domain.RiskLow}}
			groups[key] = g
		}
		g.summary.Inspections++
		g.complianceSum += insp.Compliance
		g.summary.CriticalFailures += insp.CriticalFailures
		g.summary.FailedItems += insp.NonCompliantItems()
		if insp.RiskLevel.Severity() > g.summary.WorstRiskLevel.Severity() {
			g.summary.WorstRiskLevel = insp.RiskLevel
		}
		if insp.Timestamp != nil && (g.summary.LastInspection == nil || insp.Timestamp.After(*g.summary.LastInspection)) {
			t := *insp.Timestamp
			g.summary.LastInspection = &t
		}
	}

	keys := make(map[string]struct{}, len(groups))
	for k := range groups {
		keys[k] = struct{}{}
	}

	out := make([]domain.GroupSummary, 0, len(groups))
	for _, key := range sortedKeys(keys) {
		g := groups[key]
		g.summary.AverageCompliance = g.complianceSum / float64(g.summary.Inspections)
		g.summary.Status = domain.StatusInactive
		if reference != nil && g.summary.LastInspection != nil &&
			reference.Sub(*g.summary.LastInspection) <= a.activityWindow {
			g.summary.Status = domain.StatusActive
		}
		out = append(out, g.summary)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AverageCompliance < out[j].AverageCompliance
	})
	return out
}

// MonthlyTrends rolls up compliance per calendar month in chronological order.
// Inspections without a timestamp are not counted.
func (a *Aggregator) MonthlyTrends(validated []domain.Inspection) []domain.MonthlyTrend {
	type bucket struct {
		trend         domain.MonthlyTrend
		complianceSum float64
	}

	buckets := make(map[int]*bucket)
	for _, insp := range validated {
		if insp.Timestamp == nil {
			continue
		}
		year, month := insp.Timestamp.Year(), insp.Timestamp.Month()
		key := year*100 + int(month)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{trend: domain.MonthlyTrend{
				Year:  year,
				Month: int(month),
				Label: fmt.Sprintf("%s %d", domain.MonthName(month), year),
			}}
			buckets[key] = b
		}
		b.trend.Inspections++
		b.trend.CriticalFailures += insp.CriticalFailures
		b.complianceSum += insp.Compliance
	}

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]domain.MonthlyTrend, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		b.trend.AverageCompliance = b.complianceSum / float64(b.trend.Inspections)
		out = append(out, b.trend)
	}
	return out
}

// FilterOptions lists selectable filter values with the number of matching inspections
func (a *Aggregator) FilterOptions(inspections []domain.Inspection) domain.FilterOptions {
	inspectors := make(map[string]int)
	vehicles := make(map[string]int)
	locations := make(map[string]int)
	contracts := make(map[string]int)
	shifts := make(map[string]int)
	years := make(map[int]int)
	var risk domain.RiskDistribution

	for _, insp := range inspections {
		countSpecified(inspectors, insp.Inspector)
		countSpecified(vehicles, insp.Vehicle)
		countSpecified(locations, insp.Location)
		countSpecified(contracts, insp.Contract)
		countSpecified(shifts, insp.Shift)
		if year, ok := insp.Year(); ok {
			years[year]++
		}
		risk.Add(insp.RiskLevel, 1)
	}

	yearKeys := make([]int, 0, len(years))
	for y := range years {
		yearKeys = append(yearKeys, y)
	}
	sort.Ints(yearKeys)
	yearOptions := make([]domain.FilterOption, 0, len(yearKeys))
	for _, y := range yearKeys {
		label := strconv.Itoa(y)
		yearOptions = append(yearOptions, domain.FilterOption{Value: label, Label: label, Count: years[y]})
	}

	riskOptions := make([]domain.FilterOption, 0, len(domain.RiskLevels()))
	for _, level := range domain.RiskLevels() {
		riskOptions = append(riskOptions, domain.FilterOption{
			Value: level.String(),
			Label: level.String(),
			Count: risk.Get(level),
		})
	}

	return domain.FilterOptions{
		Inspectors: textOptions(inspectors),
		Vehicles:   textOptions(vehicles),
		Locations:  textOptions(locations),
		Contracts:  textOptions(contracts),
		Shifts:     textOptions(shifts),
		Years:      yearOptions,
		RiskLevels: riskOptions,
	}
}

// Report builds the grouped roll-ups for a validated set
func (a *Aggregator) Report(validated []domain.Inspection) domain.Report {
	return domain.Report{
		Vehicles:      a.VehicleSummaries(validated),
		Inspectors:    a.InspectorSummaries(validated),
		MonthlyTrends: a.MonthlyTrends(validated),
		FilterOptions: a.FilterOptions(validated),
	}
}

type bounds struct{ lo, hi int }

// chunkBounds splits [0,n) into consecutive ranges of at most size elements
func chunkBounds(n, size int) []bounds {
	if n == 0 {
		return nil
	}
	out := make([]bounds, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		out = append(out, bounds{lo: lo, hi: min(lo+size, n)})
	}
	return out
}

func latestTimestamp(inspections []domain.Inspection) *time.Time {
	var latest *time.Time
	for _, insp := range inspections {
		if insp.Timestamp != nil && (latest == nil || insp.Timestamp.After(*latest)) {
			latest = insp.Timestamp
		}
	}
	return latest
}

func addSpecified(set map[string]struct{}, value string) {
	if domain.IsSpecified(value) {
		set[value] = struct{}{}
	}
}

func countSpecified(counts map[string]int, value string) {
	if domain.IsSpecified(value) {
		counts[value]++
	}
}

func mergeSet(dst, src map[string]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}

// sortedKeys returns set members in Spanish collation order
func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	collate.New(language.Spanish).SortStrings(out)
	return out
}

func textOptions(counts map[string]int) []domain.FilterOption {
	values := make(map[string]struct{}, len(counts))
	for v := range counts {
		values[v] = struct{}{}
	}
	out := make([]domain.FilterOption, 0, len(counts))
	for _, v := range sortedKeys(values) {
		out = append(out, domain.FilterOption{Value: v, Label: v, Count: counts[v]})
	}
	return out
}
