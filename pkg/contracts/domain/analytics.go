package domain

import (
	"time"
)

// DateRange is the span covered by inspection timestamps. Both ends are nil when no row had a date.
type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// RiskDistribution counts inspections per risk level
type RiskDistribution struct {
	Bajo    int `json:"Bajo"`
	Medio   int `json:"Medio"`
	Alto    int `json:"Alto"`
	Critico int `json:"Crítico"`
}

// Add increments the bucket for level
func (d *RiskDistribution) Add(level RiskLevel, n int) {
	switch level {
	case RiskLow:
		d.Bajo += n
	case RiskMedium:
		d.Medio += n
	case RiskHigh:
		d.Alto += n
	case RiskCritical:
		d.Critico += n
	}
}

// Get returns the count for level
func (d RiskDistribution) Get(level RiskLevel) int {
	switch level {
	case RiskLow:
		return d.Bajo
	case RiskMedium:
		return d.Medio
	case RiskHigh:
		return d.Alto
	case RiskCritical:
		return d.Critico
	}
	return 0
}

// Total returns the sum of all buckets
func (d RiskDistribution) Total() int {
	return d.Bajo + d.Medio + d.Alto + d.Critico
}

// UniqueCounts holds the number of distinct values per category
type UniqueCounts struct {
	Inspectors      int `json:"inspectors"`
	Vehicles        int `json:"vehicles"`
	Locations       int `json:"locations"`
	Contracts       int `json:"contracts"`
	Shifts          int `json:"shifts"`
	InspectionItems int `json:"inspection_items"`
	CriticalItems   int `json:"critical_items"`
}

// SystemStats aggregates a validated inspection set. It is always recomputed, never edited.
type SystemStats struct {
	TotalInspections  int              `json:"total_inspections"`
	TotalRawRecords   int              `json:"total_raw_records"`
	DateRange         DateRange        `json:"date_range"`
	AverageCompliance float64          `json:"average_compliance"`
	CriticalFailures  int              `json:"critical_failures"`
	RiskDistribution  RiskDistribution `json:"risk_distribution"`
	UniqueCounts      UniqueCounts     `json:"unique_counts"`
}

// ItemAnalysis summarizes one inspection item across the validated set
type ItemAnalysis struct {
	Item           string  `json:"item"`
	IsCritical     bool    `json:"is_critical"`
	Total          int     `json:"total"`
	Compliant      int     `json:"compliant"`
	NonCompliant   int     `json:"non_compliant"`
	ComplianceRate float64 `json:"compliance_rate"`
	FailureRate    float64 `json:"failure_rate"`
}

// UniqueValues holds the sorted distinct values per category, without placeholders
type UniqueValues struct {
	Inspectors []string `json:"inspectors"`
	Vehicles   []string `json:"vehicles"`
	Locations  []string `json:"locations"`
	Contracts  []string `json:"contracts"`
	Shifts     []string `json:"shifts"`
	Items      []string `json:"items"`
	Years      []int    `json:"years"`
}

// ActivityStatus marks whether a vehicle or inspector was seen recently
type ActivityStatus string

const (
	StatusActive   ActivityStatus = "active"
	StatusInactive ActivityStatus = "inactive"
)

// GroupSummary is the compliance roll-up for one vehicle or inspector
type GroupSummary struct {
	Key               string         `json:"key"`
	Inspections       int            `json:"inspections"`
	AverageCompliance float64        `json:"average_compliance"`
	CriticalFailures  int            `json:"critical_failures"`
	FailedItems       int            `json:"failed_items"`
	WorstRiskLevel    RiskLevel      `json:"worst_risk_level"`
	LastInspection    *time.Time     `json:"last_inspection"`
	Status            ActivityStatus `json:"status"`
}

// MonthlyTrend is the compliance roll-up for one calendar month
type MonthlyTrend struct {
	Year              int     `json:"year"`
	Month             int     `json:"month"`
	Label             string  `json:"label"`
	Inspections       int     `json:"inspections"`
	AverageCompliance float64 `json:"average_compliance"`
	CriticalFailures  int     `json:"critical_failures"`
}

// FilterOption is one selectable value with the number of matching inspections
type FilterOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FilterOptions lists the selectable values for each filter dimension
type FilterOptions struct {
	Inspectors []FilterOption `json:"inspectors"`
	Vehicles   []FilterOption `json:"vehicles"`
	Locations  []FilterOption `json:"locations"`
	Contracts  []FilterOption `json:"contracts"`
	Shifts     []FilterOption `json:"shifts"`
	Years      []FilterOption `json:"years"`
	RiskLevels []FilterOption `json:"risk_levels"`
}

// Report bundles the grouped roll-ups consumed by dashboards
type Report struct {
	Vehicles      []GroupSummary `json:"vehicles"`
	Inspectors    []GroupSummary `json:"inspectors"`
	MonthlyTrends []MonthlyTrend `json:"monthly_trends"`
	FilterOptions FilterOptions  `json:"filter_options"`
}
