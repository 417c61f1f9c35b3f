package domain

import (
	"time"
)

// Unspecified is the placeholder stored in a fixed-role field that could not be resolved
const Unspecified = "Sin especificar"

// RiskLevel is the coarse risk bucket derived from compliance
type RiskLevel string

const (
	RiskLow      RiskLevel = "Bajo"
	RiskMedium   RiskLevel = "Medio"
	RiskHigh     RiskLevel = "Alto"
	RiskCritical RiskLevel = "Crítico"
)

// Risk thresholds are inclusive lower bounds on compliance
const (
	RiskLowThreshold    = 98.0
	RiskMediumThreshold = 95.0
	RiskHighThreshold   = 90.0
)

// RiskLevels returns all risk levels from lowest to highest risk
func RiskLevels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}
}

// RiskLevelFor classifies a compliance percentage
func RiskLevelFor(compliance float64) RiskLevel {
	switch {
	case compliance >= RiskLowThreshold:
		return RiskLow
	case compliance >= RiskMediumThreshold:
		return RiskMedium
	case compliance >= RiskHighThreshold:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// String returns the string representation of the level
func (r RiskLevel) String() string {
	return string(r)
}

// IsValid returns true if the level is a recognized value
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Severity orders levels: 0 for Bajo up to 3 for Crítico, -1 when unknown.
func (r RiskLevel) Severity() int {
	for i, level := range RiskLevels() {
		if level == r {
			return i
		}
	}
	return -1
}

// ItemResult is the verdict for one inspection item on one row
type ItemResult struct {
	Compliant     bool   `json:"compliant"`
	IsCritical    bool   `json:"is_critical"`
	OriginalValue string `json:"original_value"`
}

// Inspection is one normalized, scored record derived from a spreadsheet row.
// Inspections are never modified once built.
type Inspection struct {
	ID               int                   `json:"id"`
	Timestamp        *time.Time            `json:"timestamp"`
	Inspector        string                `json:"inspector"`
	Vehicle          string                `json:"vehicle"`
	Contract         string                `json:"contract"`
	Location         string                `json:"location"`
	Mileage          int                   `json:"mileage" validate:"min=0"`
	Shift            string                `json:"shift"`
	Observations     string                `json:"observations"`
	Items            map[string]ItemResult `json:"items"`
	TotalItems       int                   `json:"total_items"`
	CompliantItems   int                   `json:"compliant_items"`
	CriticalFailures int                   `json:"critical_failures"`
	Compliance       float64               `json:"compliance" validate:"min=0,max=100"`
	RiskLevel        RiskLevel             `json:"risk_level"`
}

// IsValid reports whether inspector and vehicle were both resolved.
// Only valid inspections take part in statistics.
func (i Inspection) IsValid() bool {
	return IsSpecified(i.Inspector) && IsSpecified(i.Vehicle)
}

// HasCriticalFailures reports whether any critical item failed
func (i Inspection) HasCriticalFailures() bool {
	return i.CriticalFailures > 0
}

// NonCompliantItems returns the number of evaluated items that failed
func (i Inspection) NonCompliantItems() int {
	return i.TotalItems - i.CompliantItems
}

// Year returns the inspection year, ok=false without a timestamp
func (i Inspection) Year() (int, bool) {
	if i.Timestamp == nil {
		return 0, false
	}
	return i.Timestamp.Year(), true
}

// Month returns the inspection month (1-12), ok=false without a timestamp
func (i Inspection) Month() (time.Month, bool) {
	if i.Timestamp == nil {
		return 0, false
	}
	return i.Timestamp.Month(), true
}

// Weekday returns the inspection day of week, ok=false without a timestamp
func (i Inspection) Weekday() (time.Weekday, bool) {
	if i.Timestamp == nil {
		return 0, false
	}
	return i.Timestamp.Weekday(), true
}

// IsSpecified reports whether a fixed-role value holds real data
func IsSpecified(value string) bool {
	return value != "" && value != Unspecified
}

// ComplianceOf computes the compliance percentage for the given counts
func ComplianceOf(compliant, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(compliant) / float64(total) * 100
}

var monthNames = [...]string{
	"", "Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName returns the Spanish name of a month, or "" when out of range
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m]
}
