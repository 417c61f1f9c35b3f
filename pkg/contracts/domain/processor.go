package domain

import (
	"time"
)

// SortField names the inspection attribute a query is ordered by
type SortField string

const (
	SortNone             SortField = ""
	SortByTimestamp      SortField = "timestamp"
	SortByCompliance     SortField = "compliance"
	SortByInspector      SortField = "inspector"
	SortByVehicle        SortField = "vehicle"
	SortByMileage        SortField = "mileage"
	SortByCriticalFailed SortField = "criticalFailures"
)

// SortOrder is the query ordering direction
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filters is the declarative query over an inspection collection.
// The zero value selects everything; each set field narrows the result.
type Filters struct {
	Search            string        `json:"search,omitempty" validate:"max=200"`
	Inspector         string        `json:"inspector,omitempty"`
	Vehicle           string        `json:"vehicle,omitempty"`
	Location          string        `json:"location,omitempty"`
	Contract          string        `json:"contract,omitempty"`
	Shift             string        `json:"shift,omitempty"`
	RiskLevel         RiskLevel     `json:"risk_level,omitempty" validate:"omitempty,oneof=Bajo Medio Alto Crítico"`
	Year              int           `json:"year,omitempty" validate:"omitempty,min=1900,max=9999"`
	Month             int           `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	DayOfWeek         *time.Weekday `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	ComplianceMin     *float64      `json:"compliance_min,omitempty" validate:"omitempty,min=0,max=100"`
	ComplianceMax     *float64      `json:"compliance_max,omitempty" validate:"omitempty,min=0,max=100"`
	CriticalItemsOnly bool          `json:"critical_items_only,omitempty"`
	DateStart         *time.Time    `json:"date_start,omitempty"`
	DateEnd           *time.Time    `json:"date_end,omitempty"`
	SortBy            SortField     `json:"sort_by,omitempty" validate:"omitempty,oneof=timestamp compliance inspector vehicle mileage criticalFailures"`
	SortOrder         SortOrder     `json:"sort_order,omitempty" validate:"omitempty,oneof=asc desc"`
}

// IsZero reports whether no filter dimension is set
func (f Filters) IsZero() bool {
	return f.Search == "" && f.Inspector == "" && f.Vehicle == "" &&
		f.Location == "" && f.Contract == "" && f.Shift == "" &&
		f.RiskLevel == "" && f.Year == 0 && f.Month == 0 &&
		f.DayOfWeek == nil && f.ComplianceMin == nil && f.ComplianceMax == nil &&
		!f.CriticalItemsOnly && f.DateStart == nil && f.DateEnd == nil &&
		f.SortBy == SortNone
}

// Metadata describes a processing run
type Metadata struct {
	ProcessingID   string        `json:"processing_id"`
	FileName       string        `json:"file_name"`
	FileSize       int64         `json:"file_size"`
	SheetName      string        `json:"sheet_name,omitempty"`
	ProcessedAt    time.Time     `json:"processed_at"`
	ProcessingTime time.Duration `json:"processing_time"`
	TotalRows      int           `json:"total_rows"`
	ValidRows      int           `json:"valid_rows"`
	InvalidRows    int           `json:"invalid_rows"`
}

// ProcessedData is everything derived from one loaded file.
// Inspections holds the validated subset; RawInspections holds every row.
type ProcessedData struct {
	Inspections    []Inspection   `json:"inspections"`
	RawInspections []Inspection   `json:"raw_inspections"`
	Columns        ColumnMap      `json:"columns"`
	UniqueValues   UniqueValues   `json:"unique_values"`
	Stats          SystemStats    `json:"stats"`
	ItemAnalysis   []ItemAnalysis `json:"item_analysis"`
	Metadata       Metadata       `json:"metadata"`
}

// View is a filtered slice of a ProcessedData with statistics for that slice
type View struct {
	Filters      Filters        `json:"filters"`
	Inspections  []Inspection   `json:"inspections"`
	Stats        SystemStats    `json:"stats"`
	ItemAnalysis []ItemAnalysis `json:"item_analysis"`
}
