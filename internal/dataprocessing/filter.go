package dataprocessing

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"vehinspect/internal/errors"
	"vehinspect/pkg/contracts/domain"
)

// filterValidator reports field errors under their JSON names
var filterValidator = newFilterValidator()

func newFilterValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateFilterRanges, domain.Filters{})
	return v
}

// validateFilterRanges checks constraints that span two fields
func validateFilterRanges(sl validator.StructLevel) {
	f := sl.Current().Interface().(domain.Filters)
	if f.ComplianceMin != nil && f.ComplianceMax != nil && *f.ComplianceMin > *f.ComplianceMax {
		sl.ReportError(f.ComplianceMin, "compliance_min", "ComplianceMin", "ltefield", "compliance_max")
	}
	if f.DateStart != nil && f.DateEnd != nil && f.DateStart.After(*f.DateEnd) {
		sl.ReportError(f.DateStart, "date_start", "DateStart", "ltefield", "date_end")
	}
}

// ValidateFilters rejects malformed filter values with a VALIDATION error
func ValidateFilters(f domain.Filters) error {
	if err := filterValidator.Struct(f); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
		}
		return errors.NewValidationError("invalid filters", err).
			WithContext("fields", fields)
	}
	return nil
}

// ApplyFilters returns the inspections matching every set filter, optionally sorted.
// The input slice is never modified; zero Filters return a copy of the input.
func ApplyFilters(inspections []domain.Inspection, f domain.Filters) []domain.Inspection {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	dateEnd := inclusiveEnd(f.DateEnd)

	out := make([]domain.Inspection, 0, len(inspections))
	for _, insp := range inspections {
		if search != "" && !matchesSearch(insp, search) {
			continue
		}
		if !matchesExact(f, insp) {
			continue
		}
		if !matchesDate(f, dateEnd, insp) {
			continue
		}
		if f.ComplianceMin != nil && insp.Compliance < *f.ComplianceMin {
			continue
		}
		if f.ComplianceMax != nil && insp.Compliance > *f.ComplianceMax {
			continue
		}
		if f.CriticalItemsOnly && !insp.HasCriticalFailures() {
			continue
		}
		out = append(out, insp)
	}

	if f.SortBy != domain.SortNone {
		sortInspections(out, f.SortBy, f.SortOrder)
	}
	return out
}

func matchesSearch(insp domain.Inspection, search string) bool {
	for _, field := range []string{insp.Inspector, insp.Vehicle, insp.Location, insp.Contract, insp.Observations} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func matchesExact(f domain.Filters, insp domain.Inspection) bool {
	return (f.Inspector == "" || insp.Inspector == f.Inspector) &&
		(f.Vehicle == "" || insp.Vehicle == f.Vehicle) &&
		(f.Location == "" || insp.Location == f.Location) &&
		(f.Contract == "" || insp.Contract == f.Contract) &&
		(f.Shift == "" || insp.Shift == f.Shift) &&
		(f.RiskLevel == "" || insp.RiskLevel == f.RiskLevel)
}

// matchesDate applies every timestamp predicate; inspections without a
// timestamp fail as soon as any of them is set.
func matchesDate(f domain.Filters, dateEnd func(time.Time) bool, insp domain.Inspection) bool {
	hasDateFilter := f.Year != 0 || f.Month != 0 || f.DayOfWeek != nil || f.DateStart != nil || f.DateEnd != nil
	if !hasDateFilter {
		return true
	}
	if insp.Timestamp == nil {
		return false
	}
	ts := *insp.Timestamp

	if f.Year != 0 && ts.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(ts.Month()) != f.Month {
		return false
	}
	if f.DayOfWeek != nil && ts.Weekday() != *f.DayOfWeek {
		return false
	}
	if f.DateStart != nil && ts.Before(*f.DateStart) {
		return false
	}
	if f.DateEnd != nil && !dateEnd(ts) {
		return false
	}
	return true
}

// inclusiveEnd returns the upper-bound predicate for DateEnd. A bare date
// (midnight) includes the whole day.
func inclusiveEnd(end *time.Time) func(time.Time) bool {
	if end == nil {
		return func(time.Time) bool { return true }
	}
	e := *end
	if e.Hour() == 0 && e.Minute() == 0 && e.Second() == 0 && e.Nanosecond() == 0 {
		next := e.AddDate(0, 0, 1)
		return func(ts time.Time) bool { return ts.Before(next) }
	}
	return func(ts time.Time) bool { return !ts.After(e) }
}

// sortInspections orders in place, keeping input order between equal keys.
// Inspections without a timestamp sort last in either direction.
func sortInspections(list []domain.Inspection, by domain.SortField, order domain.SortOrder) {
	desc := order == domain.SortDesc
	collator := collate.New(language.Spanish)

	cmp := func(a, b domain.Inspection) int {
		switch by {
		case domain.SortByTimestamp:
			return compareTime(a.Timestamp, b.Timestamp)
		case domain.SortByCompliance:
			return compareFloat(a.Compliance, b.Compliance)
		case domain.SortByInspector:
			return collator.CompareString(a.Inspector, b.Inspector)
		case domain.SortByVehicle:
			return collator.CompareString(a.Vehicle, b.Vehicle)
		case domain.SortByMileage:
			return a.Mileage - b.Mileage
		case domain.SortByCriticalFailed:
			return a.CriticalFailures - b.CriticalFailures
		}
		return 0
	}

	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if by == domain.SortByTimestamp && (a.Timestamp == nil) != (b.Timestamp == nil) {
			return b.Timestamp == nil
		}
		c := cmp(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareTime(a, b *time.Time) int {
	if a == nil || b == nil {
		return 0
	}
	return a.Compare(*b)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
