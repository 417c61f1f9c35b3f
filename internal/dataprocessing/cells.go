package dataprocessing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"vehinspect/pkg/contracts/domain"
)

// timeLayouts are tried in order for text timestamps. Day-first layouts come
// before ISO ones because form exports are localized.
var timeLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/1/2 15:04:05",
	"2006/1/2",
}

// dotGrouped matches integers written with '.' as thousands separator, e.g. 125.400
var dotGrouped = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// commaDecimal matches a trailing decimal comma, e.g. 125,5 or 1.250,75
var commaDecimal = regexp.MustCompile(`^[\d.,]*\d,\d{1,2}$`)

// cellText coerces a cell to display text.
// Strings are trimmed with internal whitespace collapsed.
func cellText(c domain.Cell) string {
	switch c.Kind {
	case domain.CellString:
		return strings.Join(strings.Fields(c.Str), " ")
	case domain.CellNumber:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return ""
		}
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case domain.CellTime:
		return c.Time.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// isBlank reports whether a cell carries no answer
func isBlank(c domain.Cell) bool {
	switch c.Kind {
	case domain.CellEmpty:
		return true
	case domain.CellString:
		return strings.TrimSpace(c.Str) == ""
	}
	return false
}

// cellInt coerces a cell to a non-negative integer, returning 0 when it cannot.
// Text such as "125,400 km" or "125.400" is accepted. A comma followed by
// one or two digits is a decimal comma, so "125,5 km" reads as 125.
func cellInt(c domain.Cell) int {
	var f float64
	switch c.Kind {
	case domain.CellNumber:
		f = c.Num
	case domain.CellString:
		s := strings.ToLower(strings.Join(strings.Fields(c.Str), ""))
		s = strings.TrimSuffix(s, "kms")
		s = strings.TrimSuffix(s, "km")
		switch {
		case dotGrouped.MatchString(s):
			s = strings.ReplaceAll(s, ".", "")
		case commaDecimal.MatchString(s):
			i := strings.LastIndex(s, ",")
			s = strings.NewReplacer(".", "", ",", "").Replace(s[:i]) + "." + s[i+1:]
		}
		s = strings.ReplaceAll(s, ",", "")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// cellTime coerces a cell to a timestamp, returning nil when it cannot.
// Numbers are read as Excel serial dates.
func cellTime(c domain.Cell) *time.Time {
	switch c.Kind {
	case domain.CellTime:
		t := c.Time
		return &t
	case domain.CellNumber:
		if c.Num <= 0 || math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return nil
		}
		t, err := excelize.ExcelDateToTime(c.Num, false)
		if err != nil {
			return nil
		}
		return &t
	case domain.CellString:
		s := strings.Join(strings.Fields(c.Str), " ")
		if s == "" {
			return nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}
