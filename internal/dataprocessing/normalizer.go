package dataprocessing

import (
	"math"
	"strconv"
	"strings"

	"vehinspect/pkg/contracts/domain"
)

var compliantAnswers = map[string]bool{
	"CUMPLE":   true,
	"SI":       true,
	"SÍ":       true,
	"YES":      true,
	"OK":       true,
	"BIEN":     true,
	"BUENO":    true,
	"CORRECTO": true,
	"PASS":     true,
}

var nonCompliantAnswers = map[string]bool{
	"NO CUMPLE":  true,
	"NO":         true,
	"FAIL":       true,
	"FALLA":      true,
	"MAL":        true,
	"MALO":       true,
	"INCORRECTO": true,
	"DEFICIENTE": true,
}

// failureFragments mark free text as a failure. "NO" also matches answers
// such as "No aplica", which are therefore read as failures.
var failureFragments = []string{"NO", "FALTA", "MALO", "DEFICIENTE", "INCORRECTO", "FAIL"}

// IsCompliant maps a raw answer to a compliance verdict.
// Only strings and string cells can be compliant; anything else fails closed.
func IsCompliant(value any) bool {
	switch v := value.(type) {
	case string:
		return answerCompliant(v)
	case domain.Cell:
		return NormalizeCell(v)
	default:
		return false
	}
}

// NormalizeCell maps a decoded cell to a compliance verdict
func NormalizeCell(c domain.Cell) bool {
	if c.Kind != domain.CellString {
		return false
	}
	return answerCompliant(c.Str)
}

func answerCompliant(raw string) bool {
	answer := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	if answer == "" {
		return false
	}

	if compliantAnswers[answer] {
		return true
	}
	if nonCompliantAnswers[answer] {
		return false
	}

	if f, err := strconv.ParseFloat(strings.Replace(answer, ",", ".", 1), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f > 0
	}

	for _, fragment := range failureFragments {
		if strings.Contains(answer, fragment) {
			return false
		}
	}
	return true
}

// isReservedAnswer reports whether text is a compliance token rather than a
// fixed-role value, which happens when a column was misdetected.
func isReservedAnswer(text string) bool {
	lower := strings.ToLower(text)
	return lower == "cumple" || lower == "no cumple"
}
