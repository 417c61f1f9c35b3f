package dataprocessing

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"vehinspect/pkg/contracts/domain"
)

// CriticalMarker prefixes the header of a critical inspection item
const CriticalMarker = "**"

// minItemHeaderLength: headers this short or shorter are never items
const minItemHeaderLength = 3

// nonItemHeaders are generic tokens that never name an inspection item
var nonItemHeaders = map[string]bool{
	"score":     true,
	"total":     true,
	"cumple":    true,
	"no cumple": true,
}

// columnRule binds a fixed role to a predicate over a normalized header
type columnRule struct {
	role  domain.Role
	match func(header string) bool
}

// columnRules are evaluated in order; the first rule whose role is still free wins.
var columnRules = []columnRule{
	{domain.RoleTimestamp, func(h string) bool {
		return h == "fecha" || containsAny(h, "marca temporal", "timestamp", "fecha y hora", "fecha de inspeccion")
	}},
	{domain.RoleInspector, func(h string) bool {
		return strings.Contains(h, "nombre") && containsAny(h, "inspector", "realiza", "inspeccion", "conductor", "operador")
	}},
	{domain.RoleVehicle, func(h string) bool {
		return containsAny(h, "placa", "vehiculo", "vehicle")
	}},
	{domain.RoleContract, func(h string) bool {
		return containsAny(h, "contrato", "contract")
	}},
	{domain.RoleLocation, func(h string) bool {
		return containsAny(h, "ubicacion", "campo", "location", "lugar", "sede")
	}},
	{domain.RoleMileage, func(h string) bool {
		return containsAny(h, "kilometraje", "odometro", "mileage") || hasWord(h, "km")
	}},
	{domain.RoleShift, func(h string) bool {
		return containsAny(h, "turno", "shift", "jornada")
	}},
	{domain.RoleObservations, func(h string) bool {
		return containsAny(h, "observacion", "comentario", "observation", "novedad")
	}},
}

// DetectColumns classifies header cells into fixed roles and inspection items.
// It never fails: roles without a matching header stay unset.
func DetectColumns(headers []string) domain.ColumnMap {
	var cols domain.ColumnMap
	seen := make(map[string]int)

	for i, raw := range headers {
		header := strings.TrimSpace(raw)
		if header == "" {
			continue
		}

		critical := strings.HasPrefix(header, CriticalMarker)
		if !critical {
			normalized := normalizeHeader(header)
			role, matched := matchRole(normalized, cols)
			if role != "" {
				cols = cols.WithRole(role, domain.At(i))
				continue
			}
			if matched {
				cols.Ignored = append(cols.Ignored, i)
				continue
			}
		}

		cleanName := strings.TrimSpace(strings.TrimPrefix(header, CriticalMarker))
		if utf8.RuneCountInString(header) <= minItemHeaderLength || cleanName == "" {
			continue
		}
		if nonItemHeaders[normalizeHeader(cleanName)] {
			continue
		}

		cols.Items = append(cols.Items, domain.ItemColumn{
			Index:      i,
			RawName:    raw,
			CleanName:  uniqueName(cleanName, seen),
			IsCritical: critical,
		})
	}

	return cols
}

// matchRole returns the first still-free role whose rule matches.
// matched is true when any rule matched, even if its role was already taken.
func matchRole(header string, cols domain.ColumnMap) (role domain.Role, matched bool) {
	for _, rule := range columnRules {
		if !rule.match(header) {
			continue
		}
		matched = true
		if !cols.Ref(rule.role).Set {
			return rule.role, true
		}
	}
	return "", matched
}

// uniqueName appends " (2)", " (3)"... to repeated item names
func uniqueName(name string, seen map[string]int) string {
	key := strings.ToLower(name)
	seen[key]++
	if n := seen[key]; n > 1 {
		return fmt.Sprintf("%s (%d)", name, n)
	}
	return name
}

// normalizeHeader lower-cases, strips accents and collapses whitespace
func normalizeHeader(s string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		s,
	)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// hasWord reports whether word appears as a standalone alphanumeric token
func hasWord(s, word string) bool {
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if f == word {
			return true
		}
	}
	return false
}
