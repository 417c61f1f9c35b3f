package testutil

import (
	"fmt"
	"time"

	"vehinspect/pkg/contracts/domain"
)

// ScenarioHeaders returns a minimal form header: timestamp, inspector,
// vehicle, one critical item (Luces) and one regular item (Frenos).
func ScenarioHeaders() []string {
	return []string{"Marca temporal", "Nombre completo del inspector", "Placa", "**Luces", "Frenos"}
}

// FullHeaders returns a form header that resolves every fixed role
func FullHeaders() []string {
	return []string{
		"Marca temporal",
		"Nombre del conductor",
		"Placa del vehículo",
		"Contrato",
		"Ubicación / Campo",
		"Kilometraje actual",
		"Turno",
		"**Luces",
		"**Frenos",
		"Llantas",
		"Espejos",
		"Botiquín",
		"Observaciones",
	}
}

// FullRow builds a row matching FullHeaders. answers fill the five item columns in order.
func FullRow(ts time.Time, inspector, vehicle, contract, location string, mileage float64, shift string, answers [5]string, observations string) domain.RawRow {
	row := domain.RawRow{
		domain.TimeCell(ts),
		textCell(inspector),
		textCell(vehicle),
		textCell(contract),
		textCell(location),
		domain.NumberCell(mileage),
		textCell(shift),
	}
	for _, a := range answers {
		row = append(row, textCell(a))
	}
	return append(row, textCell(observations))
}

// FormRow builds a row for ScenarioHeaders-like forms: timestamp, inspector, vehicle, answers...
func FormRow(ts time.Time, inspector, vehicle string, answers ...string) domain.RawRow {
	row := domain.RawRow{domain.TimeCell(ts), textCell(inspector), textCell(vehicle)}
	for _, a := range answers {
		row = append(row, textCell(a))
	}
	return row
}

// NewTable assembles a decoded table
func NewTable(header []string, rows ...domain.RawRow) domain.Table {
	return domain.Table{Header: header, Rows: rows}
}

// GenerateTable builds a deterministic FullHeaders table with n rows that
// covers every risk level, blank answers and rows without inspector.
func GenerateTable(n int, start time.Time) domain.Table {
	answers := []string{"CUMPLE", "NO CUMPLE", "SI", "", "Falta", "OK", "Bueno", "No aplica", "1", "0"}
	shifts := []string{"Día", "Noche"}
	rows := make([]domain.RawRow, n)
	for i := 0; i < n; i++ {
		var set [5]string
		for j := range set {
			// item 0 passes most of the time so compliance stays spread out
			if j == 0 && i%4 != 0 {
				set[j] = "CUMPLE"
				continue
			}
			set[j] = answers[(i*7+j*3)%len(answers)]
		}
		inspector := fmt.Sprintf("Inspector %02d", i%9)
		if i%13 == 0 {
			inspector = ""
		}
		rows[i] = FullRow(
			start.Add(time.Duration(i)*7*time.Hour),
			inspector,
			fmt.Sprintf("VEH%03d", i%17),
			fmt.Sprintf("Contrato %d", i%3),
			fmt.Sprintf("Campo %d", i%5),
			float64(10000+i*37),
			shifts[i%2],
			set,
			"",
		)
	}
	return NewTable(FullHeaders(), rows...)
}

// Pass returns a compliant item result
func Pass(critical bool) domain.ItemResult {
	return domain.ItemResult{Compliant: true, IsCritical: critical, OriginalValue: "CUMPLE"}
}

// Fail returns a non-compliant item result
func Fail(critical bool) domain.ItemResult {
	return domain.ItemResult{Compliant: false, IsCritical: critical, OriginalValue: "NO CUMPLE"}
}

// InspectionOpts describes a pre-scored inspection for aggregation and filter tests
type InspectionOpts struct {
	ID           int
	Timestamp    *time.Time
	Inspector    string
	Vehicle      string
	Contract     string
	Location     string
	Shift        string
	Mileage      int
	Observations string
	Items        map[string]domain.ItemResult
}

// NewInspection scores opts the same way the builder does
func NewInspection(opts InspectionOpts) domain.Inspection {
	insp := domain.Inspection{
		ID:           opts.ID,
		Timestamp:    opts.Timestamp,
		Inspector:    orUnspecified(opts.Inspector),
		Vehicle:      orUnspecified(opts.Vehicle),
		Contract:     orUnspecified(opts.Contract),
		Location:     orUnspecified(opts.Location),
		Shift:        orUnspecified(opts.Shift),
		Observations: orUnspecified(opts.Observations),
		Mileage:      opts.Mileage,
		Items:        make(map[string]domain.ItemResult, len(opts.Items)),
	}
	for name, r := range opts.Items {
		insp.Items[name] = r
		insp.TotalItems++
		if r.Compliant {
			insp.CompliantItems++
		} else if r.IsCritical {
			insp.CriticalFailures++
		}
	}
	insp.Compliance = domain.ComplianceOf(insp.CompliantItems, insp.TotalItems)
	insp.RiskLevel = domain.RiskLevelFor(insp.Compliance)
	return insp
}

// Date returns a pointer to a UTC time
func Date(year int, month time.Month, day, hour int) *time.Time {
	t := time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func textCell(s string) domain.Cell {
	if s == "" {
		return domain.EmptyCell()
	}
	return domain.StringCell(s)
}

func orUnspecified(s string) string {
	if s == "" {
		return domain.Unspecified
	}
	return s
}
