package dataprocessing

import (
	"vehinspect/pkg/contracts/domain"
)

// BuildInspection scores one data row. rowIndex is the zero-based position of
// the row below the header and becomes ID rowIndex+1.
// Malformed cells degrade to defaults; building never fails.
func BuildInspection(row domain.RawRow, cols domain.ColumnMap, rowIndex int) domain.Inspection {
	insp := domain.Inspection{
		ID:           rowIndex + 1,
		Inspector:    fixedText(row, cols.Inspector),
		Vehicle:      fixedText(row, cols.Vehicle),
		Contract:     fixedText(row, cols.Contract),
		Location:     fixedText(row, cols.Location),
		Shift:        fixedText(row, cols.Shift),
		Observations: fixedText(row, cols.Observations),
		Items:        make(map[string]domain.ItemResult, len(cols.Items)),
	}

	if idx, ok := cols.Timestamp.Lookup(); ok {
		insp.Timestamp = cellTime(row.At(idx))
	}
	if idx, ok := cols.Mileage.Lookup(); ok {
		insp.Mileage = cellInt(row.At(idx))
	}

	for _, item := range cols.Items {
		cell := row.At(item.Index)
		if isBlank(cell) {
			continue
		}

		compliant := NormalizeCell(cell)
		insp.TotalItems++
		if compliant {
			insp.CompliantItems++
		} else if item.IsCritical {
			insp.CriticalFailures++
		}

		insp.Items[item.CleanName] = domain.ItemResult{
			Compliant:     compliant,
			IsCritical:    item.IsCritical,
			OriginalValue: cellText(cell),
		}
	}

	insp.Compliance = domain.ComplianceOf(insp.CompliantItems, insp.TotalItems)
	insp.RiskLevel = domain.RiskLevelFor(insp.Compliance)
	return insp
}

// BuildInspections scores rows in order, numbering them from offset
func BuildInspections(rows []domain.RawRow, cols domain.ColumnMap, offset int) []domain.Inspection {
	out := make([]domain.Inspection, len(rows))
	for i, row := range rows {
		out[i] = BuildInspection(row, cols, offset+i)
	}
	return out
}

// ValidInspections returns the inspections whose inspector and vehicle are known
func ValidInspections(inspections []domain.Inspection) []domain.Inspection {
	valid := make([]domain.Inspection, 0, len(inspections))
	for _, insp := range inspections {
		if insp.IsValid() {
			valid = append(valid, insp)
		}
	}
	return valid
}

// fixedText reads a fixed-role cell, substituting the placeholder when the
// column is absent, the cell is blank, or it holds a compliance token.
func fixedText(row domain.RawRow, ref domain.ColumnRef) string {
	idx, ok := ref.Lookup()
	if !ok {
		return domain.Unspecified
	}
	text := cellText(row.At(idx))
	if text == "" || isReservedAnswer(text) {
		return domain.Unspecified
	}
	return text
}
