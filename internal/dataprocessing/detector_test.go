package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehinspect/internal/shared/testutil"
	"vehinspect/pkg/contracts/domain"
)

func TestDetectColumns_Scenario(t *testing.T) {
	cols := DetectColumns(testutil.ScenarioHeaders())

	assert.Equal(t, domain.At(0), cols.Timestamp)
	assert.Equal(t, domain.At(1), cols.Inspector)
	assert.Equal(t, domain.At(2), cols.Vehicle)
	assert.False(t, cols.Contract.Set)
	assert.False(t, cols.Mileage.Set)

	require.Len(t, cols.Items, 2)
	assert.Equal(t, domain.ItemColumn{Index: 3, RawName: "**Luces", CleanName: "Luces", IsCritical: true}, cols.Items[0])
	assert.Equal(t, domain.ItemColumn{Index: 4, RawName: "Frenos", CleanName: "Frenos", IsCritical: false}, cols.Items[1])
}

func TestDetectColumns_AllRoles(t *testing.T) {
	cols := DetectColumns(testutil.FullHeaders())

	for _, role := range domain.Roles() {
		assert.True(t, cols.Ref(role).Set, "role %s should resolve", role)
	}
	assert.Equal(t, 12, cols.Observations.Index)
	assert.Len(t, cols.Items, 5)
	assert.Equal(t, 2, cols.CriticalItems())
	assert.Empty(t, cols.Ignored)
}

func TestDetectColumns_Roles(t *testing.T) {
	tests := []struct {
		header string
		role   domain.Role
	}{
		{header: "Marca temporal", role: domain.RoleTimestamp},
		{header: "Fecha", role: domain.RoleTimestamp},
		{header: "Fecha de inspección", role: domain.RoleTimestamp},
		{header: "Timestamp", role: domain.RoleTimestamp},
		{header: "Nombre de quien realiza la inspección", role: domain.RoleInspector},
		{header: "NOMBRE DEL OPERADOR", role: domain.RoleInspector},
		{header: "Placa", role: domain.RoleVehicle},
		{header: "Vehículo asignado", role: domain.RoleVehicle},
		{header: "No. de contrato", role: domain.RoleContract},
		{header: "Ubicación", role: domain.RoleLocation},
		{header: "Sede", role: domain.RoleLocation},
		{header: "Odómetro", role: domain.RoleMileage},
		{header: "Recorrido (km)", role: domain.RoleMileage},
		{header: "Jornada", role: domain.RoleShift},
		{header: "Novedades encontradas", role: domain.RoleObservations},
		{header: "Comentarios", role: domain.RoleObservations},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			cols := DetectColumns([]string{tt.header})
			assert.Equal(t, domain.At(0), cols.Ref(tt.role))
			assert.Empty(t, cols.Items)
		})
	}
}

func TestDetectColumns_Items(t *testing.T) {
	tests := []struct {
		name      string
		headers   []string
		wantItems []string
	}{
		{name: "short headers are skipped", headers: []string{"ID", "Sí", "Aceite"}, wantItems: []string{"Aceite"}},
		{name: "denylisted tokens are skipped", headers: []string{"Score", "TOTAL", "Cumple", "No cumple", "Pito"}, wantItems: []string{"Pito"}},
		{name: "blank headers are skipped", headers: []string{"", "   ", "Pito"}, wantItems: []string{"Pito"}},
		{name: "duplicates get suffixes", headers: []string{"Luces", "**Luces", "luces"}, wantItems: []string{"Luces", "Luces (2)", "luces (3)"}},
		{name: "critical marker bypasses roles", headers: []string{"**Placa visible"}, wantItems: []string{"Placa visible"}},
		{name: "km inside a word is not mileage", headers: []string{"Tapa kmetro"}, wantItems: []string{"Tapa kmetro"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := DetectColumns(tt.headers)
			var names []string
			for _, item := range cols.Items {
				names = append(names, item.CleanName)
			}
			assert.Equal(t, tt.wantItems, names)
		})
	}
}

func TestDetectColumns_FirstMatchWins(t *testing.T) {
	cols := DetectColumns([]string{"Placa", "Placa del remolque", "Estado general"})

	assert.Equal(t, domain.At(0), cols.Vehicle)
	assert.Equal(t, []int{1}, cols.Ignored)
	require.Len(t, cols.Items, 1)
	assert.Equal(t, "Estado general", cols.Items[0].CleanName)
}

func TestDetectColumns_FallsThroughToFreeRole(t *testing.T) {
	// "campo" matches location; once location is taken a header matching
	// both location and observations goes to observations
	cols := DetectColumns([]string{"Campo", "Comentario del campo"})

	assert.Equal(t, domain.At(0), cols.Location)
	assert.Equal(t, domain.At(1), cols.Observations)
}

func TestDetectColumns_Invariants(t *testing.T) {
	headerSets := [][]string{
		testutil.ScenarioHeaders(),
		testutil.FullHeaders(),
		{"Placa", "Placa", "**Placa", "Fecha", "Fecha", "Luces", "Luces"},
		{},
	}

	for _, headers := range headerSets {
		cols := DetectColumns(headers)

		used := make(map[int]bool)
		for _, role := range cols.ResolvedRoles() {
			idx := cols.Ref(role).Index
			assert.False(t, used[idx], "index %d bound twice", idx)
			used[idx] = true
		}

		names := make(map[string]bool)
		for _, item := range cols.Items {
			assert.False(t, used[item.Index], "item overlaps role at %d", item.Index)
			assert.False(t, names[item.CleanName], "duplicate item %q", item.CleanName)
			names[item.CleanName] = true
		}
	}
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "ubicacion del vehiculo", normalizeHeader("  Ubicación   del  VEHÍCULO "))
	assert.Equal(t, "inspeccion", normalizeHeader("INSPECCIÓN"))
	assert.Equal(t, "nino", normalizeHeader("Niño"))
}
