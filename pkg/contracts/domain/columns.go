package domain

// Role is the semantic meaning assigned to a fixed header column
type Role string

const (
	RoleTimestamp    Role = "timestamp"
	RoleInspector    Role = "inspector"
	RoleVehicle      Role = "vehicle"
	RoleContract     Role = "contract"
	RoleLocation     Role = "location"
	RoleMileage      Role = "mileage"
	RoleShift        Role = "shift"
	RoleObservations Role = "observations"
)

// Roles returns the fixed roles in detection priority order
func Roles() []Role {
	return []Role{
		RoleTimestamp,
		RoleInspector,
		RoleVehicle,
		RoleContract,
		RoleLocation,
		RoleMileage,
		RoleShift,
		RoleObservations,
	}
}

// ColumnRef is an optional column index. The zero value means the role was not found.
type ColumnRef struct {
	Index int  `json:"index"`
	Set   bool `json:"set"`
}

// At returns a resolved column reference
func At(index int) ColumnRef {
	return ColumnRef{Index: index, Set: true}
}

// Lookup returns the index and whether it was resolved
func (c ColumnRef) Lookup() (int, bool) {
	return c.Index, c.Set
}

// ItemColumn describes one inspection-item column
type ItemColumn struct {
	Index      int    `json:"index"`
	RawName    string `json:"raw_name"`
	CleanName  string `json:"clean_name"`
	IsCritical bool   `json:"is_critical"`
}

// ColumnMap is the per-file mapping from header position to semantic role.
// It is built once from the header row and never modified afterwards.
type ColumnMap struct {
	Timestamp    ColumnRef    `json:"timestamp"`
	Inspector    ColumnRef    `json:"inspector"`
	Vehicle      ColumnRef    `json:"vehicle"`
	Contract     ColumnRef    `json:"contract"`
	Location     ColumnRef    `json:"location"`
	Mileage      ColumnRef    `json:"mileage"`
	Shift        ColumnRef    `json:"shift"`
	Observations ColumnRef    `json:"observations"`
	Items        []ItemColumn `json:"items"`
	// Ignored holds headers that matched a role already taken by an earlier column.
	Ignored []int `json:"ignored,omitempty"`
}

// Ref returns the column reference for a role
func (m ColumnMap) Ref(role Role) ColumnRef {
	switch role {
	case RoleTimestamp:
		return m.Timestamp
	case RoleInspector:
		return m.Inspector
	case RoleVehicle:
		return m.Vehicle
	case RoleContract:
		return m.Contract
	case RoleLocation:
		return m.Location
	case RoleMileage:
		return m.Mileage
	case RoleShift:
		return m.Shift
	case RoleObservations:
		return m.Observations
	}
	return ColumnRef{}
}

// WithRole returns a copy of the map with role bound to ref
func (m ColumnMap) WithRole(role Role, ref ColumnRef) ColumnMap {
	switch role {
	case RoleTimestamp:
		m.Timestamp = ref
	case RoleInspector:
		m.Inspector = ref
	case RoleVehicle:
		m.Vehicle = ref
	case RoleContract:
		m.Contract = ref
	case RoleLocation:
		m.Location = ref
	case RoleMileage:
		m.Mileage = ref
	case RoleShift:
		m.Shift = ref
	case RoleObservations:
		m.Observations = ref
	}
	return m
}

// ResolvedRoles lists the roles that were bound to a column
func (m ColumnMap) ResolvedRoles() []Role {
	var out []Role
	for _, role := range Roles() {
		if m.Ref(role).Set {
			out = append(out, role)
		}
	}
	return out
}

// CriticalItems counts item columns flagged as critical
func (m ColumnMap) CriticalItems() int {
	n := 0
	for _, item := range m.Items {
		if item.IsCritical {
			n++
		}
	}
	return n
}
