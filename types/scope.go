package types

// SnapshotScope selects which artifact classes a pull extracts from a runtime
type SnapshotScope struct {
	Programs       bool `json:"programs"`
	Tags           bool `json:"tags"`
	DataTypes      bool `json:"data_types"`
	Routines       bool `json:"routines"`
	AOIs           bool `json:"aois"`
	ExecutionUnits bool `json:"execution_units"`
	Constants      bool `json:"constants"`
}

// FullScope selects every artifact class
func FullScope() SnapshotScope {
	return SnapshotScope{
		Programs:       true,
		Tags:           true,
		DataTypes:      true,
		Routines:       true,
		AOIs:           true,
		ExecutionUnits: true,
		Constants:      true,
	}
}

// IsEmpty reports whether no artifact class is selected
func (s SnapshotScope) IsEmpty() bool {
	return s == SnapshotScope{}
}

// Categories returns the names of the selected artifact classes
func (s SnapshotScope) Categories() []string {
	var cats []string
	for _, c := range []struct {
		name string
		on   bool
	}{
		{"programs", s.Programs},
		{"tags", s.Tags},
		{"data_types", s.DataTypes},
		{"routines", s.Routines},
		{"aois", s.AOIs},
		{"execution_units", s.ExecutionUnits},
		{"constants", s.Constants},
	} {
		if c.on {
			cats = append(cats, c.name)
		}
	}
	return cats
}
