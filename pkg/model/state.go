package model

// StateKind tags the workspace state variant, persisted in <ws>/.update.
type StateKind int

// The workspace state variants from the core design.
const (
	StateNew StateKind = iota
	StateStable
	StateCorrupted
	StateUpdating
)

var stateKindNames = map[StateKind]string{
	StateNew:       "New",
	StateStable:    "Stable",
	StateCorrupted: "Corrupted",
	StateUpdating:  "Updating",
}

func (k StateKind) String() string {
	if s, ok := stateKindNames[k]; ok {
		return s
	}
	return "New"
}

func (k StateKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

func (k *StateKind) UnmarshalJSON(data []byte) error {
	name := string(data)
	if len(name) >= 2 {
		name = name[1 : len(name)-1]
	}
	for kind, s := range stateKindNames {
		if s == name {
			*k = kind
			return nil
		}
	}
	return NewError(KindSchemaError, "unknown workspace state kind %q", name)
}

// WorkspaceState is the tagged union persisted to <ws>/.update. Only the
// fields relevant to Kind are meaningful; the rest are left at zero
// value, the same shallow-union approach as Operation.
type WorkspaceState struct {
	Version int       `json:"version"`
	Kind    StateKind `json:"kind"`

	// Stable, Corrupted
	StableVersion CleanName `json:"stable_version,omitempty"`

	// Corrupted
	Failures []string `json:"failures,omitempty"`

	// Updating
	From      *CleanName  `json:"from,omitempty"`
	To        CleanName   `json:"to,omitempty"`
	Available []CleanName `json:"available,omitempty"`
	Completed []CleanName `json:"completed,omitempty"`
}

// NewWorkspaceState returns the New-workspace state.
func NewWorkspaceState() *WorkspaceState {
	return &WorkspaceState{Version: SchemaVersion, Kind: StateNew}
}

// StableState returns the Stable{version} state.
func StableState(version CleanName) *WorkspaceState {
	return &WorkspaceState{Version: SchemaVersion, Kind: StateStable, StableVersion: version}
}

// CorruptedState returns the Corrupted{version, failures} state.
func CorruptedState(version CleanName, failures []string) *WorkspaceState {
	return &WorkspaceState{Version: SchemaVersion, Kind: StateCorrupted, StableVersion: version, Failures: failures}
}

// UpdatingState returns the Updating{...} state.
func UpdatingState(from *CleanName, to CleanName, available, completed []CleanName) *WorkspaceState {
	return &WorkspaceState{
		Version:   SchemaVersion,
		Kind:      StateUpdating,
		From:      from,
		To:        to,
		Available: available,
		Completed: completed,
	}
}

// IsCompleted reports whether packageDataName has already been applied
// in an Updating state, used by the executor's resume path.
func (s *WorkspaceState) IsCompleted(packageDataName CleanName) bool {
	for _, c := range s.Completed {
		if c == packageDataName {
			return true
		}
	}
	return false
}
