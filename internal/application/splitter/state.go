package splitter

// State is the progress of one split run
type State int

const (
	StateNotStarted State = iota
	StatePartitioningInProgress
	StateJobsCreated
	StateSetsLocked
	StateRolledBack
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StatePartitioningInProgress:
		return "PartitioningInProgress"
	case StateJobsCreated:
		return "JobsCreated"
	case StateSetsLocked:
		return "SetsLocked"
	case StateRolledBack:
		return "RolledBack"
	}
	return "Unknown"
}

// IsTerminal reports whether no further transition is defined
func (s State) IsTerminal() bool {
	return s == StateSetsLocked || s == StateRolledBack
}
