package delivery

// Phase is the top-level state of a Machine.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseActive
	PhaseSubmitting
	PhaseCompleted
	PhaseError
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseActive:
		return "active"
	case PhaseSubmitting:
		return "submitting"
	case PhaseCompleted:
		return "completed"
	case PhaseError:
		return "error"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

// UpdateKind names a notification sent on Machine.Updates.
type UpdateKind int

const (
	UpdateTick UpdateKind = iota
	UpdateExpired
	UpdateMoved
	UpdateSaved
	UpdatePhase
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateTick:
		return "tick"
	case UpdateExpired:
		return "expired"
	case UpdateMoved:
		return "moved"
	case UpdateSaved:
		return "saved"
	case UpdatePhase:
		return "phase"
	}
	return "unknown"
}

// Update tells an observer that the view has changed.
type Update struct {
	Kind  UpdateKind
	Phase Phase
	Index int

	// Remaining is the countdown value for tick and expired updates.
	Remaining int
}
