package attempt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrFrozen is returned when a save would change the answers, position,
// marks or status of a completed attempt.
var ErrFrozen = errors.New("attempt is completed and cannot be modified")

// Store persists attempts. Implementations serialise Save and Load per
// attempt; the last writer wins.
type Store interface {
	// Create starts a new in-progress attempt at item 0 with no answers.
	Create(ctx context.Context, candidateID, componentID string) (*State, error)

	// Load returns the attempt or an *apperr.NotFoundError.
	Load(ctx context.Context, id string) (*State, error)

	// Save writes the full state and stamps LastSavedAt.
	Save(ctx context.Context, s *State) error

	// List returns a candidate's attempts, oldest first.
	List(ctx context.Context, candidateID string) ([]*State, error)
}

// NewState builds the initial state every backend's Create persists.
func NewState(candidateID, componentID string, now time.Time) *State {
	return &State{
		ID:          uuid.NewString(),
		CandidateID: candidateID,
		ComponentID: componentID,
		Answers:     []*Answer{},
		Status:      StatusInProgress,
		StartedAt:   now,
		LastSavedAt: now,
		Marked:      []int{},
	}
}

// CheckTransition enforces that a completed attempt's core fields never
// change. prev may be nil for a first write.
func CheckTransition(prev, next *State) error {
	if prev == nil || !prev.Frozen() {
		return nil
	}
	a, err := coreOf(prev)
	if err != nil {
		return err
	}
	b, err := coreOf(next)
	if err != nil {
		return err
	}
	if !bytes.Equal(a, b) {
		return ErrFrozen
	}
	return nil
}

func coreOf(s *State) ([]byte, error) {
	return json.Marshal(struct {
		Answers []*Answer `json:"a"`
		Index   int       `json:"i"`
		Marked  []int     `json:"m"`
		Status  Status    `json:"s"`
	}{s.Answers, s.CurrentIndex, s.Marked, s.Status})
}
