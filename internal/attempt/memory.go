package attempt

import (
	"context"
	"sort"
	"sync"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/timer"
)

// MemoryStore keeps encoded attempts in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	clock timer.Clock
	blobs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore stamping times from clock.
func NewMemoryStore(clock timer.Clock) *MemoryStore {
	return &MemoryStore{clock: clock, blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Create(ctx context.Context, candidateID, componentID string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := NewState(candidateID, componentID, m.clock.Now())
	b, err := Marshal(s)
	if err != nil {
		return nil, err
	}
	m.blobs[s.ID] = b
	return s, nil
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blobs[id]
	if !ok {
		return nil, apperr.NotFound("attempt", id)
	}
	return Unmarshal(b)
}

func (m *MemoryStore) Save(ctx context.Context, s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.blobs[s.ID]; ok {
		prev, err := Unmarshal(b)
		if err != nil {
			return err
		}
		if err := CheckTransition(prev, s); err != nil {
			return err
		}
	}

	s.LastSavedAt = m.clock.Now()
	b, err := Marshal(s)
	if err != nil {
		return err
	}
	m.blobs[s.ID] = b
	return nil
}

func (m *MemoryStore) List(ctx context.Context, candidateID string) ([]*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*State
	for _, b := range m.blobs {
		s, err := Unmarshal(b)
		if err != nil {
			return nil, err
		}
		if s.CandidateID == candidateID {
			out = append(out, s)
		}
	}
	SortByStart(out)
	return out, nil
}

// SortByStart orders attempts oldest first, breaking ties by ID.
func SortByStart(states []*State) {
	sort.Slice(states, func(i, j int) bool {
		if states[i].StartedAt.Equal(states[j].StartedAt) {
			return states[i].ID < states[j].ID
		}
		return states[i].StartedAt.Before(states[j].StartedAt)
	})
}
