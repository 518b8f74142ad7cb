package scoring

import (
	"context"
	"sync"
)

// MockOutcome is a canned Submit outcome for the MockClient.
type MockOutcome struct {
	Receipt *Receipt
	Err     error
	// Wait blocks the call until closed or the context ends.
	Wait chan struct{}
}

// MockClient is a deterministic Client for testing.
// It returns canned outcomes in FIFO order and records all submissions.
type MockClient struct {
	mu       sync.Mutex
	outcomes []MockOutcome
	results  map[string]*ScoreSet
	Calls    []Submission
}

// NewMockClient creates a MockClient with the given canned outcomes.
func NewMockClient(outcomes ...MockOutcome) *MockClient {
	return &MockClient{outcomes: outcomes, results: make(map[string]*ScoreSet)}
}

// Submit returns the next canned outcome, or an acceptance when the
// queue is empty.
func (m *MockClient) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, sub)
	var out MockOutcome
	if len(m.outcomes) > 0 {
		out = m.outcomes[0]
		m.outcomes = m.outcomes[1:]
	}
	m.mu.Unlock()

	if out.Wait != nil {
		select {
		case <-out.Wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if out.Err != nil {
		return nil, out.Err
	}
	if out.Receipt != nil {
		return out.Receipt, nil
	}
	return &Receipt{AttemptID: sub.AttemptID, Accepted: true}, nil
}

// FetchResult returns a result set with SetResult, or ErrNotAvailable.
func (m *MockClient) FetchResult(_ context.Context, attemptID string) (*ScoreSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.results[attemptID]; ok {
		return set, nil
	}
	return nil, ErrNotAvailable
}

// AddOutcome appends a canned outcome to the queue.
func (m *MockClient) AddOutcome(out MockOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, out)
}

// SetResult makes a result available for its attempt.
func (m *MockClient) SetResult(set *ScoreSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[set.AttemptID] = set
}

// CallCount returns the number of Submit calls made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
