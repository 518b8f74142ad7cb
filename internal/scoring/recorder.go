package scoring

import (
	"context"
	"maps"
	"sync"
)

// Recorder is an in-process scoring boundary. It accepts each attempt
// once, remembers the submission and serves whatever results are
// published for it.
type Recorder struct {
	mu          sync.Mutex
	submissions map[string]Submission
	results     map[string]ScoreSet
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		submissions: make(map[string]Submission),
		results:     make(map[string]ScoreSet),
	}
}

func (r *Recorder) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.submissions[sub.AttemptID]; ok {
		return &Receipt{AttemptID: sub.AttemptID, Accepted: true, Duplicate: true}, nil
	}
	r.submissions[sub.AttemptID] = sub
	return &Receipt{AttemptID: sub.AttemptID, Accepted: true}, nil
}

func (r *Recorder) FetchResult(ctx context.Context, attemptID string) (*ScoreSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.results[attemptID]
	if !ok {
		return nil, ErrNotAvailable
	}
	set.Scores = maps.Clone(set.Scores)
	set.Subskills = maps.Clone(set.Subskills)
	return &set, nil
}

// Publish makes a result available.
func (r *Recorder) Publish(set ScoreSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[set.AttemptID] = set
}

// Submission returns the accepted submission for attemptID.
func (r *Recorder) Submission(attemptID string) (Submission, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[attemptID]
	return s, ok
}

// Accepted returns the number of distinct attempts accepted.
func (r *Recorder) Accepted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.submissions)
}
