package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/config"
	"github.com/candidus/assessor/internal/content"
	"github.com/candidus/assessor/internal/delivery"
	"github.com/candidus/assessor/internal/results"
	"github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/scoring"
	"github.com/candidus/assessor/internal/store"
	"github.com/candidus/assessor/internal/timer"
)

// ErrSessionClosed is returned by every Session method after Close.
var ErrSessionClosed = errors.New("session is closed")

// ErrNotCompleted is returned by Result for an attempt still in progress.
var ErrNotCompleted = errors.New("attempt is not completed")

// Options holds the collaborators of a Session. Attempts, Content, Scoring
// and RubricRepo are required.
type Options struct {
	Attempts   attempt.Store
	Journal    attempt.Journal
	Content    content.Source
	Scoring    scoring.Client
	Recorder   *scoring.Recorder
	RubricRepo rubric.Repo
	Clock      timer.Clock
	Log        *zap.Logger
	Delivery   delivery.Config

	// Closers run in order on Close, after every machine has shut down.
	Closers []func() error
}

// Session is the process-wide context shared by every screen and handler.
// Close tears it down and clears every reference it holds.
type Session struct {
	Attempts attempt.Store
	Journal  attempt.Journal
	Content  content.Source
	Scoring  scoring.Client
	// Recorder is set when scoring runs in-process.
	Recorder *scoring.Recorder
	Rubric   *rubric.Manager
	Results  *results.Service
	Clock    timer.Clock
	Log      *zap.Logger

	delivery delivery.Config
	closers  []func() error

	mu       sync.Mutex
	machines map[string]*delivery.Machine
	closed   bool
}

// New builds a Session from opts and loads the committed rubric.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Attempts == nil || opts.Content == nil || opts.Scoring == nil || opts.RubricRepo == nil {
		return nil, errors.New("app: attempts, content, scoring and rubric repo are required")
	}
	if opts.Journal == nil {
		opts.Journal = attempt.NopJournal{}
	}
	if opts.Clock == nil {
		opts.Clock = timer.RealClock{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Delivery == (delivery.Config{}) {
		opts.Delivery = delivery.DefaultConfig()
	}

	mgr := rubric.NewManager(opts.RubricRepo, opts.Log.Named("rubric"))
	if err := mgr.Load(ctx); err != nil {
		return nil, err
	}

	return &Session{
		Attempts: opts.Attempts,
		Journal:  opts.Journal,
		Content:  opts.Content,
		Scoring:  opts.Scoring,
		Recorder: opts.Recorder,
		Rubric:   mgr,
		Results:  results.NewService(opts.Scoring, mgr, opts.Log),
		Clock:    opts.Clock,
		Log:      opts.Log,
		delivery: opts.Delivery,
		closers:  opts.Closers,
		machines: make(map[string]*delivery.Machine),
	}, nil
}

// NewSession wires every backend named in cfg.
func NewSession(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dsn := cfg.Store.DSN
	if dsn == "" && cfg.Store.Driver == string(store.DriverSQLite) {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
		dsn = p
	}
	st, err := store.Open(ctx, store.Driver(cfg.Store.Driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	clock := timer.RealClock{}
	opts := Options{
		Attempts:   st.AttemptRepo(clock),
		Journal:    st.Journal(),
		RubricRepo: st.RubricRepo(clock),
		Clock:      clock,
		Log:        log,
		Delivery:   cfg.Delivery,
		Closers:    []func() error{st.Close},
	}

	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			st.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		opts.Attempts = store.NewRedisAttemptStore(rdb, cfg.Redis.TTL, clock)
		opts.Closers = append([]func() error{rdb.Close}, opts.Closers...)
		log.Info("attempts stored in redis", zap.String("addr", cfg.Redis.Addr))
	}

	release := func() {
		for _, c := range opts.Closers {
			c()
		}
	}
	if opts.Content, err = content.New(cfg.Content); err != nil {
		release()
		return nil, err
	}
	if opts.Scoring, opts.Recorder, err = scoring.NewClient(cfg.Scoring, log); err != nil {
		release()
		return nil, err
	}

	s, err := New(ctx, opts)
	if err != nil {
		release()
		return nil, err
	}
	return s, nil
}

// Begin creates an attempt of componentID for candidateID and starts
// delivering it.
func (s *Session) Begin(ctx context.Context, candidateID, componentID string) (*delivery.Machine, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if _, err := s.Content.FetchComponent(ctx, componentID); err != nil {
		return nil, err
	}
	st, err := s.Attempts.Create(ctx, candidateID, componentID)
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	s.Log.Info("attempt created",
		zap.String("attempt", st.ID),
		zap.String("candidate", candidateID),
		zap.String("component", componentID))
	return s.Resume(ctx, st.ID)
}

// Resume returns the running machine for attemptID, starting one if
// needed.
func (s *Session) Resume(ctx context.Context, attemptID string) (*delivery.Machine, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if m, ok := s.machines[attemptID]; ok {
		s.mu.Unlock()
		return m, nil
	}
	s.mu.Unlock()

	m, err := delivery.New(delivery.Deps{
		Content:  s.Content,
		Attempts: s.Attempts,
		Scoring:  s.Scoring,
		Journal:  s.Journal,
		Clock:    s.Clock,
		Log:      s.Log,
	}, s.delivery)
	if err != nil {
		return nil, err
	}
	if err := m.Start(ctx, attemptID); err != nil {
		m.Close(context.Background())
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		m.Close(context.Background())
		return nil, ErrSessionClosed
	}
	if existing, ok := s.machines[attemptID]; ok {
		s.mu.Unlock()
		m.Close(context.Background())
		return existing, nil
	}
	s.machines[attemptID] = m
	s.mu.Unlock()

	go func() {
		<-m.Done()
		s.mu.Lock()
		if s.machines[attemptID] == m {
			delete(s.machines, attemptID)
		}
		s.mu.Unlock()
	}()
	return m, nil
}

// List returns a candidate's attempts, oldest first.
func (s *Session) List(ctx context.Context, candidateID string) ([]*attempt.State, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.Attempts.List(ctx, candidateID)
}

// Result returns the assembled result of a completed attempt, or a
// processing placeholder while scoring is under way.
func (s *Session) Result(ctx context.Context, attemptID string) (*results.Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	st, err := s.Attempts.Load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if !st.Frozen() {
		return nil, fmt.Errorf("%w: %s", ErrNotCompleted, attemptID)
	}
	r, err := s.Results.Fetch(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if r.CandidateID == "" {
		r.CandidateID = st.CandidateID
	}
	return r, nil
}

// Close shuts down every running machine, saving their progress, then
// releases the backends. Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	machines := make([]*delivery.Machine, 0, len(s.machines))
	for _, m := range s.machines {
		machines = append(machines, m)
	}
	s.machines = nil
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var errs []error
	for _, m := range machines {
		if err := m.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}

	s.Attempts = nil
	s.Journal = nil
	s.Content = nil
	s.Scoring = nil
	s.Recorder = nil
	s.Rubric = nil
	s.Results = nil
	return errors.Join(errs...)
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// IsNotFound reports whether err means the attempt or component is missing.
func IsNotFound(err error) bool { return apperr.IsNotFound(err) }
