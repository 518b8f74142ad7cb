// Package delivery runs one candidate attempt through a component: item
// cursor, answer capture, per-item countdowns, autosave, review marks and
// the hand-off to the scoring boundary.
//
// A Machine owns a single loop goroutine. Public methods enqueue a command
// and wait for its result, so commands, timer events and autosave ticks are
// applied one at a time and never interleave with a persistence write.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/content"
	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/scoring"
	"github.com/candidus/assessor/internal/timer"
)

var (
	ErrClosed          = errors.New("delivery machine is closed")
	ErrStarted         = errors.New("delivery machine already started")
	ErrNotActive       = errors.New("attempt is not active")
	ErrFirstItem       = errors.New("already at the first item")
	ErrNotResubmitable = errors.New("attempt has no pending submission")
	ErrTimeUp          = errors.New("time is up for this item")
	ErrNotCurrent      = errors.New("item is no longer shown")
)

// Deps are the collaborators a Machine drives.
type Deps struct {
	Content  content.Source
	Attempts attempt.Store
	Scoring  scoring.Client

	// Optional.
	Journal attempt.Journal
	Clock   timer.Clock
	Log     *zap.Logger
}

type command struct {
	ctx   context.Context
	fn    func(ctx context.Context) error
	reply chan error
}

type submitResult struct {
	gen     uint64
	receipt *scoring.Receipt
	err     error
}

// Machine is the delivery state machine for one attempt.
type Machine struct {
	deps Deps
	cfg  Config
	log  *zap.Logger

	cmds    chan command
	timerC  chan timer.Event
	submitC chan submitResult
	updates chan Update

	life       context.Context
	cancelLife context.CancelFunc
	quit       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	closeErr   error
	started    atomic.Bool
	snap       atomic.Pointer[View]

	// Owned by the loop goroutine.
	phase        Phase
	comp         *question.Component
	st           *attempt.State
	dirty        bool
	touched      bool
	err          error
	countdown    *timer.Countdown
	remaining    int
	// overdue is set when the current item's time ran out but the advance
	// that follows could not be written. Autosave retries it.
	overdue      bool
	epoch        uint64
	autosave     timer.Ticker
	submitCancel context.CancelFunc
	submitGen    uint64
}

// New returns a Machine in the Loading phase. Call Start to load an
// attempt and Close to tear it down.
func New(deps Deps, cfg Config) (*Machine, error) {
	if deps.Content == nil || deps.Attempts == nil || deps.Scoring == nil {
		return nil, errors.New("delivery: content, attempts and scoring are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Journal == nil {
		deps.Journal = attempt.NopJournal{}
	}
	if deps.Clock == nil {
		deps.Clock = timer.RealClock{}
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	life, cancel := context.WithCancel(context.Background())
	m := &Machine{
		deps:       deps,
		cfg:        cfg,
		log:        deps.Log.Named("delivery"),
		cmds:       make(chan command),
		timerC:     make(chan timer.Event, 4),
		submitC:    make(chan submitResult, 1),
		updates:    make(chan Update, cfg.UpdateBuffer),
		life:       life,
		cancelLife: cancel,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		phase:      PhaseLoading,
	}
	m.publishSnapshot()
	go m.run()
	return m, nil
}

// Updates returns the notification stream. It is closed when the machine
// shuts down. Updates are dropped when the reader falls behind; View is
// always current.
func (m *Machine) Updates() <-chan Update { return m.updates }

// View returns the latest snapshot.
func (m *Machine) View() View { return *m.snap.Load() }

// Done is closed once the machine has shut down.
func (m *Machine) Done() <-chan struct{} { return m.done }

// Start loads the attempt and its component definition. An in-progress
// attempt resumes at its stored item; a completed attempt whose submission
// was never acknowledged is resubmitted; an acknowledged one opens as
// Completed. A load failure moves the machine to the Error phase.
func (m *Machine) Start(ctx context.Context, attemptID string) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	return m.do(ctx, func(ctx context.Context) error {
		return m.load(ctx, attemptID)
	})
}

// Answer records v as the in-progress answer for the current item. The
// value need not be complete. A nil value clears the slot.
func (m *Machine) Answer(ctx context.Context, v question.Value) error {
	return m.do(ctx, func(ctx context.Context) error {
		return m.answer(v)
	})
}

// AnswerAt is Answer for item, which must still be the current item. It
// returns ErrNotCurrent once the cursor has moved on.
func (m *Machine) AnswerAt(ctx context.Context, item int, v question.Value) error {
	return m.do(ctx, func(ctx context.Context) error {
		if err := m.requireActive(); err != nil {
			return err
		}
		if m.st.CurrentIndex != item {
			return ErrNotCurrent
		}
		return m.answer(v)
	})
}

func (m *Machine) answer(v question.Value) error {
	if err := m.requireActive(); err != nil {
		return err
	}
	if m.overdue {
		return ErrTimeUp
	}
	q, i := m.current(), m.st.CurrentIndex
	if v == nil {
		if m.st.Answers[i] != nil {
			m.st.Answers[i] = nil
			m.dirty = true
		}
		m.touched = false
		return nil
	}
	if v.Type() != q.Type {
		return &apperr.ValidationError{
			QuestionID: q.ID,
			Rule:       "type",
			Message:    fmt.Sprintf("a %s answer cannot fill a %s question", v.Type(), q.Type),
		}
	}
	m.st.Answers[i] = &attempt.Answer{
		Value:       v,
		Provenance:  attempt.ProvenanceAnswered,
		TimeSpentMs: m.elapsedMs(),
		Timestamp:   m.deps.Clock.Now(),
	}
	m.touched = true
	m.dirty = true
	return nil
}

// Next advances when the current answer is complete, or when the item is
// malformed and therefore skippable. On the last item it submits.
func (m *Machine) Next(ctx context.Context) error {
	return m.do(ctx, func(ctx context.Context) error {
		if err := m.requireActive(); err != nil {
			return err
		}
		q, i := m.current(), m.st.CurrentIndex
		if question.Skippable(q) {
			m.recordEmpty(i, attempt.ProvenanceSkipped)
		} else if !m.overdue {
			var v question.Value
			if a := m.st.Answers[i]; a != nil {
				v = a.Value
			}
			if err := question.Check(q, v); err != nil {
				return err
			}
		}
		m.stampCurrent()
		if m.isLast(i) {
			return m.submit(ctx)
		}
		return m.move(ctx, i+1)
	})
}

// Skip advances without requiring an answer. An existing answer is kept;
// an empty slot is recorded as skipped. On the last item Skip records the
// slot and stays; Submit completes the attempt.
func (m *Machine) Skip(ctx context.Context) error {
	return m.do(ctx, func(ctx context.Context) error {
		if err := m.requireActive(); err != nil {
			return err
		}
		i := m.st.CurrentIndex
		if m.recordEmpty(i, attempt.ProvenanceSkipped) {
			m.journal(ctx, attempt.EventSkipped, i, "")
		}
		m.stampCurrent()
		if m.isLast(i) {
			return m.flush(ctx)
		}
		return m.move(ctx, i+1)
	})
}

// Previous returns to the prior item. It never requires completeness and
// keeps the in-progress answer of the item being left.
func (m *Machine) Previous(ctx context.Context) error {
	return m.do(ctx, func(ctx context.Context) error {
		if err := m.requireActive(); err != nil {
			return err
		}
		i := m.st.CurrentIndex
		if i == 0 {
			return ErrFirstItem
		}
		m.stampCurrent()
		return m.move(ctx, i-1)
	})
}

// Jump moves directly to item j.
func (m *Machine) Jump(ctx context.Context, j int) error {
	return m.do(ctx, func(ctx context.Context) error {
		if err := m.requireActive(); err != nil {
			return err
		}
		if j < 0 || j >= len(m.comp.Items) {
			return fmt.Errorf("item %d outside 1..%d", j+1, len(m.comp.Items))
		}
		if j == m.st.CurrentIndex {
			return nil
		}
		m.stampCurrent()
		return m.move(ctx, j)
	})
}

// ToggleMark flips the review mark on the current item and reports the new
// state.
func (m *Machine) ToggleMark(ctx context.Context) (bool, error) {
	var marked bool
	err := m.do(ctx, func(ctx context.Context) error {
		if err := m.requireActive(); err != nil {
			return err
		}
		marked = m.st.ToggleMark(m.st.CurrentIndex)
		m.dirty = true
		return nil
	})
	return marked, err
}

// Submit freezes the attempt and hands it to the scoring boundary. It does
// not require the current item to be complete; unanswered items are sent
// as skipped.
func (m *Machine) Submit(ctx context.Context) error {
	return m.do(ctx, func(ctx context.Context) error {
		if err := m.requireActive(); err != nil {
			return err
		}
		m.stampCurrent()
		return m.submit(ctx)
	})
}

// Resubmit retries a submission that failed. The boundary deduplicates by
// attempt ID.
func (m *Machine) Resubmit(ctx context.Context) error {
	return m.do(ctx, func(ctx context.Context) error {
		if m.st == nil || !m.st.Frozen() || m.st.SubmittedAt != nil {
			return ErrNotResubmitable
		}
		switch m.phase {
		case PhaseSubmitting:
			return nil
		case PhaseError:
			m.err = nil
			m.setPhase(PhaseSubmitting)
			m.beginSubmit()
			return nil
		}
		return ErrNotResubmitable
	})
}

// SaveAndExit persists the working copy without changing its status and
// shuts the machine down. It is always permitted.
func (m *Machine) SaveAndExit(ctx context.Context) error {
	err := m.do(ctx, func(ctx context.Context) error {
		if m.st == nil {
			return nil
		}
		if m.phase == PhaseActive {
			m.stampCurrent()
		}
		m.dirty = true
		if err := m.flush(ctx); err != nil {
			return err
		}
		m.journal(ctx, attempt.EventSaved, m.st.CurrentIndex, "save and exit")
		return nil
	})
	if err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return m.Close(ctx)
}

// Close stops the countdown and autosave tasks, cancels any in-flight
// submission, writes unsaved progress and waits for the loop to exit.
// Close is idempotent.
func (m *Machine) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		m.cancelLife()
		close(m.quit)
	})
	select {
	case <-m.done:
		return m.closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Machine) do(ctx context.Context, fn func(ctx context.Context) error) error {
	c := command{ctx: ctx, fn: fn, reply: make(chan error, 1)}
	select {
	case m.cmds <- c:
	case <-m.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.reply:
		return err
	case <-m.done:
		return ErrClosed
	}
}

func (m *Machine) run() {
	defer close(m.done)
	for {
		var autosaveC <-chan time.Time
		if m.autosave != nil {
			autosaveC = m.autosave.C()
		}

		select {
		case <-m.quit:
			m.closeErr = m.teardown()
			return

		case c := <-m.cmds:
			ctx, cancel := m.opContext(c.ctx)
			err := c.fn(ctx)
			cancel()
			m.publishSnapshot()
			c.reply <- err

		case ev := <-m.timerC:
			m.onTimer(ev)
			m.publishSnapshot()

		case <-autosaveC:
			m.onAutosave()
			m.publishSnapshot()

		case res := <-m.submitC:
			m.onSubmitted(res)
			m.publishSnapshot()
		}
	}
}

// opContext derives a context that ends with either the caller's context
// or the machine.
func (m *Machine) opContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(m.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (m *Machine) load(ctx context.Context, attemptID string) error {
	st, err := m.deps.Attempts.Load(ctx, attemptID)
	if err != nil {
		return m.fail(fmt.Errorf("load attempt: %w", err))
	}
	comp, err := m.deps.Content.FetchComponent(ctx, st.ComponentID)
	if err != nil {
		return m.fail(fmt.Errorf("load component: %w", err))
	}
	if err := st.Check(len(comp.Items)); err != nil {
		return m.fail(err)
	}
	st.Resize(len(comp.Items))
	m.comp, m.st = comp, st
	m.log = m.log.With(zap.String("attempt", st.ID))

	switch {
	case st.Status == attempt.StatusInProgress:
		kind := attempt.EventResumed
		if len(st.Visited) == 0 {
			kind = attempt.EventStarted
		}
		if !st.IsVisited(st.CurrentIndex) {
			st.Visit(st.CurrentIndex)
			m.dirty = true
		}
		m.journal(ctx, kind, st.CurrentIndex, comp.ID)
		m.log.Info("attempt active", zap.String("component", comp.ID), zap.Int("item", st.CurrentIndex))
		m.setPhase(PhaseActive)
		m.startAutosave()
		m.startTimer()

	case st.SubmittedAt == nil:
		m.log.Info("resuming unacknowledged submission")
		m.setPhase(PhaseSubmitting)
		m.beginSubmit()

	default:
		m.setPhase(PhaseCompleted)
	}
	return nil
}

func (m *Machine) fail(err error) error {
	m.err = err
	m.log.Warn("delivery failed", zap.Error(err))
	m.setPhase(PhaseError)
	return err
}

func (m *Machine) requireActive() error {
	if m.phase != PhaseActive {
		return fmt.Errorf("%w (phase %s)", ErrNotActive, m.phase)
	}
	return nil
}

func (m *Machine) current() *question.Question {
	return &m.comp.Items[m.st.CurrentIndex]
}

func (m *Machine) isLast(i int) bool {
	return i == len(m.comp.Items)-1
}

// recordEmpty fills an empty slot with a marker of the given provenance and
// reports whether it did.
func (m *Machine) recordEmpty(i int, p attempt.Provenance) bool {
	if m.st.Answers[i] != nil {
		return false
	}
	m.st.Answers[i] = &attempt.Answer{
		Provenance:  p,
		TimeSpentMs: m.elapsedMs(),
		Timestamp:   m.deps.Clock.Now(),
	}
	m.dirty = true
	return true
}

// stampCurrent records the time spent on the current item if its answer
// changed while it was shown.
func (m *Machine) stampCurrent() {
	if !m.touched {
		return
	}
	if a := m.st.Answers[m.st.CurrentIndex]; a != nil {
		a.TimeSpentMs = m.elapsedMs()
		m.dirty = true
	}
}

// elapsedMs is the configured timer minus the seconds remaining, or zero
// for untimed items.
func (m *Machine) elapsedMs() int64 {
	q := m.current()
	if !q.Timed() {
		return 0
	}
	return int64(q.TimerSec-m.remaining) * 1000
}

// move persists the working copy with the cursor on item to, then enters
// it. On a failed write the cursor stays where it was.
func (m *Machine) move(ctx context.Context, to int) error {
	from := m.st.CurrentIndex
	visited := slices.Clone(m.st.Visited)

	m.st.CurrentIndex = to
	m.st.Visit(to)
	m.dirty = true
	if err := m.flush(ctx); err != nil {
		m.st.CurrentIndex = from
		m.st.Visited = visited
		return err
	}

	m.stopTimer()
	m.touched = false
	m.overdue = false
	m.startTimer()
	m.publish(Update{Kind: UpdateMoved, Index: to})
	return nil
}

// flush writes the working copy if it has unsaved changes.
func (m *Machine) flush(ctx context.Context) error {
	if !m.dirty {
		return nil
	}
	if err := m.deps.Attempts.Save(ctx, m.st); err != nil {
		m.log.Warn("save attempt", zap.Error(err))
		return fmt.Errorf("save attempt: %w", err)
	}
	m.dirty = false
	m.publish(Update{Kind: UpdateSaved, Index: m.st.CurrentIndex})
	return nil
}

func (m *Machine) submit(ctx context.Context) error {
	m.stopTimer()
	now := m.deps.Clock.Now()
	m.st.Status = attempt.StatusCompleted
	m.st.CompletedAt = &now
	m.dirty = true
	if err := m.flush(ctx); err != nil {
		m.st.Status = attempt.StatusInProgress
		m.st.CompletedAt = nil
		m.startTimer()
		return err
	}

	m.stopAutosave()
	m.journal(ctx, attempt.EventSubmitted, m.st.CurrentIndex, "")
	m.setPhase(PhaseSubmitting)
	m.beginSubmit()
	return nil
}

// beginSubmit hands the frozen attempt to the scoring boundary on its own
// goroutine so the loop stays responsive and Close can cancel it.
func (m *Machine) beginSubmit() {
	sub, err := scoring.BuildSubmission(m.comp, m.st)
	if err != nil {
		m.fail(err)
		return
	}

	ctx, cancel := context.WithTimeout(m.life, m.cfg.SubmitTimeout)
	m.submitCancel = cancel
	m.submitGen++
	gen := m.submitGen

	go func() {
		r, err := m.deps.Scoring.Submit(ctx, *sub)
		select {
		case m.submitC <- submitResult{gen: gen, receipt: r, err: err}:
		case <-m.quit:
		}
	}()
}

func (m *Machine) onSubmitted(res submitResult) {
	if res.gen != m.submitGen || m.phase != PhaseSubmitting {
		return
	}
	if m.submitCancel != nil {
		m.submitCancel()
		m.submitCancel = nil
	}

	err := res.err
	if err == nil && (res.receipt == nil || !res.receipt.Accepted) {
		err = &scoring.ErrRejected{Reason: "submission not accepted"}
	}
	if err != nil {
		var rej *scoring.ErrRejected
		m.err = &apperr.SubmissionError{
			AttemptID: m.st.ID,
			Retryable: !errors.As(err, &rej),
			Err:       err,
		}
		m.journal(m.life, attempt.EventRejected, m.st.CurrentIndex, err.Error())
		m.log.Warn("submission failed", zap.Error(err))
		m.setPhase(PhaseError)
		return
	}

	now := m.deps.Clock.Now()
	m.st.SubmittedAt = &now
	m.dirty = true
	if err := m.flush(m.life); err != nil {
		m.log.Error("record submission", zap.Error(err))
	}
	detail := ""
	if res.receipt.Duplicate {
		detail = "duplicate"
	}
	m.journal(m.life, attempt.EventAccepted, m.st.CurrentIndex, detail)
	m.log.Info("submission accepted", zap.Bool("duplicate", res.receipt.Duplicate))
	m.err = nil
	m.setPhase(PhaseCompleted)
}

func (m *Machine) onTimer(ev timer.Event) {
	if m.phase != PhaseActive || m.countdown == nil {
		return
	}
	if err := timer.Guard(ev, m.st.CurrentIndex, m.epoch); err != nil {
		m.log.Warn("dropped stale timer event", zap.Error(err))
		return
	}
	m.remaining = ev.Remaining
	if ev.Kind == timer.EventTick {
		m.publish(Update{Kind: UpdateTick, Index: ev.Item, Remaining: ev.Remaining})
		return
	}

	// Expiry behaves like Next without the completeness requirement.
	i := m.st.CurrentIndex
	m.stopTimer()
	m.remaining = 0
	if a := m.st.Answers[i]; a == nil || a.Value == nil {
		m.st.Answers[i] = nil
		m.recordEmpty(i, attempt.ProvenanceTimeout)
	} else {
		a.TimeSpentMs = m.elapsedMs()
		m.dirty = true
	}
	m.journal(m.life, attempt.EventTimeout, i, "")
	m.publish(Update{Kind: UpdateExpired, Index: i})
	m.advanceOverdue()
}

// advanceOverdue leaves an item whose time is up. A failed write keeps the
// item overdue with no countdown until a later attempt succeeds.
func (m *Machine) advanceOverdue() {
	i := m.st.CurrentIndex
	var err error
	if m.isLast(i) {
		err = m.submit(m.life)
	} else {
		err = m.move(m.life, i+1)
	}
	if err != nil {
		m.stopTimer()
		m.remaining = 0
		m.overdue = true
		m.log.Error("advance after timeout", zap.Int("item", i), zap.Error(err))
		return
	}
	m.overdue = false
}

func (m *Machine) onAutosave() {
	if m.phase == PhaseActive && m.overdue {
		m.advanceOverdue()
		return
	}
	if m.phase != PhaseActive || !m.dirty {
		return
	}
	if err := m.flush(m.life); err != nil {
		return
	}
	m.log.Debug("autosaved", zap.Int("item", m.st.CurrentIndex))
}

func (m *Machine) startTimer() {
	q := m.current()
	if !q.Timed() {
		m.remaining = 0
		return
	}
	m.epoch++
	m.remaining = q.TimerSec
	m.countdown = timer.Start(m.deps.Clock, m.st.CurrentIndex, m.epoch, q.TimerSec, m.timerC)
}

// stopTimer cancels the countdown and discards any event it already queued,
// so no event for the item being left is ever handled.
func (m *Machine) stopTimer() {
	if m.countdown == nil {
		return
	}
	m.countdown.Stop()
	m.countdown = nil
	for {
		select {
		case <-m.timerC:
		default:
			return
		}
	}
}

func (m *Machine) startAutosave() {
	if m.autosave == nil {
		m.autosave = m.deps.Clock.NewTicker(m.cfg.AutosaveInterval)
	}
}

func (m *Machine) stopAutosave() {
	if m.autosave != nil {
		m.autosave.Stop()
		m.autosave = nil
	}
}

func (m *Machine) teardown() error {
	m.stopTimer()
	m.stopAutosave()
	if m.submitCancel != nil {
		m.submitCancel()
		m.submitCancel = nil
	}

	var err error
	if m.st != nil && m.dirty {
		// The exit save must complete even though the machine is going away.
		if err = m.flush(context.Background()); err != nil {
			m.log.Error("save on close", zap.Error(err))
		}
	}
	m.setPhase(PhaseClosed)
	m.publishSnapshot()
	close(m.updates)
	return err
}

func (m *Machine) setPhase(p Phase) {
	if m.phase == p {
		return
	}
	m.phase = p
	idx := 0
	if m.st != nil {
		idx = m.st.CurrentIndex
	}
	m.publish(Update{Kind: UpdatePhase, Index: idx})
}

func (m *Machine) publish(u Update) {
	u.Phase = m.phase
	select {
	case m.updates <- u:
	default:
	}
}

func (m *Machine) journal(ctx context.Context, kind attempt.EventKind, item int, detail string) {
	ev := attempt.Event{
		AttemptID: m.st.ID,
		Kind:      kind,
		Item:      item,
		Detail:    detail,
		At:        m.deps.Clock.Now(),
	}
	if err := m.deps.Journal.Append(ctx, ev); err != nil {
		m.log.Warn("journal append", zap.String("kind", string(kind)), zap.Error(err))
	}
}
