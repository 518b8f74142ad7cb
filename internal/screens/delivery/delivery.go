package delivery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/candidus/assessor/internal/apperr"
	dlv "github.com/candidus/assessor/internal/delivery"
	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/router"
	"github.com/candidus/assessor/internal/screen"
	"github.com/candidus/assessor/internal/ui/components"
	"github.com/candidus/assessor/internal/ui/layout"
)

// closeTimeout bounds the final save when the screen leaves the stack.
const closeTimeout = 10 * time.Second

type mode int

const (
	modeAnswer mode = iota
	modeConfirmSubmit
	modeJump
)

// DeliveryScreen implements screen.Screen for a running attempt.
type DeliveryScreen struct {
	machine *dlv.Machine
	// onComplete builds the screen that replaces this one once the
	// attempt is accepted. Nil pops instead.
	onComplete func(v dlv.View) screen.Screen

	view     dlv.View
	input    components.TextInput
	jump     components.TextInput
	item     int
	mode     mode
	busy     bool
	notice   string
	finished bool

	// capturing is set while a typed answer is on its way to the machine;
	// captured is the input text it was parsed from.
	capturing bool
	captured  string
	// deferred is an operation held back until the capture in flight
	// returns, so an older capture cannot land after it.
	deferred func() tea.Cmd
}

var _ screen.Screen = (*DeliveryScreen)(nil)
var _ screen.KeyHintProvider = (*DeliveryScreen)(nil)
var _ screen.StatusProvider = (*DeliveryScreen)(nil)
var _ screen.Closer = (*DeliveryScreen)(nil)
var _ screen.EscapeHandler = (*DeliveryScreen)(nil)

// New creates a DeliveryScreen over a started machine.
func New(m *dlv.Machine, onComplete func(v dlv.View) screen.Screen) *DeliveryScreen {
	s := &DeliveryScreen{
		machine:    m,
		onComplete: onComplete,
		input:      components.NewTextInput("Type your answer...", 200),
		jump:       components.NewTextInput("Item number", 4),
		item:       -1,
	}
	s.refresh()
	return s
}

func (s *DeliveryScreen) Init() tea.Cmd {
	return tea.Batch(
		waitUpdate(s.machine.Updates()),
		s.input.Init(),
		s.completeIfDone(),
	)
}

func (s *DeliveryScreen) Title() string {
	if s.view.ComponentName != "" {
		return s.view.ComponentName
	}
	return "Assessment"
}

func (s *DeliveryScreen) Status() string {
	if s.view.Timed {
		return formatClock(s.view.Remaining)
	}
	if !s.view.LastSavedAt.IsZero() {
		return "saved " + s.view.LastSavedAt.Local().Format("15:04:05")
	}
	return ""
}

func (s *DeliveryScreen) HandlesEscape() bool { return true }

func (s *DeliveryScreen) KeyHints() []layout.KeyHint {
	switch s.mode {
	case modeConfirmSubmit:
		return []layout.KeyHint{
			{Key: "Y", Description: "Submit now"},
			{Key: "N", Description: "Keep working"},
		}
	case modeJump:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Go"},
			{Key: "Esc", Description: "Cancel"},
		}
	}

	switch s.view.Phase {
	case dlv.PhaseActive:
		next := "Next"
		if s.view.IsLast() {
			next = "Finish"
		}
		return []layout.KeyHint{
			{Key: "Enter", Description: next},
			{Key: "Shift+Tab", Description: "Previous"},
			{Key: "Ctrl+K", Description: "Skip"},
			{Key: "Ctrl+R", Description: "Mark"},
			{Key: "Ctrl+G", Description: "Go to"},
			{Key: "Ctrl+E", Description: "Submit"},
			{Key: "Esc", Description: "Save & exit"},
		}
	case dlv.PhaseError:
		hints := []layout.KeyHint{{Key: "Esc", Description: "Back to list"}}
		if s.view.Action == apperr.ActionRetry {
			hints = append([]layout.KeyHint{{Key: "R", Description: "Retry submission"}}, hints...)
		}
		return hints
	case dlv.PhaseCompleted:
		return []layout.KeyHint{{Key: "Enter", Description: "View result"}, {Key: "Esc", Description: "Back"}}
	}
	return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
}

func (s *DeliveryScreen) View(width, height int) string {
	switch s.view.Phase {
	case dlv.PhaseLoading:
		return renderLoading(width)
	case dlv.PhaseSubmitting:
		return s.renderSubmitting(width)
	case dlv.PhaseError:
		return s.renderError(width)
	case dlv.PhaseCompleted:
		return renderCompleted(width)
	case dlv.PhaseClosed:
		return renderLoading(width)
	}
	if s.mode == modeConfirmSubmit {
		return s.renderConfirmSubmit(width)
	}
	return s.renderItem(width, height)
}

func (s *DeliveryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case machineUpdateMsg:
		return s.handleMachineUpdate(msg)

	case machineDoneMsg:
		s.refresh()
		if s.finished {
			return s, nil
		}
		s.finished = true
		return s, func() tea.Msg { return router.PopScreenMsg{} }

	case opDoneMsg:
		return s.handleOpDone(msg)

	case answerCapturedMsg:
		s.capturing = false
		s.refresh()
		if op := s.deferred; op != nil {
			s.deferred = nil
			return s, op()
		}
		return s, s.capture()

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}

	if s.mode == modeJump {
		var cmd tea.Cmd
		s.jump, cmd = s.jump.Update(msg)
		return s, cmd
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, tea.Batch(cmd, s.capture())
}

// Close shuts the machine down, saving unsaved progress.
func (s *DeliveryScreen) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	s.machine.Close(ctx)
}

func (s *DeliveryScreen) handleMachineUpdate(msg machineUpdateMsg) (screen.Screen, tea.Cmd) {
	s.refresh()
	switch msg.Kind {
	case dlv.UpdateExpired:
		s.notice = "Time is up for that item."
	case dlv.UpdateMoved:
		s.mode = modeAnswer
	}
	return s, tea.Batch(waitUpdate(s.machine.Updates()), s.completeIfDone())
}

func (s *DeliveryScreen) handleOpDone(msg opDoneMsg) (screen.Screen, tea.Cmd) {
	s.busy = false
	s.refresh()
	if msg.Err == nil {
		return s, s.completeIfDone()
	}

	var verr *apperr.ValidationError
	switch {
	case errors.As(msg.Err, &verr):
		s.input.Problem(verr.Error())
	case errors.Is(msg.Err, dlv.ErrFirstItem):
		s.notice = "This is the first item."
	case errors.Is(msg.Err, dlv.ErrClosed):
	default:
		s.notice = fmt.Sprintf("%s failed: %v", msg.Op, msg.Err)
	}
	return s, nil
}

func (s *DeliveryScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()
	if s.busy {
		return s, nil
	}

	switch s.mode {
	case modeConfirmSubmit:
		switch key {
		case "y", "Y":
			s.mode = modeAnswer
			return s, s.withAnswer("submit", false, s.machine.Submit)
		case "n", "N", "esc":
			s.mode = modeAnswer
		}
		return s, nil

	case modeJump:
		switch key {
		case "esc":
			s.mode = modeAnswer
			return s, nil
		case "enter":
			n, err := strconv.Atoi(s.jump.Value())
			if err != nil || n < 1 || n > s.view.Total {
				s.jump.Problem(fmt.Sprintf("enter a number from 1 to %d", s.view.Total))
				return s, nil
			}
			s.mode = modeAnswer
			return s, s.withAnswer("jump", false, func(ctx context.Context) error {
				return s.machine.Jump(ctx, n-1)
			})
		}
		var cmd tea.Cmd
		s.jump, cmd = s.jump.Update(msg)
		return s, cmd
	}

	switch s.view.Phase {
	case dlv.PhaseActive:
		return s.handleActiveKey(msg)
	case dlv.PhaseError:
		switch key {
		case "r", "R":
			if s.view.Action == apperr.ActionRetry {
				return s, s.run("resubmit", s.machine.Resubmit)
			}
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	case dlv.PhaseCompleted:
		switch key {
		case "enter":
			return s, s.completeIfDone()
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	default:
		if key == "esc" {
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *DeliveryScreen) handleActiveKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	s.notice = ""
	switch msg.String() {
	case "enter":
		return s, s.withAnswer("next", true, s.machine.Next)
	case "shift+tab", "ctrl+p":
		return s, s.withAnswer("previous", false, s.machine.Previous)
	case "ctrl+k":
		return s, s.run("skip", s.machine.Skip)
	case "ctrl+r":
		return s, s.run("mark", func(ctx context.Context) error {
			_, err := s.machine.ToggleMark(ctx)
			return err
		})
	case "ctrl+g":
		s.mode = modeJump
		s.jump.SetValue("")
		return s, s.jump.Init()
	case "ctrl+e":
		s.mode = modeConfirmSubmit
		return s, nil
	case "ctrl+s", "esc":
		return s, s.withAnswer("save", false, s.machine.SaveAndExit)
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, tea.Batch(cmd, s.capture())
}

// capture hands the typed answer to the machine as soon as it parses, so
// autosave and timer expiry see it without waiting for Enter. One capture
// is in flight at a time; a later edit is sent when it returns.
func (s *DeliveryScreen) capture() tea.Cmd {
	if s.capturing || s.busy || s.mode != modeAnswer || s.view.Phase != dlv.PhaseActive {
		return nil
	}
	text := s.input.Value()
	if text == s.captured {
		return nil
	}
	v, err := s.typedValue()
	if err != nil || v == nil {
		return nil
	}
	s.capturing = true
	s.captured = text
	item := s.view.Index
	return func() tea.Msg {
		// The item may have been left or timed out meanwhile; the answer
		// then belongs to no one and is dropped.
		return answerCapturedMsg{Err: s.machine.AnswerAt(context.Background(), item, v)}
	}
}

// withAnswer stores the typed answer, when it changed, and then runs then.
// A typed answer that does not parse blocks the operation when strict;
// otherwise it is left out.
func (s *DeliveryScreen) withAnswer(op string, strict bool, then func(ctx context.Context) error) tea.Cmd {
	v, err := s.typedValue()
	if err != nil {
		if strict {
			s.input.Problem(err.Error())
			return nil
		}
		v = nil
	}
	start := func() tea.Cmd {
		return s.run(op, func(ctx context.Context) error {
			if v != nil {
				if err := s.machine.Answer(ctx, v); err != nil && !errors.Is(err, dlv.ErrTimeUp) {
					return err
				}
			}
			return then(ctx)
		})
	}
	if s.capturing {
		s.busy = true
		s.deferred = start
		return nil
	}
	return start()
}

// typedValue parses the input. It returns nil when the input is blank or
// unchanged from the stored answer.
func (s *DeliveryScreen) typedValue() (question.Value, error) {
	q := s.view.Question
	if q == nil {
		return nil, nil
	}
	text := s.input.Value()
	if text == "" || text == question.FormatValue(q, s.view.Answer) {
		return nil, nil
	}
	return question.ParseValue(q, text)
}

func (s *DeliveryScreen) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	s.busy = true
	return func() tea.Msg {
		return opDoneMsg{Op: op, Err: fn(context.Background())}
	}
}

// refresh takes a fresh snapshot and reloads the input when the item
// changed.
func (s *DeliveryScreen) refresh() {
	s.view = s.machine.View()
	if s.view.Question != nil && s.view.Index != s.item {
		s.item = s.view.Index
		s.input.SetValue(question.FormatValue(s.view.Question, s.view.Answer))
		s.captured = s.input.Value()
	}
}

func (s *DeliveryScreen) completeIfDone() tea.Cmd {
	if s.view.Phase != dlv.PhaseCompleted || s.finished {
		return nil
	}
	s.finished = true
	if s.onComplete == nil {
		return func() tea.Msg { return router.PopScreenMsg{} }
	}
	next := s.onComplete(s.view)
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

func waitUpdate(ch <-chan dlv.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return machineDoneMsg{}
		}
		return machineUpdateMsg(u)
	}
}

func formatClock(sec int) string {
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
