package result

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/candidus/assessor/internal/results"
	"github.com/candidus/assessor/internal/router"
	"github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/scoring"
)

func readyResult(t *testing.T) *results.Result {
	t.Helper()
	r, err := results.Assemble(&scoring.ScoreSet{
		AttemptID:   "att-1",
		Scores:      map[string]float64{"FLAT": 80, "ASP": 70, "VAL": 75, "MS": 78},
		StartedAt:   time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
	}, rubric.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func fixed(r *results.Result, err error) Fetcher {
	return func(context.Context) (*results.Result, error) { return r, err }
}

func load(s *ResultScreen) tea.Cmd {
	_, cmd := s.Update(s.Init()())
	return cmd
}

func TestResultScreen_Title(t *testing.T) {
	s := New("att-1", fixed(nil, nil))
	if s.Title() != "Result" {
		t.Errorf("Title = %q, want %q", s.Title(), "Result")
	}
}

func TestResultScreen_Ready(t *testing.T) {
	s := New("att-1", fixed(readyResult(t), nil))
	if cmd := load(s); cmd != nil {
		t.Error("a ready result is not polled")
	}

	view := s.View(100, 40)
	for _, want := range []string{"Composite 77 / 100", "Admit", "FLAT", "Next steps", "1h30m"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view:\n%s", want, view)
		}
	}
	if len(s.KeyHints()) != 1 {
		t.Errorf("KeyHints length = %d, want 1", len(s.KeyHints()))
	}
}

func TestResultScreen_ProcessingPolls(t *testing.T) {
	calls := 0
	s := New("att-1", func(context.Context) (*results.Result, error) {
		calls++
		return results.Pending("att-1"), nil
	})
	if cmd := load(s); cmd == nil {
		t.Error("expected a poll to be scheduled")
	}
	if !strings.Contains(s.View(100, 40), "Scoring is in progress") {
		t.Error("expected processing message")
	}

	_, cmd := s.Update(pollMsg{seq: s.seq})
	if cmd == nil {
		t.Fatal("expected poll to fetch again")
	}
	s.Update(cmd())
	if calls != 2 {
		t.Errorf("fetch calls = %d, want 2", calls)
	}

	if _, cmd := s.Update(pollMsg{seq: s.seq - 1}); cmd != nil {
		t.Error("stale poll ignored")
	}
}

func TestResultScreen_ManualRefresh(t *testing.T) {
	r := results.Pending("att-1")
	s := New("att-1", func(context.Context) (*results.Result, error) { return r, nil })
	load(s)

	r = readyResult(t)
	_, cmd := s.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	if cmd == nil {
		t.Fatal("expected refresh command")
	}
	s.Update(cmd())
	if !strings.Contains(s.View(100, 40), "Composite") {
		t.Error("expected ready result after refresh")
	}
}

func TestResultScreen_Error(t *testing.T) {
	s := New("att-1", fixed(nil, errors.New("results service unavailable")))
	load(s)
	if !strings.Contains(s.View(100, 40), "results service unavailable") {
		t.Error("expected error in view")
	}
}

func TestResultScreen_EnterPops(t *testing.T) {
	s := New("att-1", fixed(readyResult(t), nil))
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command on Enter")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected PopScreenMsg")
	}
}
