package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/candidus/assessor/internal/app"
	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/content"
	"github.com/candidus/assessor/internal/delivery"
	"github.com/candidus/assessor/internal/question"
	"github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/scoring"
	"github.com/candidus/assessor/internal/timer"
)

type fixture struct {
	session *app.Session
	server  *httptest.Server
}

func newFixture(t *testing.T, local bool) *fixture {
	t.Helper()
	clock := timer.NewFakeClock(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	comp := &question.Component{
		ID:   "FLAT",
		Name: "Foundational",
		Items: []question.Question{
			{ID: "q1", Type: question.TypeSingle, Stem: "One", Options: []string{"a", "b"}},
		},
	}

	opts := app.Options{
		Attempts:   attempt.NewMemoryStore(clock),
		Journal:    &attempt.MemoryJournal{},
		Content:    content.NewMemorySource(comp),
		RubricRepo: &rubric.MemoryRepo{},
		Clock:      clock,
	}
	if local {
		rec := scoring.NewRecorder()
		opts.Scoring, opts.Recorder = rec, rec
	} else {
		opts.Scoring = scoring.NewMockClient()
	}
	s, err := app.New(context.Background(), opts)
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(s, nil))
	t.Cleanup(func() {
		srv.Close()
		s.Close(context.Background())
	})
	return &fixture{session: s, server: srv}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.String()
}

// submitted starts an attempt, answers it and waits until it is accepted.
func (f *fixture) submitted(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	m, err := f.session.Begin(ctx, "cand-1", "FLAT")
	require.NoError(t, err)
	require.NoError(t, m.Answer(ctx, question.Single{Index: 0}))
	require.NoError(t, m.Submit(ctx))
	require.Eventually(t, func() bool { return m.View().Phase == delivery.PhaseCompleted }, time.Second, time.Millisecond)
	return m.View().AttemptID
}

func TestHealthAndComponents(t *testing.T) {
	f := newFixture(t, false)

	code, body := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, gjson.Get(body, "rubric").Bool())

	code, body = f.do(t, http.MethodGet, "/components", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "FLAT", gjson.Get(body, "0.id").String())
	assert.Equal(t, int64(1), gjson.Get(body, "0.items").Int())
}

func TestRubricRoundTrip(t *testing.T) {
	f := newFixture(t, false)

	code, body := f.do(t, http.MethodGet, "/rubric", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 40.0, gjson.Get(body, "componentWeights.FLAT").Float())

	cfg := rubric.DefaultConfig()
	cfg.ComponentWeights["FLAT"] = 50
	cfg.ComponentWeights["ASP"] = 10
	payload, err := json.Marshal(cfg)
	require.NoError(t, err)

	code, body = f.do(t, http.MethodPut, "/rubric", string(payload))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, 50.0, f.session.Rubric.Current().ComponentWeights["FLAT"])
}

func TestRubricRejectsInvalid(t *testing.T) {
	f := newFixture(t, false)

	cfg := rubric.DefaultConfig()
	cfg.Thresholds.Bridge = 90
	payload, err := json.Marshal(cfg)
	require.NoError(t, err)

	code, body := f.do(t, http.MethodPut, "/rubric", string(payload))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.NotEmpty(t, gjson.Get(body, "problems").Array())
	assert.Equal(t, "fix-config", gjson.Get(body, "action").String())
	assert.Equal(t, 40.0, f.session.Rubric.Current().Thresholds.Bridge, "committed rubric untouched")

	code, _ = f.do(t, http.MethodPut, "/rubric", `{"nope":1}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRubricPreview(t *testing.T) {
	f := newFixture(t, false)

	payload, err := json.Marshal(map[string]any{"config": rubric.DefaultConfig()})
	require.NoError(t, err)
	code, body := f.do(t, http.MethodPost, "/rubric/preview", string(payload))
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, gjson.Get(body, "@this").Array(), 3)
	assert.Equal(t, int64(76), gjson.Get(body, "0.outcome.rounded").Int())
	assert.Equal(t, "admit", gjson.Get(body, "0.outcome.bucket").String())
}

func TestAttemptsAndEvents(t *testing.T) {
	f := newFixture(t, false)
	m, err := f.session.Begin(context.Background(), "cand-1", "FLAT")
	require.NoError(t, err)
	id := m.View().AttemptID

	code, body := f.do(t, http.MethodGet, "/candidates/cand-1/attempts", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, gjson.Get(body, "0.attemptId").String())

	code, body = f.do(t, http.MethodGet, "/candidates/nobody/attempts", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[]", strings.TrimSpace(body))

	code, body = f.do(t, http.MethodGet, "/attempts/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "in_progress", gjson.Get(body, "status").String())

	code, body = f.do(t, http.MethodGet, "/attempts/"+id+"/events", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "started", gjson.Get(body, "0.kind").String())

	code, _ = f.do(t, http.MethodGet, "/attempts/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = f.do(t, http.MethodGet, "/attempts/missing/events", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestResultLifecycle(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	m, err := f.session.Begin(ctx, "cand-1", "FLAT")
	require.NoError(t, err)
	code, _ := f.do(t, http.MethodGet, "/attempts/"+m.View().AttemptID+"/result", "")
	assert.Equal(t, http.StatusConflict, code, "in-progress attempt has no result")
	require.NoError(t, m.Close(ctx))

	id := f.submitted(t)
	code, body := f.do(t, http.MethodGet, "/attempts/"+id+"/result", "")
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "processing", gjson.Get(body, "status").String())

	code, _ = f.do(t, http.MethodPost, "/attempts/"+id+"/scores",
		`{"scores":{"FLAT":75,"ASP":80,"VAL":65,"MS":85}}`)
	require.Equal(t, http.StatusNoContent, code)

	code, body = f.do(t, http.MethodGet, "/attempts/"+id+"/result", "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, int64(76), gjson.Get(body, "rounded").Int())
	assert.Equal(t, "admit", gjson.Get(body, "bucket").String())
	assert.Equal(t, "cand-1", gjson.Get(body, "candidateId").String())
}

func TestScoresNeedSubmission(t *testing.T) {
	f := newFixture(t, true)
	code, _ := f.do(t, http.MethodPost, "/attempts/unknown/scores", `{"scores":{}}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestScoresRouteOnlyForLocalScoring(t *testing.T) {
	f := newFixture(t, false)
	code, _ := f.do(t, http.MethodPost, "/attempts/any/scores", `{"scores":{}}`)
	assert.Equal(t, http.StatusNotFound, code)
}
