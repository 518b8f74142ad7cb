// Package api exposes attempts, results and the rubric over HTTP for
// reviewers and the results boundary.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/candidus/assessor/internal/app"
	"github.com/candidus/assessor/internal/apperr"
	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/content"
	"github.com/candidus/assessor/internal/results"
	"github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/scoring"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// Handler serves the HTTP API over a Session.
type Handler struct {
	session *app.Session
	log     *zap.Logger
}

// NewHandler returns the API router. The score intake route is mounted
// only when the session scores in-process.
func NewHandler(s *app.Session, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{session: s, log: log.Named("api")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/components", h.listComponents)

	r.Route("/rubric", func(r chi.Router) {
		r.Get("/", h.getRubric)
		r.Put("/", h.putRubric)
		r.Post("/preview", h.previewRubric)
	})

	r.Get("/candidates/{candidateID}/attempts", h.listAttempts)

	r.Route("/attempts/{attemptID}", func(r chi.Router) {
		r.Get("/", h.getAttempt)
		r.Get("/result", h.getResult)
		r.Get("/events", h.getEvents)
		if s.Recorder != nil {
			r.Post("/scores", h.postScores)
		}
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rubric": h.session.Rubric.Loaded(),
	})
}

type componentSummary struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Items            int    `json:"items"`
	EstimatedMinutes int    `json:"estimatedMinutes,omitempty"`
}

func (h *Handler) listComponents(w http.ResponseWriter, r *http.Request) {
	comps, err := content.Catalog(r.Context(), h.session.Content)
	if err != nil {
		h.log.Warn("catalog incomplete", zap.Error(err))
	}
	out := make([]componentSummary, 0, len(comps))
	for _, c := range comps {
		out = append(out, componentSummary{
			ID:               c.ID,
			Name:             c.Name,
			Items:            len(c.Items),
			EstimatedMinutes: c.EstimatedMinutes,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getRubric(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Rubric.Current())
}

func (h *Handler) putRubric(w http.ResponseWriter, r *http.Request) {
	var cfg rubric.Config
	if !h.decode(w, r, &cfg) {
		return
	}
	if err := h.session.Rubric.Commit(r.Context(), cfg); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Rubric.Current())
}

type previewRequest struct {
	Config  rubric.Config   `json:"config"`
	Samples []rubric.Sample `json:"samples,omitempty"`
}

func (h *Handler) previewRubric(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !h.decode(w, r, &req) {
		return
	}
	rows, err := h.session.Rubric.Preview(req.Config, req.Samples)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	list, err := h.session.List(r.Context(), chi.URLParam(r, "candidateID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if list == nil {
		list = []*attempt.State{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.Attempts.Load(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.session.Result(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if res.Status == results.StatusProcessing {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func (h *Handler) getEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "attemptID")
	if _, err := h.session.Attempts.Load(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	events, err := h.session.Journal.Events(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if events == nil {
		events = []attempt.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// postScores accepts the score set of a submitted attempt.
func (h *Handler) postScores(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "attemptID")
	if _, ok := h.session.Recorder.Submission(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no submission for attempt " + id})
		return
	}
	var set scoring.ScoreSet
	if !h.decode(w, r, &set) {
		return
	}
	set.AttemptID = id
	h.session.Recorder.Publish(set)
	h.log.Info("scores recorded", zap.String("attempt", id), zap.Int("components", len(set.Scores)))
	w.WriteHeader(http.StatusNoContent)
}

type errorBody struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
	Action   string   `json:"action,omitempty"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error(), Action: string(apperr.ActionFor(err))}

	var (
		cerr   *apperr.ConfigInvalidError
		status int
	)
	switch {
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case errors.As(err, &cerr):
		status = http.StatusUnprocessableEntity
		body.Problems = cerr.Problems
	case errors.Is(err, app.ErrNotCompleted):
		status = http.StatusConflict
	case errors.Is(err, app.ErrSessionClosed):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
		h.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
