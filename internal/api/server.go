// Package api exposes the affective core over HTTP for sibling
// processes (the conversation loop, dashboards).
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elara-ai/affect/internal/emotion"
	"github.com/elara-ai/affect/internal/index"
	"github.com/elara-ai/affect/internal/models"
	"github.com/elara-ai/affect/internal/mood"
	"github.com/elara-ai/affect/internal/recall"
)

// Server is an HTTP API server over the affect engine.
type Server struct {
	engine      *mood.Engine
	ledger      *mood.Ledger
	temperament *mood.Controller
	ranker      *recall.Ranker
	classifier  *emotion.Classifier
	logger      *slog.Logger
	authToken   string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(eng *mood.Engine, ledger *mood.Ledger, temp *mood.Controller, ranker *recall.Ranker, logger *slog.Logger, authToken string) *Server {
	return &Server{
		engine:      eng,
		ledger:      ledger,
		temperament: temp,
		ranker:      ranker,
		classifier:  emotion.New(),
		logger:      logger,
		authToken:   authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics — no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /debug/vars", expvar.Handler())

	mux.HandleFunc("GET /v1/mood", s.auth(s.handleGetMood))
	mux.HandleFunc("POST /v1/mood/adjust", s.auth(s.handleAdjustMood))
	mux.HandleFunc("POST /v1/mood/set", s.auth(s.handleSetMood))
	mux.HandleFunc("GET /v1/mood/journal", s.auth(s.handleJournal))

	mux.HandleFunc("POST /v1/imprints", s.auth(s.handleCreateImprint))
	mux.HandleFunc("GET /v1/imprints", s.auth(s.handleListImprints))
	mux.HandleFunc("GET /v1/imprints/archived", s.auth(s.handleArchivedImprints))
	mux.HandleFunc("GET /v1/imprints/{id}", s.auth(s.handleGetImprint))

	mux.HandleFunc("POST /v1/emotions/resolve", s.auth(s.handleResolveEmotions))
	mux.HandleFunc("POST /v1/recall", s.auth(s.handleRecall))

	mux.HandleFunc("GET /v1/temperament", s.auth(s.handleTemperamentStatus))
	mux.HandleFunc("POST /v1/temperament/drift", s.auth(s.handleTemperamentDrift))
	mux.HandleFunc("POST /v1/temperament/decay", s.auth(s.handleTemperamentDecay))
	mux.HandleFunc("POST /v1/temperament/reset", s.auth(s.handleTemperamentReset))

	return mux
}

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// moodResponse is the common shape for mood reads and mutations.
type moodResponse struct {
	Valence     float64 `json:"valence"`
	Energy      float64 `json:"energy"`
	Openness    float64 `json:"openness"`
	Emotion     string  `json:"emotion"`
	Description string  `json:"description"`
}

func (s *Server) moodResponse(v models.AffectVector) moodResponse {
	primary := s.classifier.Primary(v)
	return moodResponse{
		Valence:     v.Valence,
		Energy:      v.Energy,
		Openness:    v.Openness,
		Emotion:     primary.Label,
		Description: s.classifier.Describe(v),
	}
}

func (s *Server) handleGetMood(w http.ResponseWriter, _ *http.Request) {
	v, err := s.engine.Mood()
	if err != nil {
		s.logger.Error("reading mood", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "failed to read mood state")
		return
	}
	s.writeJSON(w, http.StatusOK, s.moodResponse(v))
}

// adjustRequest is the body accepted by POST /v1/mood/adjust.
type adjustRequest struct {
	Valence  float64 `json:"valence"`
	Energy   float64 `json:"energy"`
	Openness float64 `json:"openness"`
	Reason   string  `json:"reason"`
}

func (s *Server) handleAdjustMood(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v, err := s.engine.Adjust(mood.Deltas{
		Valence:  req.Valence,
		Energy:   req.Energy,
		Openness: req.Openness,
	}, req.Reason)
	if err != nil {
		s.writeDomainError(w, err, "failed to adjust mood")
		return
	}
	s.writeJSON(w, http.StatusOK, s.moodResponse(v))
}

// setRequest is the body accepted by POST /v1/mood/set. Omitted
// dimensions keep their current value.
type setRequest struct {
	Valence  *float64 `json:"valence"`
	Energy   *float64 `json:"energy"`
	Openness *float64 `json:"openness"`
	Reason   string   `json:"reason"`
}

func (s *Server) handleSetMood(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Valence == nil && req.Energy == nil && req.Openness == nil {
		s.writeError(w, http.StatusBadRequest, "at least one dimension is required")
		return
	}

	v, err := s.engine.Set(req.Valence, req.Energy, req.Openness, req.Reason)
	if err != nil {
		s.writeDomainError(w, err, "failed to set mood")
		return
	}
	s.writeJSON(w, http.StatusOK, s.moodResponse(v))
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	n := intQuery(r, "limit", 50)
	entries, err := s.engine.RecentJournal(n)
	if err != nil {
		s.logger.Error("reading mood journal", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// imprintRequest is the body accepted by POST /v1/imprints.
type imprintRequest struct {
	Feeling  string  `json:"feeling"`
	Strength float64 `json:"strength"`
	Type     string  `json:"type"`
}

func (s *Server) handleCreateImprint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req imprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	imp, err := s.ledger.Create(req.Feeling, req.Strength, req.Type)
	if err != nil {
		s.writeDomainError(w, err, "failed to create imprint")
		return
	}
	s.writeJSON(w, http.StatusCreated, imp)
}

func (s *Server) handleListImprints(w http.ResponseWriter, r *http.Request) {
	minStrength := floatQuery(r, "min_strength", 0)
	imprints, err := s.ledger.Active(minStrength)
	if err != nil {
		s.writeDomainError(w, err, "failed to list imprints")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"imprints": imprints})
}

func (s *Server) handleGetImprint(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	imp, err := s.ledger.Get(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "imprint not found")
			return
		}
		s.logger.Error("reading imprint", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get imprint")
		return
	}
	s.writeJSON(w, http.StatusOK, imp)
}

func (s *Server) handleArchivedImprints(w http.ResponseWriter, r *http.Request) {
	n := intQuery(r, "limit", 20)
	archived, err := s.ledger.Archived(n)
	if err != nil {
		s.logger.Error("reading imprint archive", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read archive")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"archived": archived})
}

// resolveRequest is the body accepted by POST /v1/emotions/resolve.
// Omitted dimensions fall back to the current mood.
type resolveRequest struct {
	Valence  *float64 `json:"valence"`
	Energy   *float64 `json:"energy"`
	Openness *float64 `json:"openness"`
	TopN     int      `json:"top_n"`
}

func (s *Server) handleResolveEmotions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TopN <= 0 {
		req.TopN = 3
	}

	current, err := s.engine.Mood()
	if err != nil {
		s.logger.Error("reading mood", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "failed to read mood state")
		return
	}
	v := current
	if req.Valence != nil {
		v.Valence = *req.Valence
	}
	if req.Energy != nil {
		v.Energy = *req.Energy
	}
	if req.Openness != nil {
		v.Openness = *req.Openness
	}
	if err := v.Validate(); err != nil {
		s.writeDomainError(w, err, "invalid affect vector")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"matches":     s.classifier.Resolve(v, req.TopN),
		"blend":       s.classifier.Blend(v),
		"quadrant":    emotion.Quadrant(v),
		"description": s.classifier.Describe(v),
	})
}

// recallRequest is the body accepted by POST /v1/recall.
type recallRequest struct {
	Query     string          `json:"query"`
	Embedding []float32       `json:"embedding"`
	Limit     int             `json:"limit"`
	Weights   *recall.Weights `json:"weights"`
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	var req recallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" && len(req.Embedding) == 0 {
		s.writeError(w, http.StatusBadRequest, "query or embedding is required")
		return
	}

	var opts recall.Options
	if req.Weights != nil {
		opts.Weights = *req.Weights
	}
	set, err := s.ranker.Recall(r.Context(), index.Query{Text: req.Query, Embedding: req.Embedding}, req.Limit, opts)
	if err != nil {
		s.writeDomainError(w, err, "failed to recall")
		return
	}
	s.writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleTemperamentStatus(w http.ResponseWriter, _ *http.Request) {
	status, err := s.temperament.Status()
	if err != nil {
		s.logger.Error("reading temperament status", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read temperament")
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// driftRequest is the body accepted by POST /v1/temperament/drift.
type driftRequest struct {
	Adjustments map[models.Dimension]float64 `json:"adjustments"`
	Source      string                       `json:"source"`
}

func (s *Server) handleTemperamentDrift(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req driftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Adjustments) == 0 {
		s.writeError(w, http.StatusBadRequest, "adjustments are required")
		return
	}

	applied, err := s.temperament.ApplyDrift(req.Adjustments, req.Source)
	if err != nil {
		s.writeDomainError(w, err, "failed to apply drift")
		return
	}
	s.writeJSON(w, http.StatusOK, applied)
}

// decayRequest is the body accepted by POST /v1/temperament/decay.
type decayRequest struct {
	Rate float64 `json:"rate"`
}

func (s *Server) handleTemperamentDecay(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req decayRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	baseline, err := s.temperament.DecayTowardFactory(req.Rate)
	if err != nil {
		s.writeDomainError(w, err, "failed to decay temperament")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"baseline": baseline})
}

func (s *Server) handleTemperamentReset(w http.ResponseWriter, _ *http.Request) {
	baseline, err := s.temperament.Reset()
	if err != nil {
		s.writeDomainError(w, err, "failed to reset temperament")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"baseline": baseline})
}

// writeDomainError maps engine errors onto HTTP statuses: validation
// failures are the caller's fault, persistence failures are 503.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case models.IsValidation(err):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrDependencyUnavailable):
		s.logger.Error(fallback, "error", err)
		s.writeError(w, http.StatusServiceUnavailable, fallback)
	default:
		s.logger.Error(fallback, "error", err)
		s.writeError(w, http.StatusInternalServerError, fallback)
	}
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func intQuery(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func floatQuery(r *http.Request, key string, def float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
