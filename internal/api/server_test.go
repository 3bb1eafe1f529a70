package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elara-ai/affect/internal/index"
	"github.com/elara-ai/affect/internal/journal"
	"github.com/elara-ai/affect/internal/models"
	"github.com/elara-ai/affect/internal/mood"
	"github.com/elara-ai/affect/internal/recall"
	"github.com/elara-ai/affect/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, authToken string, idx index.Index) *Server {
	t.Helper()
	jrnl, err := journal.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = jrnl.Close() })

	eng, err := mood.NewEngine(state.NewMemStore(), jrnl, nil, testLogger(), mood.DefaultOptions())
	require.NoError(t, err)

	var ranker *recall.Ranker
	if idx != nil {
		ranker = recall.NewRanker(idx, nil, eng, testLogger())
	}
	return NewServer(eng, mood.NewLedger(eng), mood.NewController(eng), ranker, testLogger(), authToken)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, "", nil)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, "sekrit", nil)
	h := srv.Handler()

	w := doJSON(t, h, http.MethodGet, "/v1/mood", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/mood", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/mood", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	w = doJSON(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetMood(t *testing.T) {
	srv := newTestServer(t, "", nil)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/v1/mood", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp moodResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.55, resp.Valence)
	assert.NotEmpty(t, resp.Emotion)
	assert.NotEmpty(t, resp.Description)
}

func TestAdjustMood(t *testing.T) {
	srv := newTestServer(t, "", nil)
	h := srv.Handler()

	w := doJSON(t, h, http.MethodPost, "/v1/mood/adjust", `{"valence": 0.2, "reason": "shipped it"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp moodResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 0.75, resp.Valence, 1e-9)
}

func TestAdjustMoodRejectsBadBody(t *testing.T) {
	srv := newTestServer(t, "", nil)
	h := srv.Handler()

	w := doJSON(t, h, http.MethodPost, "/v1/mood/adjust", `{nope`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// NaN is not representable in JSON, but Infinity-style payloads
	// arrive as strings and fail decoding the same way.
	w = doJSON(t, h, http.MethodPost, "/v1/mood/adjust", `{"valence": "NaN"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetMoodRequiresDimension(t *testing.T) {
	srv := newTestServer(t, "", nil)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/mood/set", `{"reason": "no dims"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetMoodPartial(t *testing.T) {
	srv := newTestServer(t, "", nil)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/mood/set", `{"energy": 0.9}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp moodResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.9, resp.Energy)
	assert.Equal(t, 0.55, resp.Valence)
}

func TestImprintLifecycle(t *testing.T) {
	srv := newTestServer(t, "", nil)
	h := srv.Handler()

	w := doJSON(t, h, http.MethodPost, "/v1/imprints", `{"feeling": "a warm goodbye", "strength": 0.7}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var imp models.Imprint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &imp))
	require.NotEmpty(t, imp.ID)

	w = doJSON(t, h, http.MethodGet, "/v1/imprints/"+imp.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodGet, "/v1/imprints", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Imprints []models.Imprint `json:"imprints"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Imprints, 1)

	w = doJSON(t, h, http.MethodGet, "/v1/imprints/not-a-real-id", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImprintValidation(t *testing.T) {
	srv := newTestServer(t, "", nil)
	h := srv.Handler()

	w := doJSON(t, h, http.MethodPost, "/v1/imprints", `{"feeling": "", "strength": 0.5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPost, "/v1/imprints", `{"feeling": "x", "strength": 1.5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveEmotions(t *testing.T) {
	srv := newTestServer(t, "", nil)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/emotions/resolve", `{"valence": 0.8, "energy": 0.85, "openness": 0.6}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Matches []struct {
			Label string `json:"label"`
		} `json:"matches"`
		Quadrant string `json:"quadrant"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Matches)
	assert.Equal(t, "excited", resp.Matches[0].Label)
	assert.Equal(t, "positive-active", resp.Quadrant)
}

func TestRecallEndpoint(t *testing.T) {
	idx := index.NewMockIndex()
	idx.Add(models.MemoryItem{ID: "a", Content: "the demo that went well"}, nil)

	srv := newTestServer(t, "", idx)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/recall", `{"query": "demo", "limit": 3}`)
	require.Equal(t, http.StatusOK, w.Code)

	var set models.RecallSet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &set))
	assert.False(t, set.Degraded)
	assert.Len(t, set.Results, 1)
}

func TestRecallDegradedStillOK(t *testing.T) {
	idx := index.NewMockIndex()
	idx.SetError(errors.New("backend down"))

	srv := newTestServer(t, "", idx)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/recall", `{"query": "anything"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var set models.RecallSet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &set))
	assert.True(t, set.Degraded)
	assert.Empty(t, set.Results)
}

func TestRecallRequiresQuery(t *testing.T) {
	srv := newTestServer(t, "", index.NewMockIndex())
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/recall", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTemperamentEndpoints(t *testing.T) {
	srv := newTestServer(t, "", nil)
	h := srv.Handler()

	w := doJSON(t, h, http.MethodPost, "/v1/temperament/drift", `{"adjustments": {"valence": 0.01}, "source": "api-test"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var applied mood.AppliedDrift
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &applied))
	assert.InDelta(t, 0.56, applied.Baseline.Valence, 1e-9)

	w = doJSON(t, h, http.MethodGet, "/v1/temperament", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status mood.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.InDelta(t, 0.01, status.WeeklyUsed[models.DimValence], 1e-9)

	w = doJSON(t, h, http.MethodPost, "/v1/temperament/reset", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodPost, "/v1/temperament/drift", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTemperamentDriftValidation(t *testing.T) {
	srv := newTestServer(t, "", nil)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/temperament/drift", `{"adjustments": {"sparkle": 0.01}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
