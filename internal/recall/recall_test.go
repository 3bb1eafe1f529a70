package recall

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elara-ai/affect/internal/index"
	"github.com/elara-ai/affect/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedMood is a MoodSource pinned to one vector.
type fixedMood struct {
	v models.AffectVector
}

func (f fixedMood) Mood() (models.AffectVector, error) { return f.v, nil }

func testNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestRanker(idx index.Index, moodV models.AffectVector) *Ranker {
	r := NewRanker(idx, nil, fixedMood{v: moodV}, testLogger())
	r.now = testNow
	return r
}

// vectorOnlyIndex mirrors the production index contract: text queries
// without an embedding are rejected.
type vectorOnlyIndex struct {
	inner *index.MockIndex
}

func (v *vectorOnlyIndex) Search(ctx context.Context, q index.Query, k int) ([]models.SearchResult, error) {
	if len(q.Embedding) == 0 {
		return nil, &models.ValidationError{Field: "embedding", Constraint: "is required"}
	}
	return v.inner.Search(ctx, q, k)
}

func (v *vectorOnlyIndex) Close() error { return nil }

// fakeEmbedder returns a fixed vector and counts calls.
type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

func (f *fakeEmbedder) Dimension() int { return len(f.vec) }

func tagged(id, content string, sim float64, tag models.MemoryEmotionTag, age time.Duration) (models.MemoryItem, float64) {
	return models.MemoryItem{
		ID:         id,
		Content:    content,
		CreatedAt:  testNow().Add(-age),
		EmotionTag: &tag,
	}, sim
}

func TestWeightsValidate(t *testing.T) {
	require.NoError(t, MoodWeights().Validate())
	require.NoError(t, ConversationalWeights().Validate())

	assert.Error(t, Weights{Semantic: -1}.Validate())
	assert.Error(t, Weights{}.Validate(), "all-zero weights rejected")
}

func TestRecallMoodCongruenceReorders(t *testing.T) {
	idx := index.NewMockIndex()
	sad := models.MemoryEmotionTag{Emotion: "sad", Valence: -0.5, Energy: 0.2, Openness: 0.55}
	joy := models.MemoryEmotionTag{Emotion: "excited", Valence: 0.8, Energy: 0.85, Openness: 0.6}

	// The sad memory is slightly less similar but the mood is sad too.
	sadItem, _ := tagged("sad-item", "the rainy day we talked for hours", 0.80, sad, time.Hour)
	joyItem, _ := tagged("joy-item", "the rainy day the project shipped", 0.85, joy, time.Hour)
	idx.Add(sadItem, nil)
	idx.Add(joyItem, nil)

	mood := models.AffectVector{Valence: -0.5, Energy: 0.2, Openness: 0.55}
	r := newTestRanker(idx, mood)

	set, err := r.Recall(context.Background(), index.Query{Text: "the rainy day"}, 2, Options{})
	require.NoError(t, err)
	require.False(t, set.Degraded)
	require.Len(t, set.Results, 2)

	assert.Equal(t, "sad-item", set.Results[0].Item.ID,
		"mood congruence outweighs a small similarity deficit")
	assert.Greater(t, set.Results[0].MoodCongruence, set.Results[1].MoodCongruence)
}

func TestRecallMoodSignalDisabledMatchesSemanticOrder(t *testing.T) {
	idx := index.NewMockIndex()
	sad := models.MemoryEmotionTag{Emotion: "sad", Valence: -0.5, Energy: 0.2, Openness: 0.55}
	joy := models.MemoryEmotionTag{Emotion: "excited", Valence: 0.8, Energy: 0.85, Openness: 0.6}

	// The joyful memory is more similar; the sad one matches the mood.
	sadItem, _ := tagged("sad-item", "the rainy day we talked for hours", 0, sad, time.Hour)
	joyItem, _ := tagged("joy-item", "the rainy day the project shipped", 0, joy, time.Hour)
	idx.Add(sadItem, []float32{0.9, 0.44, 0})
	idx.Add(joyItem, []float32{0.97, 0.24, 0})

	mood := models.AffectVector{Valence: -0.5, Energy: 0.2, Openness: 0.55}
	r := newTestRanker(idx, mood)
	query := index.Query{Embedding: []float32{1, 0, 0}}

	// With the mood signal on, congruence promotes the sad memory.
	withMood, err := r.Recall(context.Background(), query, 2, Options{Weights: MoodWeights()})
	require.NoError(t, err)
	require.Len(t, withMood.Results, 2)
	assert.Equal(t, "sad-item", withMood.Results[0].Item.ID)

	// With the mood weight zeroed, the same candidates come back in the
	// index's raw similarity order.
	without, err := r.Recall(context.Background(), query, 2, Options{Weights: Weights{Semantic: 1}})
	require.NoError(t, err)
	require.Len(t, without.Results, 2)
	assert.Equal(t, "joy-item", without.Results[0].Item.ID)
	assert.Equal(t, "sad-item", without.Results[1].Item.ID)
	for _, res := range without.Results {
		assert.Equal(t, res.Similarity, res.FinalScore,
			"semantic-only scoring is the raw similarity")
	}
}

func TestRecallSemanticStillDominates(t *testing.T) {
	idx := index.NewMockIndex()
	joy := models.MemoryEmotionTag{Emotion: "excited", Valence: 0.8, Energy: 0.85, Openness: 0.6}

	strong := models.MemoryItem{ID: "strong", Content: "exact phrase match here", CreatedAt: testNow(), EmotionTag: &joy}
	weak := models.MemoryItem{ID: "weak", Content: "exact", CreatedAt: testNow(), EmotionTag: &joy}
	idx.Add(strong, nil)
	idx.Add(weak, nil)

	// Mood equally far from both tags: only similarity separates them.
	r := newTestRanker(idx, models.AffectVector{Valence: -0.5, Energy: 0.2, Openness: 0.5})
	set, err := r.Recall(context.Background(), index.Query{Text: "exact phrase match here"}, 2, Options{})
	require.NoError(t, err)
	require.Len(t, set.Results, 2)
	assert.Equal(t, "strong", set.Results[0].Item.ID)
}

func TestRecallUntaggedRenormalized(t *testing.T) {
	idx := index.NewMockIndex()
	joy := models.MemoryEmotionTag{Emotion: "content", Valence: 0.6, Energy: 0.35, Openness: 0.5}

	taggedItem := models.MemoryItem{ID: "tagged", Content: "shared search phrase", CreatedAt: testNow(), EmotionTag: &joy}
	untaggedItem := models.MemoryItem{ID: "untagged", Content: "shared search phrase", CreatedAt: testNow()}
	idx.Add(taggedItem, nil)
	idx.Add(untaggedItem, nil)

	r := newTestRanker(idx, models.AffectVector{Valence: 0.6, Energy: 0.35, Openness: 0.5})
	set, err := r.Recall(context.Background(), index.Query{Text: "shared search phrase"}, 2, Options{})
	require.NoError(t, err)
	require.Len(t, set.Results, 2)

	var untagged *models.RecallResult
	for i := range set.Results {
		if set.Results[i].Item.ID == "untagged" {
			untagged = &set.Results[i]
		}
	}
	require.NotNil(t, untagged, "untagged items stay rankable")
	assert.True(t, untagged.SemanticOnly)
	assert.Zero(t, untagged.MoodCongruence)
	assert.Greater(t, untagged.FinalScore, 0.0)
}

func TestRecallTextQueryEmbeddedForVectorIndex(t *testing.T) {
	mock := index.NewMockIndex()
	mock.Add(models.MemoryItem{ID: "a", Content: "the launch retrospective", CreatedAt: testNow()}, []float32{1, 0, 0})
	idx := &vectorOnlyIndex{inner: mock}

	emb := &fakeEmbedder{vec: []float32{1, 0, 0}}
	r := NewRanker(idx, emb, fixedMood{}, testLogger())
	r.now = testNow

	set, err := r.Recall(context.Background(), index.Query{Text: "launch retrospective"}, 3, Options{})
	require.NoError(t, err, "text queries must reach a vector-backed index")
	assert.False(t, set.Degraded)
	require.Len(t, set.Results, 1)
	assert.Equal(t, "a", set.Results[0].Item.ID)
	assert.Equal(t, 1, emb.calls)

	// A caller-supplied embedding is used as-is.
	_, err = r.Recall(context.Background(), index.Query{Embedding: []float32{1, 0, 0}}, 3, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls)
}

func TestRecallEmbedFailureDegrades(t *testing.T) {
	idx := &vectorOnlyIndex{inner: index.NewMockIndex()}
	emb := &fakeEmbedder{err: errors.New("embedding service down")}
	r := NewRanker(idx, emb, fixedMood{}, testLogger())
	r.now = testNow

	set, err := r.Recall(context.Background(), index.Query{Text: "anything"}, 5, Options{})
	require.NoError(t, err, "embedding failure is degradation, not an error")
	assert.True(t, set.Degraded)
	assert.Empty(t, set.Results)
}

func TestRecallDegradesOnIndexFailure(t *testing.T) {
	idx := index.NewMockIndex()
	idx.SetError(errors.New("backend down"))

	r := newTestRanker(idx, models.AffectVector{Valence: 0, Energy: 0.5, Openness: 0.5})
	set, err := r.Recall(context.Background(), index.Query{Text: "anything"}, 5, Options{})

	require.NoError(t, err, "index failure is degradation, not an error")
	assert.True(t, set.Degraded)
	assert.Empty(t, set.Results)
}

func TestRecallValidationErrorPropagates(t *testing.T) {
	idx := index.NewMockIndex()
	r := newTestRanker(idx, models.AffectVector{})

	_, err := r.Recall(context.Background(), index.Query{Text: "q"}, 5, Options{
		Weights: Weights{Semantic: -1},
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestRecallFetchesCandidateMultiple(t *testing.T) {
	idx := index.NewMockIndex()
	r := newTestRanker(idx, models.AffectVector{})

	_, err := r.Recall(context.Background(), index.Query{Text: "q"}, 4, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.SearchCount())
}

func TestRecallConversationalWeightsFavorRecency(t *testing.T) {
	idx := index.NewMockIndex()
	fresh := models.MemoryItem{ID: "fresh", Content: "project status update", CreatedAt: testNow().Add(-time.Hour)}
	stale := models.MemoryItem{ID: "stale", Content: "project status update", CreatedAt: testNow().Add(-90 * 24 * time.Hour)}
	idx.Add(stale, nil)
	idx.Add(fresh, nil)

	r := newTestRanker(idx, models.AffectVector{})
	set, err := r.Recall(context.Background(), index.Query{Text: "project status update"}, 2, Options{
		Weights: ConversationalWeights(),
	})
	require.NoError(t, err)
	require.Len(t, set.Results, 2)
	assert.Equal(t, "fresh", set.Results[0].Item.ID)
}

func TestRecencyScoreHalfLife(t *testing.T) {
	now := testNow()
	assert.InDelta(t, 1.0, recencyScore(now, now), 1e-9)
	assert.InDelta(t, 0.5, recencyScore(now.Add(-30*24*time.Hour), now), 1e-6)
	assert.InDelta(t, 0.25, recencyScore(now.Add(-60*24*time.Hour), now), 1e-6)
	assert.Zero(t, recencyScore(time.Time{}, now), "zero timestamp scores zero")
}

func TestCongruenceBounds(t *testing.T) {
	mood := models.AffectVector{Valence: 1, Energy: 1, Openness: 1}
	same := models.MemoryEmotionTag{Valence: 1, Energy: 1, Openness: 1}
	far := models.MemoryEmotionTag{Valence: -1, Energy: 0, Openness: 0}

	assert.InDelta(t, 1.0, congruence(mood, same), 1e-9)
	assert.InDelta(t, 0.0, congruence(mood, far), 1e-9)
}
