// Package recall re-ranks semantic search results by the current mood.
// The index proposes candidates; this package decides their order. The
// affective core biases retrieval, it never owns the memory store.
package recall

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/elara-ai/affect/internal/embedder"
	"github.com/elara-ai/affect/internal/index"
	"github.com/elara-ai/affect/internal/metrics"
	"github.com/elara-ai/affect/internal/models"
)

// candidateMultiplier is how many candidates to fetch per requested
// result. Re-ranking needs slack: the mood term can promote items the
// raw similarity ordering would have cut.
const candidateMultiplier = 3

// recencyHalfLife is the age at which the recency factor reaches 0.5.
const recencyHalfLife = 30 * 24 * time.Hour

// Weights blends the ranking factors. They must be non-negative and sum
// to a positive total; they need not sum to 1.
type Weights struct {
	Semantic float64 `json:"semantic" mapstructure:"semantic"`
	Mood     float64 `json:"mood" mapstructure:"mood"`
	Recency  float64 `json:"recency" mapstructure:"recency"`
}

// MoodWeights is the default blend for mood-congruent recall.
func MoodWeights() Weights {
	return Weights{Semantic: 0.7, Mood: 0.3}
}

// ConversationalWeights favors fresh context over emotional resonance.
func ConversationalWeights() Weights {
	return Weights{Semantic: 0.85, Recency: 0.15}
}

// Validate rejects negative or non-finite weights and all-zero blends.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"semantic", w.Semantic},
		{"mood", w.Mood},
		{"recency", w.Recency},
	} {
		if math.IsNaN(f.val) || math.IsInf(f.val, 0) || f.val < 0 {
			return &models.ValidationError{Field: f.name, Constraint: "must be a finite non-negative weight"}
		}
	}
	if w.Semantic+w.Mood+w.Recency <= 0 {
		return &models.ValidationError{Field: "weights", Constraint: "must sum to a positive total"}
	}
	return nil
}

func (w Weights) total() float64 {
	return w.Semantic + w.Mood + w.Recency
}

// MoodSource provides the current affect vector. Satisfied by the mood
// engine.
type MoodSource interface {
	Mood() (models.AffectVector, error)
}

// Options tunes a single recall call.
type Options struct {
	Weights Weights
}

// Ranker runs mood-congruent recall over a semantic index.
type Ranker struct {
	idx    index.Index
	emb    embedder.Embedder
	mood   MoodSource
	logger *slog.Logger

	now func() time.Time
}

// NewRanker creates a ranker. emb may be nil when the index resolves
// text queries itself.
func NewRanker(idx index.Index, emb embedder.Embedder, mood MoodSource, logger *slog.Logger) *Ranker {
	return &Ranker{idx: idx, emb: emb, mood: mood, logger: logger, now: time.Now}
}

// Recall fetches candidates from the index and re-ranks them by a
// weighted blend of semantic similarity, mood congruence, and recency.
//
// Index failure is not an error: recall degrades to an empty, flagged
// result set rather than blocking the conversation. Untagged items stay
// rankable by renormalizing the remaining weights, flagged SemanticOnly.
func (r *Ranker) Recall(ctx context.Context, q index.Query, n int, opts Options) (models.RecallSet, error) {
	if n <= 0 {
		n = 5
	}
	w := opts.Weights
	if w == (Weights{}) {
		w = MoodWeights()
	}
	if err := w.Validate(); err != nil {
		return models.RecallSet{}, err
	}

	mood, err := r.mood.Mood()
	if err != nil {
		return models.RecallSet{}, err
	}

	metrics.Inc(metrics.RecallTotal)

	// Vector-backed indexes need a query embedding. Embedding failure
	// degrades like index failure: recall never blocks the conversation.
	if len(q.Embedding) == 0 && q.Text != "" && r.emb != nil {
		vec, err := r.emb.Embed(ctx, q.Text)
		if err != nil {
			metrics.Inc(metrics.RecallDegraded)
			r.logger.Warn("embedding query failed, recall degraded", "error", err)
			return models.RecallSet{Degraded: true}, nil
		}
		q.Embedding = vec
	}

	candidates, err := r.idx.Search(ctx, q, n*candidateMultiplier)
	if err != nil {
		if models.IsValidation(err) {
			return models.RecallSet{}, err
		}
		metrics.Inc(metrics.RecallDegraded)
		r.logger.Warn("semantic index unavailable, recall degraded", "error", err)
		return models.RecallSet{Degraded: true}, nil
	}

	now := r.now()
	results := make([]models.RecallResult, 0, len(candidates))
	for _, cand := range candidates {
		res := models.RecallResult{
			Item:       cand.Item,
			Similarity: cand.Similarity,
			Recency:    recencyScore(cand.Item.CreatedAt, now),
		}

		weights := w
		if cand.Item.EmotionTag != nil {
			res.MoodCongruence = congruence(mood, *cand.Item.EmotionTag)
		} else if w.Mood > 0 {
			// No tag: redistribute the mood weight so untagged items
			// compete on the factors they do have.
			res.SemanticOnly = true
			rest := w.total() - w.Mood
			if rest <= 0 {
				res.FinalScore = 0
				results = append(results, res)
				continue
			}
			scale := w.total() / rest
			weights = Weights{Semantic: w.Semantic * scale, Recency: w.Recency * scale}
		}

		res.FinalScore = weights.Semantic*res.Similarity +
			weights.Mood*res.MoodCongruence +
			weights.Recency*res.Recency
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Item.CreatedAt.After(results[j].Item.CreatedAt)
	})
	if len(results) > n {
		results = results[:n]
	}
	return models.RecallSet{Results: results}, nil
}

// congruence maps the distance between the current mood and a memory's
// emotion tag onto [0,1]: identical affect scores 1, maximally distant
// affect scores 0.
func congruence(mood models.AffectVector, tag models.MemoryEmotionTag) float64 {
	d := mood.Distance(tag.Vector())
	score := 1 - d/models.MaxAffectDistance
	return math.Max(0, math.Min(1, score))
}

// recencyScore decays exponentially with a 30-day half-life. Items with
// no timestamp score zero.
func recencyScore(created time.Time, now time.Time) float64 {
	if created.IsZero() {
		return 0
	}
	age := now.Sub(created)
	if age < 0 {
		return 1
	}
	return math.Exp(-math.Ln2 * age.Hours() / recencyHalfLife.Hours())
}
