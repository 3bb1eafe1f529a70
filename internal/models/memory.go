package models

import (
	"time"
)

// MemoryEmotionTag is the affect snapshot captured when a memory item was
// written. Immutable once stored; used only for mood-congruent ranking.
type MemoryEmotionTag struct {
	Valence  float64 `json:"valence"`
	Energy   float64 `json:"energy"`
	Openness float64 `json:"openness"`
	Emotion  string  `json:"emotion,omitempty"`
}

// Vector returns the tag as an affect vector.
func (t MemoryEmotionTag) Vector() AffectVector {
	return AffectVector{Valence: t.Valence, Energy: t.Energy, Openness: t.Openness}
}

// MemoryItem is a retrieved item from the external semantic index. The
// affective core never writes these; it only re-ranks them.
type MemoryItem struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	CreatedAt  time.Time         `json:"created_at"`
	EmotionTag *MemoryEmotionTag `json:"emotion_tag,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
}

// SearchResult wraps a MemoryItem with its raw semantic similarity in [0,1].
type SearchResult struct {
	Item       MemoryItem `json:"item"`
	Similarity float64    `json:"similarity"`
}

// RecallResult wraps a MemoryItem with per-signal ranking details.
type RecallResult struct {
	Item           MemoryItem `json:"item"`
	Similarity     float64    `json:"similarity"`
	MoodCongruence float64    `json:"mood_congruence"`
	Recency        float64    `json:"recency"`
	FinalScore     float64    `json:"final_score"`
	SemanticOnly   bool       `json:"semantic_only,omitempty"` // no emotion tag; congruence not applied
}

// RecallSet is an ordered recall response. Degraded is set when the
// semantic index failed or timed out and the ranker returned what it had.
type RecallSet struct {
	Results  []RecallResult `json:"results"`
	Degraded bool           `json:"degraded,omitempty"`
}
