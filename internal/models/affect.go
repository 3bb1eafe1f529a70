package models

import (
	"math"
	"time"
)

// Dimension names one axis of the affect model.
type Dimension string

const (
	DimValence  Dimension = "valence"
	DimEnergy   Dimension = "energy"
	DimOpenness Dimension = "openness"
)

// Dimensions is the fixed set of affect axes, in canonical order.
var Dimensions = []Dimension{DimValence, DimEnergy, DimOpenness}

// IsValid returns true if the dimension is recognized.
func (d Dimension) IsValid() bool {
	for _, v := range Dimensions {
		if d == v {
			return true
		}
	}
	return false
}

// AffectVector is a point in the 3D affect space.
// Valence is in [-1,1]; energy and openness are in [0,1].
// The same shape is used for the instantaneous mood and for the
// temperament baseline the mood decays toward.
type AffectVector struct {
	Valence  float64 `json:"valence"`
	Energy   float64 `json:"energy"`
	Openness float64 `json:"openness"`
}

// Get returns the value of the named dimension.
func (a AffectVector) Get(d Dimension) float64 {
	switch d {
	case DimValence:
		return a.Valence
	case DimEnergy:
		return a.Energy
	case DimOpenness:
		return a.Openness
	}
	return 0
}

// Set assigns the named dimension and returns the updated vector.
func (a AffectVector) Set(d Dimension, v float64) AffectVector {
	switch d {
	case DimValence:
		a.Valence = v
	case DimEnergy:
		a.Energy = v
	case DimOpenness:
		a.Openness = v
	}
	return a
}

// Clamp forces every component into its closed domain range.
func (a AffectVector) Clamp() AffectVector {
	a.Valence = clamp(a.Valence, -1, 1)
	a.Energy = clamp(a.Energy, 0, 1)
	a.Openness = clamp(a.Openness, 0, 1)
	return a
}

// Validate rejects non-finite components. Out-of-range finite values are
// not an error; they are clamped by the engine instead.
func (a AffectVector) Validate() error {
	if !isFinite(a.Valence) {
		return &ValidationError{Field: "valence", Constraint: "must be a finite number"}
	}
	if !isFinite(a.Energy) {
		return &ValidationError{Field: "energy", Constraint: "must be a finite number"}
	}
	if !isFinite(a.Openness) {
		return &ValidationError{Field: "openness", Constraint: "must be a finite number"}
	}
	return nil
}

// Distance is the unweighted Euclidean distance to another vector.
func (a AffectVector) Distance(b AffectVector) float64 {
	dv := a.Valence - b.Valence
	de := a.Energy - b.Energy
	do := a.Openness - b.Openness
	return math.Sqrt(dv*dv + de*de + do*do)
}

// MaxAffectDistance is the largest possible distance between two points in
// the affect domain: valence spans 2, energy and openness span 1 each.
var MaxAffectDistance = math.Sqrt(2*2 + 1*1 + 1*1)

// Bounds returns the closed domain range for a dimension.
func Bounds(d Dimension) (lo, hi float64) {
	if d == DimValence {
		return -1, 1
	}
	return 0, 1
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Imprint is a persistent-but-fading emotional residue not tied to a
// specific memory. Strength stores the value at creation time; the
// effective strength at any later instant is
// Strength * exp(-DecayRate * hours since Created).
type Imprint struct {
	ID        string       `json:"id"`
	Feeling   string       `json:"feeling"`
	Strength  float64      `json:"strength"`
	Created   time.Time    `json:"created"`
	DecayRate float64      `json:"decay_rate"` // per hour
	Type      string       `json:"type"`
	MoodThen  AffectVector `json:"mood_then"`
}

// DecayedStrength returns the effective strength at the given instant.
// Strictly non-increasing in elapsed time.
func (i Imprint) DecayedStrength(now time.Time) float64 {
	hours := now.Sub(i.Created).Hours()
	if hours <= 0 {
		return i.Strength
	}
	return i.Strength * math.Exp(-i.DecayRate*hours)
}

// ArchivedImprint is an imprint that decayed below the archive threshold.
// The transition into the archive is one-way.
type ArchivedImprint struct {
	ArchivedAt time.Time `json:"archived_at"`
	Imprint
}

// ResidueEntry is a transient free-text cause of a mood change. Residue is
// purely explanatory; it is never read back into any calculation.
type ResidueEntry struct {
	Time   time.Time             `json:"time"`
	Reason string                `json:"reason"`
	Type   string                `json:"type"`
	Deltas map[Dimension]float64 `json:"deltas,omitempty"`
}

// MoodJournalEntry is one append-only record of a mood change.
type MoodJournalEntry struct {
	Timestamp time.Time `json:"ts"`
	Valence   float64   `json:"v"`
	Energy    float64   `json:"e"`
	Openness  float64   `json:"o"`
	Emotion   string    `json:"emotion"`
	Reason    string    `json:"reason,omitempty"`
	Trigger   string    `json:"trigger"`
}

// TemperamentJournalEntry is one append-only record of a baseline change.
type TemperamentJournalEntry struct {
	Timestamp time.Time `json:"ts"`
	Dimension Dimension `json:"dim"`
	Delta     float64   `json:"delta"`
	Source    string    `json:"source"`
	NewValue  float64   `json:"new"`
	Drift     float64   `json:"drift"` // distance from factory after the change
}
