// Package emotion projects continuous affect vectors onto the discrete
// emotion vocabulary. Everything here is pure: no state, no side effects,
// safe to call from any number of goroutines.
package emotion

import (
	"fmt"
	"math"
	"sort"

	"github.com/elara-ai/affect/internal/models"
)

// DistanceWeights scale each dimension's contribution to classification
// distance. Valence is weighted higher: it is the strongest signal.
type DistanceWeights struct {
	Valence  float64
	Energy   float64
	Openness float64
}

// DefaultDistanceWeights returns the standard dimension weighting.
func DefaultDistanceWeights() DistanceWeights {
	return DistanceWeights{Valence: 1.3, Energy: 1.0, Openness: 0.8}
}

const (
	// maxMeaningfulDistance normalizes distance to confidence. Distances at
	// or beyond this value map to zero confidence.
	maxMeaningfulDistance = 1.5

	// tieEpsilon: matches whose distances differ by less than this are
	// considered tied and keep catalog order.
	tieEpsilon = 1e-9
)

// Match is one classified emotion with its confidence in [0,1].
type Match struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Distance   float64 `json:"distance"`
}

// Classifier resolves affect vectors against the prototype catalog.
type Classifier struct {
	weights DistanceWeights
}

// New creates a classifier with the default dimension weights.
func New() *Classifier {
	return &Classifier{weights: DefaultDistanceWeights()}
}

// NewWithWeights creates a classifier with custom dimension weights.
func NewWithWeights(w DistanceWeights) *Classifier {
	return &Classifier{weights: w}
}

// distance is the weighted Euclidean distance between two affect vectors.
func (c *Classifier) distance(a, b models.AffectVector) float64 {
	dv := a.Valence - b.Valence
	de := a.Energy - b.Energy
	do := a.Openness - b.Openness
	return math.Sqrt(c.weights.Valence*dv*dv + c.weights.Energy*de*de + c.weights.Openness*do*do)
}

// Resolve returns the topN closest prototypes, ascending by distance.
// Ties within tieEpsilon break by catalog order, so two calls with the same
// vector always return the same labels in the same order.
func (c *Classifier) Resolve(v models.AffectVector, topN int) []Match {
	if topN <= 0 {
		topN = 3
	}

	matches := make([]Match, 0, len(Catalog))
	for _, p := range Catalog {
		dist := c.distance(v, p.Vector)
		confidence := 1.0 - dist/maxMeaningfulDistance
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		matches = append(matches, Match{
			Label:      p.Label,
			Confidence: confidence,
			Distance:   dist,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance-tieEpsilon
	})

	if topN > len(matches) {
		topN = len(matches)
	}
	return matches[:topN]
}

// Primary returns the single closest prototype.
func (c *Classifier) Primary(v models.AffectVector) Match {
	return c.Resolve(v, 1)[0]
}

// Blend returns a natural-language description of the current emotional
// mix: a single dominant label, a clash ("tired but warm"), a pairing, or a
// primary with a modifier.
func (c *Classifier) Blend(v models.AffectVector) string {
	matches := c.Resolve(v, 3)
	primary := matches[0]

	if primary.Confidence > 0.85 || len(matches) < 2 {
		return primary.Label
	}
	secondary := matches[1]

	if math.Abs(primary.Confidence-secondary.Confidence) < 0.1 {
		p, pok := findPrototype(primary.Label)
		s, sok := findPrototype(secondary.Label)
		if pok && sok {
			clash := (p.Vector.Valence > 0.2 && s.Vector.Valence < -0.1) ||
				(p.Vector.Valence < -0.1 && s.Vector.Valence > 0.2)
			if clash {
				return fmt.Sprintf("%s but %s", primary.Label, secondary.Label)
			}
		}
		return fmt.Sprintf("%s and %s", primary.Label, secondary.Label)
	}

	if secondary.Confidence > 0.4 {
		return fmt.Sprintf("%s, a little %s", primary.Label, secondary.Label)
	}
	return primary.Label
}

// Quadrant classifies the vector into a coarse valence/energy region.
func Quadrant(v models.AffectVector) string {
	switch {
	case v.Valence > 0.2:
		if v.Energy > 0.5 {
			return "positive-active"
		}
		return "positive-calm"
	case v.Valence < -0.15:
		if v.Energy > 0.5 {
			return "negative-active"
		}
		return "negative-calm"
	default:
		if v.Energy > 0.5 {
			return "neutral-active"
		}
		return "neutral-calm"
	}
}

// Context bundles the full readout used for tagging memories and logging.
type Context struct {
	Primary   string  `json:"primary"`
	Secondary string  `json:"secondary,omitempty"`
	Blend     string  `json:"blend"`
	Quadrant  string  `json:"quadrant"`
	Matches   []Match `json:"emotions"`
}

// ResolveContext returns the full emotion context for a vector.
func (c *Classifier) ResolveContext(v models.AffectVector) Context {
	matches := c.Resolve(v, 3)
	ctx := Context{
		Primary:  matches[0].Label,
		Blend:    c.Blend(v),
		Quadrant: Quadrant(v),
		Matches:  matches,
	}
	if len(matches) > 1 {
		ctx.Secondary = matches[1].Label
	}
	return ctx
}

// Describe renders a human-readable mood description, e.g.
// "Feeling tired but content. Low energy, winding down."
func (c *Classifier) Describe(v models.AffectVector) string {
	blend := c.Blend(v)

	var energy string
	switch {
	case v.Energy < 0.2:
		energy = "Very low energy"
	case v.Energy < 0.35:
		energy = "Low energy"
	case v.Energy < 0.55:
		energy = "Calm energy"
	case v.Energy < 0.7:
		energy = "Steady energy"
	case v.Energy < 0.85:
		energy = "High energy"
	default:
		energy = "Wired"
	}

	var open string
	switch {
	case v.Openness > 0.8:
		open = ", very open"
	case v.Openness > 0.65:
		open = ", open"
	case v.Openness < 0.25:
		open = ", guarded"
	case v.Openness < 0.4:
		open = ", a bit closed off"
	}

	return fmt.Sprintf("Feeling %s. %s%s.", blend, energy, open)
}
