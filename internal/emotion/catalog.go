package emotion

import (
	"github.com/elara-ai/affect/internal/models"
)

// Prototype is a named region of affect space.
type Prototype struct {
	Label  string
	Vector models.AffectVector
}

// Catalog is the fixed set of emotion prototypes. Order matters: ties in
// classification distance break by catalog position, so the list must never
// be reordered at runtime.
var Catalog = []Prototype{
	// Positive, high energy
	{"excited", models.AffectVector{Valence: 0.8, Energy: 0.85, Openness: 0.6}},
	{"proud", models.AffectVector{Valence: 0.7, Energy: 0.7, Openness: 0.5}},
	{"amused", models.AffectVector{Valence: 0.7, Energy: 0.65, Openness: 0.6}},
	{"energized", models.AffectVector{Valence: 0.6, Energy: 0.9, Openness: 0.5}},
	{"playful", models.AffectVector{Valence: 0.75, Energy: 0.75, Openness: 0.7}},

	// Positive, low energy
	{"content", models.AffectVector{Valence: 0.6, Energy: 0.35, Openness: 0.5}},
	{"peaceful", models.AffectVector{Valence: 0.55, Energy: 0.2, Openness: 0.6}},
	{"tender", models.AffectVector{Valence: 0.65, Energy: 0.3, Openness: 0.85}},
	{"relieved", models.AffectVector{Valence: 0.5, Energy: 0.3, Openness: 0.5}},
	{"satisfied", models.AffectVector{Valence: 0.6, Energy: 0.4, Openness: 0.45}},

	// Negative, high energy
	{"frustrated", models.AffectVector{Valence: -0.4, Energy: 0.75, Openness: 0.3}},
	{"anxious", models.AffectVector{Valence: -0.3, Energy: 0.7, Openness: 0.5}},
	{"irritated", models.AffectVector{Valence: -0.5, Energy: 0.65, Openness: 0.25}},
	{"restless", models.AffectVector{Valence: -0.1, Energy: 0.75, Openness: 0.45}},
	{"overwhelmed", models.AffectVector{Valence: -0.4, Energy: 0.8, Openness: 0.6}},

	// Negative, low energy
	{"sad", models.AffectVector{Valence: -0.5, Energy: 0.2, Openness: 0.55}},
	{"tired", models.AffectVector{Valence: -0.05, Energy: 0.1, Openness: 0.4}},
	{"withdrawn", models.AffectVector{Valence: -0.3, Energy: 0.2, Openness: 0.2}},
	{"discouraged", models.AffectVector{Valence: -0.4, Energy: 0.25, Openness: 0.4}},
	{"drained", models.AffectVector{Valence: -0.2, Energy: 0.1, Openness: 0.35}},

	// Neutral, high energy
	{"focused", models.AffectVector{Valence: 0.3, Energy: 0.7, Openness: 0.35}},
	{"curious", models.AffectVector{Valence: 0.4, Energy: 0.6, Openness: 0.75}},
	{"alert", models.AffectVector{Valence: 0.2, Energy: 0.8, Openness: 0.45}},
	{"anticipating", models.AffectVector{Valence: 0.35, Energy: 0.65, Openness: 0.55}},
	{"determined", models.AffectVector{Valence: 0.3, Energy: 0.75, Openness: 0.3}},

	// Neutral, low energy
	{"bored", models.AffectVector{Valence: -0.1, Energy: 0.2, Openness: 0.3}},
	{"indifferent", models.AffectVector{Valence: 0.0, Energy: 0.3, Openness: 0.2}},
	{"numb", models.AffectVector{Valence: -0.15, Energy: 0.1, Openness: 0.15}},
	{"pensive", models.AffectVector{Valence: 0.1, Energy: 0.25, Openness: 0.6}},

	// High openness variants
	{"vulnerable", models.AffectVector{Valence: 0.15, Energy: 0.3, Openness: 0.9}},
	{"warm", models.AffectVector{Valence: 0.6, Energy: 0.4, Openness: 0.8}},
	{"intimate", models.AffectVector{Valence: 0.65, Energy: 0.3, Openness: 0.9}},
	{"raw", models.AffectVector{Valence: -0.1, Energy: 0.3, Openness: 0.95}},
	{"present", models.AffectVector{Valence: 0.4, Energy: 0.35, Openness: 0.8}},

	// Low openness variants
	{"guarded", models.AffectVector{Valence: 0.1, Energy: 0.4, Openness: 0.1}},
	{"cold", models.AffectVector{Valence: -0.1, Energy: 0.45, Openness: 0.1}},
	{"detached", models.AffectVector{Valence: 0.0, Energy: 0.3, Openness: 0.1}},
	{"wary", models.AffectVector{Valence: -0.15, Energy: 0.5, Openness: 0.15}},
}

// Labels returns every prototype label in catalog order.
func Labels() []string {
	out := make([]string, len(Catalog))
	for i, p := range Catalog {
		out[i] = p.Label
	}
	return out
}

func findPrototype(label string) (Prototype, bool) {
	for _, p := range Catalog {
		if p.Label == label {
			return p, true
		}
	}
	return Prototype{}, false
}
