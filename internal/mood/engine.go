// Package mood implements the affect decay engine: the instantaneous mood
// vector, its lazy time-decay toward the temperament baseline, emotional
// imprints, and the slowly-drifting temperament itself.
//
// All mutating operations run under one mutex on the shared state record.
// Reads are also writers here: decay is applied lazily at read time, so two
// concurrent callers must never both observe a pre-decay value. The
// critical section is in-memory arithmetic plus the persistence write;
// event publication happens after the lock is released.
package mood

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/elara-ai/affect/internal/emotion"
	"github.com/elara-ai/affect/internal/events"
	"github.com/elara-ai/affect/internal/journal"
	"github.com/elara-ai/affect/internal/metrics"
	"github.com/elara-ai/affect/internal/models"
	"github.com/elara-ai/affect/internal/state"
)

// minDecayHours is the elapsed-time floor below which decay is a no-op.
// Keeps back-to-back reads idempotent.
const minDecayHours = 0.01

// DecayRates holds the per-dimension decay rate in units of 1/hour.
type DecayRates struct {
	Valence  float64 `json:"valence" mapstructure:"valence"`
	Energy   float64 `json:"energy" mapstructure:"energy"`
	Openness float64 `json:"openness" mapstructure:"openness"`
}

// DefaultDecayRates returns the uniform default rate of 0.05/hour.
func DefaultDecayRates() DecayRates {
	return DecayRates{Valence: 0.05, Energy: 0.05, Openness: 0.05}
}

// Rate returns the rate for the named dimension.
func (r DecayRates) Rate(d models.Dimension) float64 {
	switch d {
	case models.DimValence:
		return r.Valence
	case models.DimEnergy:
		return r.Energy
	case models.DimOpenness:
		return r.Openness
	}
	return 0
}

// Options configures the engine, ledger, and temperament controller.
type Options struct {
	DecayRates       DecayRates
	JournalEpsilon   float64 // changes below this magnitude are not journaled
	ImprintDecayRate float64 // default imprint decay, 1/hour
	ArchiveThreshold float64 // imprints below this strength are archived
	MaxImprints      int
	MaxResidue       int
	ResidueDecayRate float64 // residue aging, 1/hour
	WeeklyDriftCap   float64 // max temperament drift per dimension per rolling week
	FactoryDecayRate float64 // fraction pulled back toward factory per decay cycle
	MaxTotalDrift    float64 // hard ceiling on distance from factory per dimension
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		DecayRates:       DefaultDecayRates(),
		JournalEpsilon:   0.005,
		ImprintDecayRate: 0.02,
		ArchiveThreshold: 0.1,
		MaxImprints:      20,
		MaxResidue:       10,
		ResidueDecayRate: 0.02,
		WeeklyDriftCap:   0.03,
		FactoryDecayRate: 0.15,
		MaxTotalDrift:    0.15,
	}
}

// Deltas is a per-dimension mood adjustment.
type Deltas struct {
	Valence  float64 `json:"valence"`
	Energy   float64 `json:"energy"`
	Openness float64 `json:"openness"`
}

// Validate rejects non-finite deltas.
func (d Deltas) Validate() error {
	return models.AffectVector(d).Validate()
}

// Engine owns the affect state record and applies time-decay lazily on
// every read. Safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rec      *state.Record
	store    state.Store
	journal  journal.Store
	notifier events.Notifier
	resolver *emotion.Classifier
	opts     Options
	logger   *slog.Logger

	now func() time.Time
}

// NewEngine loads the persisted record and returns a ready engine.
func NewEngine(st state.Store, jrnl journal.Store, notifier events.Notifier, logger *slog.Logger, opts Options) (*Engine, error) {
	rec, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("loading affect state: %w", err)
	}
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Engine{
		rec:      rec,
		store:    st,
		journal:  jrnl,
		notifier: notifier,
		resolver: emotion.New(),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Mood applies elapsed-time decay, persists the updated record, and
// returns the current affect vector. Decay-only reads are not journaled.
func (e *Engine) Mood() (models.AffectVector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.rec.Clone()
	if !e.applyDecay(rec, e.now()) {
		metrics.Inc(metrics.MoodReads)
		return e.rec.Mood, nil
	}
	if err := e.store.Save(rec); err != nil {
		return models.AffectVector{}, fmt.Errorf("persisting affect state: %w", err)
	}
	e.rec = rec
	metrics.Inc(metrics.MoodReads)
	return rec.Mood, nil
}

// Adjust applies decay, adds the supplied deltas, clamps into domain
// bounds, and persists. Deltas that would push past a bound are silently
// clamped, never rejected; non-finite deltas are rejected before any
// mutation.
func (e *Engine) Adjust(d Deltas, reason string) (models.AffectVector, error) {
	if err := d.Validate(); err != nil {
		return models.AffectVector{}, err
	}

	e.mu.Lock()
	now := e.now()
	rec := e.rec.Clone()
	e.applyDecay(rec, now)

	before := rec.Mood
	rec.Mood = models.AffectVector{
		Valence:  before.Valence + d.Valence,
		Energy:   before.Energy + d.Energy,
		Openness: before.Openness + d.Openness,
	}.Clamp()

	if reason != "" {
		e.appendResidue(rec, models.ResidueEntry{
			Time:   now,
			Reason: reason,
			Type:   "adjust",
			Deltas: map[models.Dimension]float64{
				models.DimValence:  d.Valence,
				models.DimEnergy:   d.Energy,
				models.DimOpenness: d.Openness,
			},
		})
	}

	if err := e.store.Save(rec); err != nil {
		e.mu.Unlock()
		return models.AffectVector{}, fmt.Errorf("persisting affect state: %w", err)
	}
	e.rec = rec

	mood := rec.Mood
	if before.Distance(mood) > e.opts.JournalEpsilon {
		e.logMood(mood, reason, "adjust")
	}
	e.mu.Unlock()

	metrics.Inc(metrics.MoodAdjusts)
	e.notifier.Publish(events.MoodChanged, map[string]any{
		"valence":  mood.Valence,
		"energy":   mood.Energy,
		"openness": mood.Openness,
		"reason":   reason,
	})
	return mood, nil
}

// Set overwrites any subset of dimensions with absolute values. Nil
// pointers keep the current value. Still clamped, still journaled when a
// dimension actually changed.
func (e *Engine) Set(valence, energy, openness *float64, reason string) (models.AffectVector, error) {
	for name, p := range map[string]*float64{"valence": valence, "energy": energy, "openness": openness} {
		if p != nil && (math.IsNaN(*p) || math.IsInf(*p, 0)) {
			return models.AffectVector{}, &models.ValidationError{Field: name, Constraint: "must be a finite number"}
		}
	}

	e.mu.Lock()
	now := e.now()
	rec := e.rec.Clone()
	e.applyDecay(rec, now)

	before := rec.Mood
	if valence != nil {
		rec.Mood.Valence = *valence
	}
	if energy != nil {
		rec.Mood.Energy = *energy
	}
	if openness != nil {
		rec.Mood.Openness = *openness
	}
	rec.Mood = rec.Mood.Clamp()

	if reason != "" {
		e.appendResidue(rec, models.ResidueEntry{Time: now, Reason: reason, Type: "mood_set"})
	}

	if err := e.store.Save(rec); err != nil {
		e.mu.Unlock()
		return models.AffectVector{}, fmt.Errorf("persisting affect state: %w", err)
	}
	e.rec = rec

	mood := rec.Mood
	if before.Distance(mood) > 1e-9 {
		e.logMood(mood, reason, "set")
	}
	e.mu.Unlock()

	metrics.Inc(metrics.MoodSets)
	e.notifier.Publish(events.MoodSet, map[string]any{
		"valence":  mood.Valence,
		"energy":   mood.Energy,
		"openness": mood.Openness,
		"reason":   reason,
	})
	return mood, nil
}

// Temperament returns the current baseline.
func (e *Engine) Temperament() models.AffectVector {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Temperament
}

// Residue returns the recent mood-change causes, newest last.
func (e *Engine) Residue() []models.ResidueEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.ResidueEntry, len(e.rec.Residue))
	copy(out, e.rec.Residue)
	return out
}

// Snapshot returns a deep copy of the full state record with decay
// applied. Used by status surfaces; does not persist.
func (e *Engine) Snapshot() *state.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.rec.Clone()
	e.applyDecay(rec, e.now())
	return rec
}

// RecentJournal returns the last n mood journal entries.
func (e *Engine) RecentJournal(n int) ([]models.MoodJournalEntry, error) {
	if n <= 0 {
		n = 50
	}
	return e.journal.RecentMood(n)
}

// applyDecay moves the mood toward the temperament baseline according to
// elapsed time. The exponential form never overshoots: the distance to
// baseline strictly decreases for any positive elapsed time. Also ages out
// stale residue. Caller must hold the lock; rec must be a private clone.
// Returns whether the record changed, so no-op reads can skip the save.
func (e *Engine) applyDecay(rec *state.Record, now time.Time) bool {
	if rec.LastUpdate.IsZero() {
		rec.LastUpdate = now
		return true
	}
	hours := now.Sub(rec.LastUpdate).Hours()
	if hours < minDecayHours {
		return false
	}

	for _, dim := range models.Dimensions {
		rate := e.opts.DecayRates.Rate(dim)
		if rate <= 0 {
			continue
		}
		cur := rec.Mood.Get(dim)
		base := rec.Temperament.Get(dim)
		cur += (base - cur) * (1 - math.Exp(-rate*hours))
		rec.Mood = rec.Mood.Set(dim, cur)
	}
	rec.Mood = rec.Mood.Clamp()

	// Residue ages out independently of the mood itself.
	if e.opts.ResidueDecayRate > 0 {
		kept := rec.Residue[:0]
		for _, r := range rec.Residue {
			age := now.Sub(r.Time).Hours()
			if math.Exp(-e.opts.ResidueDecayRate*age) >= 0.1 {
				kept = append(kept, r)
			}
		}
		rec.Residue = kept
	}

	rec.LastUpdate = now
	return true
}

func (e *Engine) appendResidue(rec *state.Record, entry models.ResidueEntry) {
	rec.Residue = append(rec.Residue, entry)
	if max := e.opts.MaxResidue; max > 0 && len(rec.Residue) > max {
		rec.Residue = rec.Residue[len(rec.Residue)-max:]
	}
}

// logMood appends a journal entry. Journal failures are logged, not
// propagated: the state change has already been persisted.
func (e *Engine) logMood(mood models.AffectVector, reason, trigger string) {
	entry := models.MoodJournalEntry{
		Timestamp: e.now(),
		Valence:   mood.Valence,
		Energy:    mood.Energy,
		Openness:  mood.Openness,
		Emotion:   e.resolver.Primary(mood).Label,
		Reason:    reason,
		Trigger:   trigger,
	}
	if err := e.journal.AppendMood(entry); err != nil {
		e.logger.Warn("appending mood journal entry", "error", err)
	}
}
