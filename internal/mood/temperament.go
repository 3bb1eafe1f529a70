package mood

import (
	"fmt"
	"math"
	"time"

	"github.com/elara-ai/affect/internal/events"
	"github.com/elara-ai/affect/internal/journal"
	"github.com/elara-ai/affect/internal/metrics"
	"github.com/elara-ai/affect/internal/models"
	"github.com/elara-ai/affect/internal/state"
)

// driftWindow is the rolling window the drift cap applies over.
const driftWindow = 7 * 24 * time.Hour

// Controller mutates the temperament baseline the mood decays toward.
// Drift is capped per dimension per rolling week; the factory-decay pass
// is a separate continuous corrective force exempt from that cap.
type Controller struct {
	eng *Engine
}

// NewController creates a controller over the given engine.
func NewController(eng *Engine) *Controller {
	return &Controller{eng: eng}
}

// AppliedDrift reports the outcome of one drift application.
type AppliedDrift struct {
	Applied  map[models.Dimension]float64 `json:"applied"`
	Baseline models.AffectVector          `json:"baseline"`
}

// ApplyDrift sums the proposed per-dimension deltas, truncates each to the
// headroom left under the weekly cap, applies the remainder to the
// baseline, and journals every applied change. Proposals that exceed the
// cap are truncated, not rejected.
func (c *Controller) ApplyDrift(adjustments map[models.Dimension]float64, source string) (AppliedDrift, error) {
	for dim, delta := range adjustments {
		if !dim.IsValid() {
			return AppliedDrift{}, &models.ValidationError{Field: string(dim), Constraint: "is not an affect dimension"}
		}
		if math.IsNaN(delta) || math.IsInf(delta, 0) {
			return AppliedDrift{}, &models.ValidationError{Field: string(dim), Constraint: "delta must be a finite number"}
		}
	}
	if source == "" {
		source = "manual"
	}

	e := c.eng
	e.mu.Lock()
	now := e.now()

	used, err := e.journal.DriftSince(now.Add(-driftWindow))
	if err != nil {
		e.mu.Unlock()
		return AppliedDrift{}, fmt.Errorf("reading drift window: %w", err)
	}

	rec := e.rec.Clone()
	e.applyDecay(rec, now)

	weekCap := e.opts.WeeklyDriftCap
	applied := make(map[models.Dimension]float64)
	var entries []models.TemperamentJournalEntry

	for _, dim := range models.Dimensions {
		delta, ok := adjustments[dim]
		if !ok || delta == 0 {
			continue
		}

		// Truncate to the headroom remaining in the rolling week.
		headHigh := weekCap - used[dim]
		headLow := -weekCap - used[dim]
		if delta > headHigh {
			delta = headHigh
		}
		if delta < headLow {
			delta = headLow
		}

		old := rec.Temperament.Get(dim)
		newVal := c.clampBaseline(dim, old+delta)
		actual := newVal - old
		if math.Abs(actual) < 1e-9 {
			continue
		}

		rec.Temperament = rec.Temperament.Set(dim, newVal)
		applied[dim] = actual
		entries = append(entries, models.TemperamentJournalEntry{
			Timestamp: now,
			Dimension: dim,
			Delta:     actual,
			Source:    source,
			NewValue:  newVal,
			Drift:     newVal - state.FactoryTemperament.Get(dim),
		})
	}

	if err := e.store.Save(rec); err != nil {
		e.mu.Unlock()
		return AppliedDrift{}, fmt.Errorf("persisting affect state: %w", err)
	}
	e.rec = rec

	for _, entry := range entries {
		if err := e.journal.AppendTemperament(entry); err != nil {
			e.logger.Warn("appending temperament entry", "dim", entry.Dimension, "error", err)
		}
	}
	baseline := rec.Temperament
	e.mu.Unlock()

	if len(applied) > 0 {
		metrics.Inc(metrics.DriftApplied)
		e.notifier.Publish(events.TemperamentAdjust, map[string]any{
			"source":  source,
			"applied": applied,
		})
	}
	return AppliedDrift{Applied: applied, Baseline: baseline}, nil
}

// DecayTowardFactory moves every baseline dimension a fixed fraction of
// the way back toward the factory constants. Not counted against the
// weekly drift cap. A rate of 0 uses the configured default.
func (c *Controller) DecayTowardFactory(rate float64) (models.AffectVector, error) {
	e := c.eng
	if rate == 0 {
		rate = e.opts.FactoryDecayRate
	}
	if math.IsNaN(rate) || rate <= 0 || rate > 1 {
		return models.AffectVector{}, &models.ValidationError{Field: "rate", Constraint: "must be in (0,1]"}
	}

	e.mu.Lock()
	now := e.now()
	rec := e.rec.Clone()
	e.applyDecay(rec, now)

	var entries []models.TemperamentJournalEntry
	for _, dim := range models.Dimensions {
		factory := state.FactoryTemperament.Get(dim)
		cur := rec.Temperament.Get(dim)
		drift := cur - factory
		if math.Abs(drift) <= 0.005 {
			continue
		}
		newVal := cur - drift*rate
		rec.Temperament = rec.Temperament.Set(dim, newVal)
		entries = append(entries, models.TemperamentJournalEntry{
			Timestamp: now,
			Dimension: dim,
			Delta:     newVal - cur,
			Source:    journal.SourceFactoryDecay,
			NewValue:  newVal,
			Drift:     newVal - factory,
		})
	}

	if err := e.store.Save(rec); err != nil {
		e.mu.Unlock()
		return models.AffectVector{}, fmt.Errorf("persisting affect state: %w", err)
	}
	e.rec = rec
	for _, entry := range entries {
		if err := e.journal.AppendTemperament(entry); err != nil {
			e.logger.Warn("appending temperament entry", "dim", entry.Dimension, "error", err)
		}
	}
	baseline := rec.Temperament
	e.mu.Unlock()

	metrics.Inc(metrics.FactoryDecays)
	return baseline, nil
}

// Reset instantly restores the factory baseline, bypassing all caps, and
// logs the reset.
func (c *Controller) Reset() (models.AffectVector, error) {
	e := c.eng
	e.mu.Lock()
	now := e.now()
	rec := e.rec.Clone()
	e.applyDecay(rec, now)

	old := rec.Temperament
	rec.Temperament = state.FactoryTemperament

	if err := e.store.Save(rec); err != nil {
		e.mu.Unlock()
		return models.AffectVector{}, fmt.Errorf("persisting affect state: %w", err)
	}
	e.rec = rec

	for _, dim := range models.Dimensions {
		factory := state.FactoryTemperament.Get(dim)
		entry := models.TemperamentJournalEntry{
			Timestamp: now,
			Dimension: dim,
			Delta:     factory - old.Get(dim),
			Source:    journal.SourceReset,
			NewValue:  factory,
			Drift:     0,
		}
		if err := e.journal.AppendTemperament(entry); err != nil {
			e.logger.Warn("appending temperament entry", "dim", dim, "error", err)
		}
	}
	e.mu.Unlock()

	metrics.Inc(metrics.TemperamentResets)
	e.notifier.Publish(events.TemperamentReset, map[string]any{})
	return state.FactoryTemperament, nil
}

// Status reports the baseline against factory, drift used in the current
// rolling week, and recent adjustments.
type Status struct {
	Current    models.AffectVector              `json:"current"`
	Factory    models.AffectVector              `json:"factory"`
	Drift      map[models.Dimension]float64     `json:"drift"`
	WeeklyUsed map[models.Dimension]float64     `json:"weekly_used"`
	WeeklyCap  float64                          `json:"weekly_cap"`
	Recent     []models.TemperamentJournalEntry `json:"recent_adjustments"`
}

// Status returns the controller's current status.
func (c *Controller) Status() (Status, error) {
	e := c.eng
	e.mu.Lock()
	current := e.rec.Temperament
	now := e.now()
	e.mu.Unlock()

	used, err := e.journal.DriftSince(now.Add(-driftWindow))
	if err != nil {
		return Status{}, fmt.Errorf("reading drift window: %w", err)
	}
	recent, err := e.journal.RecentTemperament(5)
	if err != nil {
		return Status{}, fmt.Errorf("reading temperament log: %w", err)
	}

	drift := make(map[models.Dimension]float64)
	for _, dim := range models.Dimensions {
		d := current.Get(dim) - state.FactoryTemperament.Get(dim)
		if math.Abs(d) > 0.005 {
			drift[dim] = d
		}
	}

	return Status{
		Current:    current,
		Factory:    state.FactoryTemperament,
		Drift:      drift,
		WeeklyUsed: used,
		WeeklyCap:  e.opts.WeeklyDriftCap,
		Recent:     recent,
	}, nil
}

// clampBaseline keeps a baseline dimension inside its domain bounds and
// within MaxTotalDrift of the factory constant.
func (c *Controller) clampBaseline(dim models.Dimension, v float64) float64 {
	lo, hi := models.Bounds(dim)
	factory := state.FactoryTemperament.Get(dim)
	maxDrift := c.eng.opts.MaxTotalDrift
	if maxDrift > 0 {
		lo = math.Max(lo, factory-maxDrift)
		hi = math.Min(hi, factory+maxDrift)
	}
	return math.Max(lo, math.Min(hi, v))
}
