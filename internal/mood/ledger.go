package mood

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/elara-ai/affect/internal/events"
	"github.com/elara-ai/affect/internal/metrics"
	"github.com/elara-ai/affect/internal/models"
)

// Ledger manages emotional imprints: decaying residues of felt moments
// that persist after the details fade. It shares the engine's lock and
// state record.
type Ledger struct {
	eng *Engine
}

// NewLedger creates a ledger over the given engine.
func NewLedger(eng *Engine) *Ledger {
	return &Ledger{eng: eng}
}

// Create records a new imprint. Strength must be in (0,1].
func (l *Ledger) Create(feeling string, strength float64, imprintType string) (models.Imprint, error) {
	if feeling == "" {
		return models.Imprint{}, &models.ValidationError{Field: "feeling", Constraint: "must not be empty"}
	}
	if math.IsNaN(strength) || math.IsInf(strength, 0) {
		return models.Imprint{}, &models.ValidationError{Field: "strength", Constraint: "must be a finite number"}
	}
	if strength <= 0 || strength > 1 {
		return models.Imprint{}, &models.ValidationError{Field: "strength", Constraint: "must be in (0,1]"}
	}
	if imprintType == "" {
		imprintType = "moment"
	}

	e := l.eng
	e.mu.Lock()
	now := e.now()
	rec := e.rec.Clone()
	e.applyDecay(rec, now)

	imp := models.Imprint{
		ID:        uuid.NewString(),
		Feeling:   feeling,
		Strength:  strength,
		Created:   now,
		DecayRate: e.opts.ImprintDecayRate,
		Type:      imprintType,
		MoodThen:  rec.Mood,
	}
	rec.Imprints = append(rec.Imprints, imp)
	if max := e.opts.MaxImprints; max > 0 && len(rec.Imprints) > max {
		rec.Imprints = rec.Imprints[len(rec.Imprints)-max:]
	}

	if err := e.store.Save(rec); err != nil {
		e.mu.Unlock()
		return models.Imprint{}, fmt.Errorf("persisting affect state: %w", err)
	}
	e.rec = rec
	e.mu.Unlock()

	metrics.Inc(metrics.ImprintsCreated)
	e.notifier.Publish(events.ImprintCreated, map[string]any{
		"id":       imp.ID,
		"feeling":  feeling,
		"strength": strength,
		"type":     imprintType,
	})
	return imp, nil
}

// Active returns imprints whose decayed strength is at least minStrength.
// Every read is also a maintenance pass: entries that have decayed below
// the archive threshold are moved to the append-only archive, exactly
// once, before results are returned. Archival is one-way.
func (l *Ledger) Active(minStrength float64) ([]models.Imprint, error) {
	if math.IsNaN(minStrength) || math.IsInf(minStrength, 0) || minStrength < 0 {
		return nil, &models.ValidationError{Field: "min_strength", Constraint: "must be a finite non-negative number"}
	}

	e := l.eng
	e.mu.Lock()
	now := e.now()
	rec := e.rec.Clone()
	e.applyDecay(rec, now)

	var (
		surviving []models.Imprint
		archived  []models.Imprint
		active    []models.Imprint
	)
	for _, imp := range rec.Imprints {
		decayed := imp.DecayedStrength(now)
		if decayed < e.opts.ArchiveThreshold {
			archived = append(archived, imp)
			continue
		}
		surviving = append(surviving, imp)
		if decayed >= minStrength {
			view := imp
			view.Strength = decayed
			active = append(active, view)
		}
	}
	rec.Imprints = surviving

	if err := e.store.Save(rec); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("persisting affect state: %w", err)
	}
	e.rec = rec

	for _, imp := range archived {
		entry := models.ArchivedImprint{ArchivedAt: now, Imprint: imp}
		entry.Strength = imp.DecayedStrength(now)
		if err := e.journal.AppendArchivedImprint(entry); err != nil {
			e.logger.Warn("archiving imprint", "id", imp.ID, "error", err)
		}
	}
	e.mu.Unlock()

	for _, imp := range archived {
		metrics.Inc(metrics.ImprintsArchived)
		e.notifier.Publish(events.ImprintArchived, map[string]any{
			"id":      imp.ID,
			"feeling": imp.Feeling,
		})
	}
	return active, nil
}

// Get returns a single active imprint by id with its decayed strength.
// Returns ErrNotFound for unknown or already-archived ids.
func (l *Ledger) Get(id string) (models.Imprint, error) {
	e := l.eng
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for _, imp := range e.rec.Imprints {
		if imp.ID != id {
			continue
		}
		decayed := imp.DecayedStrength(now)
		if decayed < e.opts.ArchiveThreshold {
			break // due for archival; treat as gone
		}
		view := imp
		view.Strength = decayed
		return view, nil
	}
	return models.Imprint{}, fmt.Errorf("imprint %s: %w", id, models.ErrNotFound)
}

// Archived returns the most recent archived imprints, newest first.
// Read-only: archived entries never return to the active set.
func (l *Ledger) Archived(n int) ([]models.ArchivedImprint, error) {
	if n <= 0 {
		n = 20
	}
	return l.eng.journal.RecentArchivedImprints(n)
}

// Strongest returns the active imprint with the highest decayed strength,
// or false if none is at or above minStrength.
func (l *Ledger) Strongest(minStrength float64) (models.Imprint, bool, error) {
	active, err := l.Active(minStrength)
	if err != nil {
		return models.Imprint{}, false, err
	}
	if len(active) == 0 {
		return models.Imprint{}, false, nil
	}
	best := active[0]
	for _, imp := range active[1:] {
		if imp.Strength > best.Strength {
			best = imp
		}
	}
	return best, true, nil
}
