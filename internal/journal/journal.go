// Package journal provides the append-only journals that accompany state
// changes: the mood journal, the temperament log, and the imprint archive.
// Entries are written under the caller's state lock and never read-modified.
package journal

import (
	"time"

	"github.com/elara-ai/affect/internal/models"
)

// Store is the journal contract the engine writes to. Appends must be
// cheap; reads are for status surfaces and the rolling drift cap.
type Store interface {
	AppendMood(e models.MoodJournalEntry) error
	RecentMood(n int) ([]models.MoodJournalEntry, error)

	AppendTemperament(e models.TemperamentJournalEntry) error
	RecentTemperament(n int) ([]models.TemperamentJournalEntry, error)

	// DriftSince sums signed drift deltas per dimension for entries at or
	// after the cutoff. Factory-decay and reset entries are excluded: they
	// do not count against the weekly drift cap.
	DriftSince(cutoff time.Time) (map[models.Dimension]float64, error)

	AppendArchivedImprint(e models.ArchivedImprint) error
	RecentArchivedImprints(n int) ([]models.ArchivedImprint, error)

	Close() error
}

// Sources excluded from the weekly drift cap.
const (
	SourceFactoryDecay = "factory_decay"
	SourceReset        = "reset"
)
