package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/elara-ai/affect/internal/models"
)

// DB is the SQLite-backed journal store.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the journal database at the given path,
// configures pragmas, and runs migrations.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return open(path)
}

// OpenMemory opens an in-memory journal database for testing.
func OpenMemory() (*DB, error) {
	return open(":memory:")
}

func open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db := &DB{db: sqlDB, path: path}
	if err := db.configurePragmas(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (d *DB) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := d.db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func (d *DB) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS mood_journal (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	ts       TEXT NOT NULL,
	valence  REAL NOT NULL,
	energy   REAL NOT NULL,
	openness REAL NOT NULL,
	emotion  TEXT NOT NULL,
	reason   TEXT NOT NULL DEFAULT '',
	trigger_ TEXT NOT NULL DEFAULT 'adjust'
);
CREATE INDEX IF NOT EXISTS idx_mood_journal_ts ON mood_journal(ts);

CREATE TABLE IF NOT EXISTS temperament_log (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	ts     TEXT NOT NULL,
	dim    TEXT NOT NULL,
	delta  REAL NOT NULL,
	source TEXT NOT NULL,
	new    REAL NOT NULL,
	drift  REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_temperament_log_ts ON temperament_log(ts);

CREATE TABLE IF NOT EXISTS imprint_archive (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	archived_at TEXT NOT NULL,
	imprint_id  TEXT NOT NULL,
	feeling     TEXT NOT NULL,
	strength    REAL NOT NULL,
	created     TEXT NOT NULL,
	decay_rate  REAL NOT NULL,
	type        TEXT NOT NULL DEFAULT 'moment'
);
`
	_, err := d.db.Exec(schema)
	return err
}

// AppendMood writes one mood journal entry.
func (d *DB) AppendMood(e models.MoodJournalEntry) error {
	_, err := d.db.Exec(
		`INSERT INTO mood_journal (ts, valence, energy, openness, emotion, reason, trigger_)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Valence, e.Energy, e.Openness, e.Emotion, e.Reason, e.Trigger,
	)
	if err != nil {
		return fmt.Errorf("append mood entry: %w", err)
	}
	return nil
}

// RecentMood returns the last n mood entries, oldest first.
func (d *DB) RecentMood(n int) ([]models.MoodJournalEntry, error) {
	rows, err := d.db.Query(
		`SELECT ts, valence, energy, openness, emotion, reason, trigger_
		 FROM mood_journal ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query mood journal: %w", err)
	}
	defer rows.Close()

	var out []models.MoodJournalEntry
	for rows.Next() {
		var e models.MoodJournalEntry
		var ts string
		if err := rows.Scan(&ts, &e.Valence, &e.Energy, &e.Openness, &e.Emotion, &e.Reason, &e.Trigger); err != nil {
			return nil, fmt.Errorf("scan mood entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

// AppendTemperament writes one temperament log entry.
func (d *DB) AppendTemperament(e models.TemperamentJournalEntry) error {
	_, err := d.db.Exec(
		`INSERT INTO temperament_log (ts, dim, delta, source, new, drift)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		string(e.Dimension), e.Delta, e.Source, e.NewValue, e.Drift,
	)
	if err != nil {
		return fmt.Errorf("append temperament entry: %w", err)
	}
	return nil
}

// RecentTemperament returns the last n temperament entries, oldest first.
func (d *DB) RecentTemperament(n int) ([]models.TemperamentJournalEntry, error) {
	rows, err := d.db.Query(
		`SELECT ts, dim, delta, source, new, drift
		 FROM temperament_log ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query temperament log: %w", err)
	}
	defer rows.Close()

	var out []models.TemperamentJournalEntry
	for rows.Next() {
		var e models.TemperamentJournalEntry
		var ts, dim string
		if err := rows.Scan(&ts, &dim, &e.Delta, &e.Source, &e.NewValue, &e.Drift); err != nil {
			return nil, fmt.Errorf("scan temperament entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.Dimension = models.Dimension(dim)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

// DriftSince sums signed drift deltas per dimension since the cutoff,
// excluding factory-decay and reset entries.
func (d *DB) DriftSince(cutoff time.Time) (map[models.Dimension]float64, error) {
	rows, err := d.db.Query(
		`SELECT dim, COALESCE(SUM(delta), 0)
		 FROM temperament_log
		 WHERE ts >= ? AND source NOT IN (?, ?)
		 GROUP BY dim`,
		cutoff.UTC().Format(time.RFC3339Nano), SourceFactoryDecay, SourceReset)
	if err != nil {
		return nil, fmt.Errorf("query drift: %w", err)
	}
	defer rows.Close()

	sums := make(map[models.Dimension]float64, len(models.Dimensions))
	for rows.Next() {
		var dim string
		var sum float64
		if err := rows.Scan(&dim, &sum); err != nil {
			return nil, fmt.Errorf("scan drift: %w", err)
		}
		sums[models.Dimension(dim)] = sum
	}
	return sums, rows.Err()
}

// AppendArchivedImprint writes a faded imprint into the archive.
func (d *DB) AppendArchivedImprint(e models.ArchivedImprint) error {
	_, err := d.db.Exec(
		`INSERT INTO imprint_archive (archived_at, imprint_id, feeling, strength, created, decay_rate, type)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ArchivedAt.UTC().Format(time.RFC3339Nano),
		e.ID, e.Feeling, e.Strength,
		e.Created.UTC().Format(time.RFC3339Nano),
		e.DecayRate, e.Type,
	)
	if err != nil {
		return fmt.Errorf("append archived imprint: %w", err)
	}
	return nil
}

// RecentArchivedImprints returns the last n archived imprints, newest first.
func (d *DB) RecentArchivedImprints(n int) ([]models.ArchivedImprint, error) {
	rows, err := d.db.Query(
		`SELECT archived_at, imprint_id, feeling, strength, created, decay_rate, type
		 FROM imprint_archive ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query imprint archive: %w", err)
	}
	defer rows.Close()

	var out []models.ArchivedImprint
	for rows.Next() {
		var e models.ArchivedImprint
		var archivedAt, created string
		if err := rows.Scan(&archivedAt, &e.ID, &e.Feeling, &e.Strength, &created, &e.DecayRate, &e.Type); err != nil {
			return nil, fmt.Errorf("scan archived imprint: %w", err)
		}
		e.ArchivedAt, _ = time.Parse(time.RFC3339Nano, archivedAt)
		e.Created, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
