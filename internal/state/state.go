// Package state owns the single persisted affect record and its storage.
// The record is constructed once at process start, loaded from persistence,
// and passed by reference to the components that mutate it.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/elara-ai/affect/internal/models"
)

// FactoryTemperament is the unchanging baseline the temperament decays
// toward. Drift may move the working baseline, but never this constant.
var FactoryTemperament = models.AffectVector{Valence: 0.55, Energy: 0.5, Openness: 0.65}

// Record is the complete persisted affective state.
type Record struct {
	Mood        models.AffectVector   `json:"mood"`
	Temperament models.AffectVector   `json:"temperament"`
	Imprints    []models.Imprint      `json:"imprints"`
	Residue     []models.ResidueEntry `json:"residue"`
	LastUpdate  time.Time             `json:"last_update"` // zero = never updated

	// AllostaticLoad is carried for forward compatibility; it is not yet
	// wired into the decay math.
	AllostaticLoad float64         `json:"allostatic_load"`
	Flags          map[string]bool `json:"flags,omitempty"`
}

// DefaultRecord returns a fresh record at the factory baseline.
func DefaultRecord() *Record {
	return &Record{
		Mood:        FactoryTemperament,
		Temperament: FactoryTemperament,
		Imprints:    []models.Imprint{},
		Residue:     []models.ResidueEntry{},
		Flags:       map[string]bool{},
	}
}

// Clone returns a deep copy. Mutations are applied to a clone and swapped
// in only after the clone has been persisted, so a save failure never
// leaves the in-memory and persisted copies diverged.
func (r *Record) Clone() *Record {
	out := *r
	out.Imprints = make([]models.Imprint, len(r.Imprints))
	copy(out.Imprints, r.Imprints)
	out.Residue = make([]models.ResidueEntry, len(r.Residue))
	copy(out.Residue, r.Residue)
	if r.Flags != nil {
		out.Flags = make(map[string]bool, len(r.Flags))
		for k, v := range r.Flags {
			out.Flags[k] = v
		}
	}
	return &out
}

// Store persists the affect record. Save must be atomic: after a crash
// either the old or the fully-new record is observable, never a partial
// write.
type Store interface {
	Load() (*Record, error)
	Save(*Record) error
}

// FileStore is the production Store: one JSON file, written atomically via
// a temp file and rename.
type FileStore struct {
	path string
}

// NewFileStore creates a file store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the record. A missing file yields the default record.
func (s *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultRecord(), nil
		}
		return nil, fmt.Errorf("%w: reading state file: %v", models.ErrDependencyUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", s.path, err)
	}

	// Older records may predate some fields.
	if rec.Imprints == nil {
		rec.Imprints = []models.Imprint{}
	}
	if rec.Residue == nil {
		rec.Residue = []models.ResidueEntry{}
	}
	if rec.Flags == nil {
		rec.Flags = map[string]bool{}
	}
	zero := models.AffectVector{}
	if rec.Temperament == zero {
		rec.Temperament = FactoryTemperament
	}
	return &rec, nil
}

// Save writes the record atomically.
func (s *FileStore) Save(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating state dir: %v", models.ErrDependencyUnavailable, err)
	}

	tmp, err := os.CreateTemp(dir, ".affect-state-*.json")
	if err != nil {
		return fmt.Errorf("%w: creating temp state file: %v", models.ErrDependencyUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: writing state: %v", models.ErrDependencyUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: closing state file: %v", models.ErrDependencyUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: replacing state file: %v", models.ErrDependencyUnavailable, err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	rec     *Record
	FailSet bool // when true, Save returns an error without storing
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load returns a clone of the stored record, or the default record.
func (s *MemStore) Load() (*Record, error) {
	if s.rec == nil {
		return DefaultRecord(), nil
	}
	return s.rec.Clone(), nil
}

// Save stores a clone of the record.
func (s *MemStore) Save(rec *Record) error {
	if s.FailSet {
		return fmt.Errorf("%w: save disabled", models.ErrDependencyUnavailable)
	}
	s.rec = rec.Clone()
	return nil
}
