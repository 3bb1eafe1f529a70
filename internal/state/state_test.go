package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elara-ai/affect/internal/models"
)

func TestFileStoreMissingFileReturnsDefault(t *testing.T) {
	st := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	rec, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, FactoryTemperament, rec.Mood)
	assert.Equal(t, FactoryTemperament, rec.Temperament)
	assert.True(t, rec.LastUpdate.IsZero())
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st := NewFileStore(path)

	rec := DefaultRecord()
	rec.Mood.Valence = -0.25
	rec.LastUpdate = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec.Imprints = append(rec.Imprints, models.Imprint{
		ID: "imp-1", Feeling: "a good day", Strength: 0.7,
		Created: rec.LastUpdate, DecayRate: 0.02, Type: "moment",
	})
	require.NoError(t, st.Save(rec))

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, rec.Mood, loaded.Mood)
	require.Len(t, loaded.Imprints, 1)
	assert.Equal(t, "imp-1", loaded.Imprints[0].ID)
	assert.True(t, rec.LastUpdate.Equal(loaded.LastUpdate))
}

func TestFileStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	st := NewFileStore(filepath.Join(dir, "state.json"))
	require.NoError(t, st.Save(DefaultRecord()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	st := NewFileStore(path)
	_, err := st.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing state file")
}

func TestCloneIsDeep(t *testing.T) {
	rec := DefaultRecord()
	rec.Imprints = append(rec.Imprints, models.Imprint{ID: "a", Feeling: "f", Strength: 0.5})
	rec.Residue = append(rec.Residue, models.ResidueEntry{Reason: "r"})
	rec.Flags["muted"] = true

	clone := rec.Clone()
	clone.Mood.Valence = -1
	clone.Imprints[0].Strength = 0.1
	clone.Residue[0].Reason = "changed"
	clone.Flags["muted"] = false

	assert.Equal(t, FactoryTemperament.Valence, rec.Mood.Valence)
	assert.Equal(t, 0.5, rec.Imprints[0].Strength)
	assert.Equal(t, "r", rec.Residue[0].Reason)
	assert.True(t, rec.Flags["muted"])
}

func TestMemStoreFailSet(t *testing.T) {
	st := NewMemStore()
	rec, err := st.Load()
	require.NoError(t, err)

	st.FailSet = true
	err = st.Save(rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDependencyUnavailable)
}
