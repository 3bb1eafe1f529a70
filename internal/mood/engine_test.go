package mood

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elara-ai/affect/internal/journal"
	"github.com/elara-ai/affect/internal/models"
	"github.com/elara-ai/affect/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine builds an engine over in-memory stores with a
// controllable clock starting at t0.
func newTestEngine(t *testing.T, opts Options) (*Engine, *state.MemStore, *time.Time) {
	t.Helper()
	jrnl, err := journal.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = jrnl.Close() })

	st := state.NewMemStore()
	eng, err := NewEngine(st, jrnl, nil, testLogger(), opts)
	require.NoError(t, err)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return t0 }
	return eng, st, &t0
}

func advance(clock *time.Time, d time.Duration) {
	*clock = clock.Add(d)
}

func TestMoodStartsAtTemperament(t *testing.T) {
	eng, _, _ := newTestEngine(t, DefaultOptions())
	v, err := eng.Mood()
	require.NoError(t, err)
	assert.Equal(t, state.FactoryTemperament, v)
}

func TestDecayTowardBaseline(t *testing.T) {
	eng, _, clock := newTestEngine(t, DefaultOptions())

	// Knock valence to zero, then let 24 hours pass.
	zero := 0.0
	_, err := eng.Set(&zero, nil, nil, "test")
	require.NoError(t, err)

	advance(clock, 24*time.Hour)
	v, err := eng.Mood()
	require.NoError(t, err)

	// 0 + (0.55-0)*(1-exp(-0.05*24))
	want := 0.55 * (1 - math.Exp(-0.05*24))
	assert.InDelta(t, want, v.Valence, 1e-9)
	assert.InDelta(t, 0.384, v.Valence, 0.001)
}

func TestDecayIsIdempotentWithinFloor(t *testing.T) {
	eng, _, clock := newTestEngine(t, DefaultOptions())
	zero := 0.0
	_, err := eng.Set(&zero, nil, nil, "")
	require.NoError(t, err)

	advance(clock, 6*time.Hour)
	first, err := eng.Mood()
	require.NoError(t, err)

	// Back-to-back reads with no elapsed time must not decay further.
	for i := 0; i < 5; i++ {
		again, err := eng.Mood()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMoodReadWithoutElapsedTimeSkipsSave(t *testing.T) {
	eng, st, clock := newTestEngine(t, DefaultOptions())

	advance(clock, time.Hour)
	first, err := eng.Mood()
	require.NoError(t, err)

	// With no elapsed time the record is unchanged, so a repeat read
	// must not rewrite the state file at all.
	st.FailSet = true
	again, err := eng.Mood()
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// Once time passes the read decays and persists again.
	advance(clock, time.Hour)
	_, err = eng.Mood()
	require.Error(t, err)
}

func TestDecayMonotoneConvergence(t *testing.T) {
	eng, _, clock := newTestEngine(t, DefaultOptions())
	zero := 0.0
	_, err := eng.Set(&zero, nil, nil, "")
	require.NoError(t, err)

	base := eng.Temperament().Valence
	prevGap := base
	for i := 0; i < 20; i++ {
		advance(clock, time.Hour)
		v, err := eng.Mood()
		require.NoError(t, err)
		gap := math.Abs(base - v.Valence)
		assert.LessOrEqual(t, gap, prevGap, "distance to baseline must never grow")
		prevGap = gap
	}
	// After 20 hours the mood is visibly closer but not yet at baseline.
	assert.Greater(t, prevGap, 0.0)
	assert.Less(t, prevGap, base)
}

func TestAdjustClampsAtBounds(t *testing.T) {
	eng, _, _ := newTestEngine(t, DefaultOptions())

	v9 := 0.9
	_, err := eng.Set(&v9, nil, nil, "")
	require.NoError(t, err)

	v, err := eng.Adjust(Deltas{Valence: 0.5}, "good news")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Valence, "valence clamps at +1, no error")

	v, err = eng.Adjust(Deltas{Energy: -5, Openness: 5}, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Energy)
	assert.Equal(t, 1.0, v.Openness)
}

func TestAdjustRejectsNonFinite(t *testing.T) {
	eng, _, _ := newTestEngine(t, DefaultOptions())
	before, err := eng.Mood()
	require.NoError(t, err)

	_, err = eng.Adjust(Deltas{Valence: math.NaN()}, "")
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	_, err = eng.Adjust(Deltas{Energy: math.Inf(1)}, "")
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	// Rejected input leaves the state untouched.
	after, err := eng.Mood()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSetRejectsNaNPointer(t *testing.T) {
	eng, _, _ := newTestEngine(t, DefaultOptions())
	bad := math.NaN()
	_, err := eng.Set(&bad, nil, nil, "")
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestSetPartialDimensions(t *testing.T) {
	eng, _, _ := newTestEngine(t, DefaultOptions())

	energy := 0.9
	v, err := eng.Set(nil, &energy, nil, "spike")
	require.NoError(t, err)
	assert.Equal(t, 0.9, v.Energy)
	assert.Equal(t, state.FactoryTemperament.Valence, v.Valence, "untouched dimension keeps its value")
}

func TestPersistFailureAbortsMutation(t *testing.T) {
	eng, st, _ := newTestEngine(t, DefaultOptions())
	before, err := eng.Mood()
	require.NoError(t, err)

	st.FailSet = true
	_, err = eng.Adjust(Deltas{Valence: 0.3}, "won't stick")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDependencyUnavailable)

	// The in-memory record must not have advanced past the failed save.
	st.FailSet = false
	after, err := eng.Mood()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAdjustJournalsSignificantChanges(t *testing.T) {
	eng, _, _ := newTestEngine(t, DefaultOptions())

	_, err := eng.Adjust(Deltas{Valence: 0.2}, "good run")
	require.NoError(t, err)

	entries, err := eng.RecentJournal(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good run", entries[0].Reason)
	assert.Equal(t, "adjust", entries[0].Trigger)
	assert.NotEmpty(t, entries[0].Emotion)
}

func TestAdjustSkipsJournalBelowEpsilon(t *testing.T) {
	eng, _, _ := newTestEngine(t, DefaultOptions())

	_, err := eng.Adjust(Deltas{Valence: 0.001}, "barely anything")
	require.NoError(t, err)

	entries, err := eng.RecentJournal(10)
	require.NoError(t, err)
	assert.Empty(t, entries, "sub-epsilon changes are not journaled")
}

func TestResidueRecordedAndAged(t *testing.T) {
	opts := DefaultOptions()
	eng, _, clock := newTestEngine(t, opts)

	_, err := eng.Adjust(Deltas{Valence: 0.1}, "a kind word")
	require.NoError(t, err)

	res := eng.Residue()
	require.Len(t, res, 1)
	assert.Equal(t, "a kind word", res[0].Reason)

	// exp(-0.02*age) drops below 0.1 after ~115 hours.
	advance(clock, 120*time.Hour)
	_, err = eng.Mood()
	require.NoError(t, err)
	assert.Empty(t, eng.Residue(), "stale residue ages out")
}

func TestResidueCapped(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxResidue = 3
	eng, _, _ := newTestEngine(t, opts)

	for i := 0; i < 6; i++ {
		_, err := eng.Adjust(Deltas{Valence: 0.01}, "event")
		require.NoError(t, err)
	}
	assert.Len(t, eng.Residue(), 3)
}

func TestSnapshotDoesNotPersist(t *testing.T) {
	eng, st, clock := newTestEngine(t, DefaultOptions())
	zero := 0.0
	_, err := eng.Set(&zero, nil, nil, "")
	require.NoError(t, err)

	advance(clock, 24*time.Hour)
	st.FailSet = true // a persisting read would now error
	rec := eng.Snapshot()
	assert.Greater(t, rec.Mood.Valence, 0.0, "snapshot sees decay applied")
}
