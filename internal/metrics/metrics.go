// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when the API server is running.
package metrics

import "expvar"

// Operation counters.
var (
	MoodReads         = expvar.NewInt("affect_mood_reads_total")
	MoodAdjusts       = expvar.NewInt("affect_mood_adjusts_total")
	MoodSets          = expvar.NewInt("affect_mood_sets_total")
	ImprintsCreated   = expvar.NewInt("affect_imprints_created_total")
	ImprintsArchived  = expvar.NewInt("affect_imprints_archived_total")
	RecallTotal       = expvar.NewInt("affect_recall_total")
	RecallDegraded    = expvar.NewInt("affect_recall_degraded_total")
	DriftApplied      = expvar.NewInt("affect_drift_applied_total")
	FactoryDecays     = expvar.NewInt("affect_factory_decays_total")
	TemperamentResets = expvar.NewInt("affect_temperament_resets_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
