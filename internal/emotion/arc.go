package emotion

import (
	"fmt"

	"github.com/elara-ai/affect/internal/models"
)

// Snapshot is one point in a session's emotional history.
type Snapshot struct {
	Vector  models.AffectVector `json:"vector"`
	Emotion string              `json:"emotion,omitempty"`
}

// Arc describes how emotions shifted across a sequence of snapshots.
type Arc struct {
	Pattern       string  `json:"pattern"`
	Description   string  `json:"description"`
	StartEmotion  string  `json:"start_emotion"`
	EndEmotion    string  `json:"end_emotion"`
	PeakEmotion   string  `json:"peak_emotion,omitempty"`
	ValleyEmotion string  `json:"valley_emotion,omitempty"`
	ValenceDelta  float64 `json:"valence_delta"`
	EnergyDelta   float64 `json:"energy_delta"`
	Snapshots     int     `json:"snapshot_count"`
}

// DescribeArc analyzes a sequence of mood snapshots and classifies the
// trajectory: upswing, slow_drain, recovery, crash, rollercoaster, steady,
// or flat.
func (c *Classifier) DescribeArc(snapshots []Snapshot) Arc {
	label := func(s Snapshot) string {
		if s.Emotion != "" {
			return s.Emotion
		}
		return c.Primary(s.Vector).Label
	}

	if len(snapshots) < 2 {
		arc := Arc{Pattern: "flat", Description: "Not enough data to read an arc.", Snapshots: len(snapshots)}
		if len(snapshots) == 1 {
			arc.StartEmotion = label(snapshots[0])
			arc.EndEmotion = arc.StartEmotion
		}
		return arc
	}

	valences := make([]float64, len(snapshots))
	for i, s := range snapshots {
		valences[i] = s.Vector.Valence
	}

	startV, endV := valences[0], valences[len(valences)-1]
	vDelta := endV - startV
	eDelta := snapshots[len(snapshots)-1].Vector.Energy - snapshots[0].Vector.Energy

	minV, maxV := valences[0], valences[0]
	peakIdx, valleyIdx := 0, 0
	for i, v := range valences {
		if v > maxV {
			maxV, peakIdx = v, i
		}
		if v < minV {
			minV, valleyIdx = v, i
		}
	}
	vRange := maxV - minV

	// Direction changes: a flip counts only when both moves are significant.
	directionChanges := 0
	for i := 2; i < len(valences); i++ {
		prev := valences[i-1] - valences[i-2]
		curr := valences[i] - valences[i-1]
		if abs(prev) > 0.05 && abs(curr) > 0.05 && prev*curr < 0 {
			directionChanges++
		}
	}

	startEmo := label(snapshots[0])
	endEmo := label(snapshots[len(snapshots)-1])
	peakEmo := label(snapshots[peakIdx])
	valleyEmo := label(snapshots[valleyIdx])

	var pattern string
	switch {
	case directionChanges >= 2 && vRange > 0.3:
		pattern = "rollercoaster"
	case vDelta > 0.19:
		// Recovery = dipped below start, then came back up.
		if valleyIdx > 0 && float64(valleyIdx) < float64(len(snapshots))*0.6 && valences[valleyIdx] < startV-0.1 {
			pattern = "recovery"
		} else {
			pattern = "upswing"
		}
	case vDelta < -0.19:
		// Crash = peaked above start, then fell.
		if peakIdx > 0 && float64(peakIdx) < float64(len(snapshots))*0.6 && valences[peakIdx] > startV+0.1 {
			pattern = "crash"
		} else {
			pattern = "slow_drain"
		}
	case vRange < 0.15:
		pattern = "flat"
	default:
		pattern = "steady"
	}

	var desc string
	switch pattern {
	case "upswing":
		desc = fmt.Sprintf("Started %s, ended %s. Things got better.", startEmo, endEmo)
	case "slow_drain":
		desc = fmt.Sprintf("Started %s, drifted toward %s.", startEmo, endEmo)
	case "recovery":
		desc = fmt.Sprintf("Hit %s early but recovered to %s.", valleyEmo, endEmo)
	case "crash":
		desc = fmt.Sprintf("Was %s early but ended %s.", peakEmo, endEmo)
	case "rollercoaster":
		desc = fmt.Sprintf("Up and down. Peaked at %s, bottomed at %s. Ended %s.", peakEmo, valleyEmo, endEmo)
	case "flat":
		desc = fmt.Sprintf("Consistently %s throughout.", startEmo)
	default:
		desc = fmt.Sprintf("Mostly %s, ending %s.", startEmo, endEmo)
	}

	return Arc{
		Pattern:       pattern,
		Description:   desc,
		StartEmotion:  startEmo,
		EndEmotion:    endEmo,
		PeakEmotion:   peakEmo,
		ValleyEmotion: valleyEmo,
		ValenceDelta:  vDelta,
		EnergyDelta:   eDelta,
		Snapshots:     len(snapshots),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
