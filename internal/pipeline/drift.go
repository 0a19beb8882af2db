package pipeline

import (
	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
	"github.com/therealutkarshpriyadarshi/autotag/internal/metrics"
	"github.com/therealutkarshpriyadarshi/autotag/internal/subtitle"
)

// checkDrift compares the last two matched cues: the last cue must start one
// frame interval after the one before it. It reports true on drift.
// Tracks without numeric timecodes are not checked.
func checkDrift(logger *logging.Logger, track *subtitle.Track, matched int) bool {
	if matched < 2 {
		return false
	}

	lastCue := matched - 1
	previous, err := subtitle.Timecode(track, lastCue-1)
	if err != nil {
		logger.WithError(err).Debug("Skipping drift check")
		return false
	}

	ok, err := subtitle.CheckCorrespondence(track, lastCue, previous)
	if err != nil {
		logger.WithError(err).Debug("Skipping drift check")
		return false
	}
	if ok {
		return false
	}

	actual, _ := subtitle.Timecode(track, lastCue)
	logger.LogDrift(lastCue, previous+1.0/subtitle.FramesPerSecond, actual)
	metrics.RecordDrift()
	return true
}
