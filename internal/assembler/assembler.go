// Package assembler joins detector output with the captions of the frames
// the detections were made on.
package assembler

import (
	"iter"

	"github.com/therealutkarshpriyadarshi/autotag/internal/caption"
	"github.com/therealutkarshpriyadarshi/autotag/internal/frames"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// Assemble yields one result per detection, in detector order. Detections
// on frames without a caption get empty caption fields.
func Assemble(detections []models.Detection, captions frames.CaptionMap) iter.Seq[models.Result] {
	return func(yield func(models.Result) bool) {
		for _, d := range detections {
			fields := caption.Parse(captions.Lookup(d.Filename))
			if !yield(models.NewResult(d, fields)) {
				return
			}
		}
	}
}

// Collect drains a result sequence into a slice
func Collect(results iter.Seq[models.Result]) []models.Result {
	var out []models.Result
	for r := range results {
		out = append(out, r)
	}
	return out
}

// Stats summarises an assembled run
type Stats struct {
	Results   int
	Captioned int
	Labels    map[string]int
}

// Summarize counts results, results with caption data and results per label
func Summarize(results []models.Result) Stats {
	stats := Stats{Labels: make(map[string]int)}
	for _, r := range results {
		stats.Results++
		if r.Name != "" || r.Dist != "" || r.Date != "" {
			stats.Captioned++
		}
		stats.Labels[r.Label]++
	}
	return stats
}
