package frames

import (
	"iter"
	"strings"

	"github.com/therealutkarshpriyadarshi/autotag/internal/subtitle"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// CaptionMap maps a frame image path to the raw caption shown on that frame
type CaptionMap map[string]string

// Lookup returns the caption for path, or "" when the frame has none
func (m CaptionMap) Lookup(path string) string {
	return m[path]
}

// Match pairs frames with subtitle captions, one cue per frame starting at
// the first subtitled frame. Matching stops at the first frame whose caption
// line lies beyond the end of the track; later frames stay unmatched.
//
// The returned sequence can be ranged over once.
func Match(frames []models.FrameImage, track *subtitle.Track) (iter.Seq2[string, string], error) {
	first, err := subtitle.FirstFrame(track)
	if err != nil {
		return nil, err
	}

	return func(yield func(string, string) bool) {
		for i := max(first, 0); i < len(frames); i++ {
			line, ok := track.Caption(i - first)
			if !ok {
				return
			}
			if !yield(frames[i].Path, strings.TrimSpace(line)) {
				return
			}
		}
	}, nil
}

// BuildCaptionMap materialises a match sequence. Later entries for the same
// path replace earlier ones.
func BuildCaptionMap(matches iter.Seq2[string, string]) CaptionMap {
	captions := make(CaptionMap)
	for path, caption := range matches {
		captions[path] = caption
	}
	return captions
}

// MatchFile loads the subtitle file and returns the caption map for frames
func MatchFile(frames []models.FrameImage, subtitlesPath string) (CaptionMap, error) {
	track, err := subtitle.Load(subtitlesPath)
	if err != nil {
		return nil, err
	}

	matches, err := Match(frames, track)
	if err != nil {
		return nil, err
	}

	return BuildCaptionMap(matches), nil
}
