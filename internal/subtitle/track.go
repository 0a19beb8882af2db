// Package subtitle reads the SRT track extracted from a dash-camera video and
// maps its cue timing onto frame indices.
//
// A track is addressed purely by line offset: cue i has its timecode on line
// i*4+1 and its caption on line i*4+2. The extractor always writes one index
// line, one timecode line, one caption line and one blank separator per cue.
package subtitle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LinesPerCue is the number of lines occupied by a single cue
const LinesPerCue = 4

// Track is a subtitle file held in memory as raw lines
type Track struct {
	lines []string
}

// NewTrack wraps already split lines
func NewTrack(lines []string) *Track {
	return &Track{lines: lines}
}

// Load reads the subtitle file at path
func Load(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitles: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse splits r into lines of any length. A final newline does not produce
// an extra empty line and CRLF endings are normalised.
func Parse(r io.Reader) (*Track, error) {
	br := bufio.NewReader(r)

	var lines []string
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			lines = append(lines, strings.TrimSuffix(line, "\r"))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read subtitles: %w", err)
		}
	}

	return &Track{lines: lines}, nil
}

// Len returns the number of lines in the track
func (t *Track) Len() int {
	return len(t.lines)
}

// Line returns line i, or false when the track is shorter than that
func (t *Track) Line(i int) (string, bool) {
	if i < 0 || i >= len(t.lines) {
		return "", false
	}
	return t.lines[i], true
}

// Caption returns the raw caption line of cue
func (t *Track) Caption(cue int) (string, bool) {
	return t.Line(CaptionLine(cue))
}

// TimecodeLine is the line offset of the timecode of cue
func TimecodeLine(cue int) int {
	return cue*LinesPerCue + 1
}

// CaptionLine is the line offset of the caption text of cue
func CaptionLine(cue int) int {
	return cue*LinesPerCue + 2
}
