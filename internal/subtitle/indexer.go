package subtitle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FramesPerSecond is the rate at which videos are decomposed into images
const FramesPerSecond = 5

// The seconds field of "00:00:01,000 --> 00:00:02,000" starts at column 7.
// Only the units digit and the first decimal are read.
const (
	timecodeColumn = 7
	timecodeWidth  = 3
)

// correspondenceTolerance absorbs float rounding; timecodes carry 0.1s precision.
const correspondenceTolerance = 1e-9

var (
	// ErrCueOutOfRange is returned when the track has no line for a cue
	ErrCueOutOfRange = errors.New("subtitle cue out of range")

	// ErrMalformedTimecode is returned when a timecode line does not hold a number
	ErrMalformedTimecode = errors.New("malformed subtitle timecode")
)

// Timecode returns the start offset in seconds of cue
func Timecode(t *Track, cue int) (float64, error) {
	line, ok := t.Line(TimecodeLine(cue))
	if !ok {
		return 0, fmt.Errorf("%w: cue %d needs line %d, track has %d lines",
			ErrCueOutOfRange, cue, TimecodeLine(cue), t.Len())
	}

	field := columnSlice(line, timecodeColumn, timecodeColumn+timecodeWidth)
	field = strings.TrimSpace(strings.ReplaceAll(field, ",", "."))

	seconds, err := strconv.ParseFloat(field, 64)
	if err != nil || seconds < 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return 0, fmt.Errorf("%w: cue %d: %q", ErrMalformedTimecode, cue, field)
	}

	return seconds, nil
}

// FirstFrame returns the index of the first frame that carries a subtitle.
// It is never negative. A track whose first timecode is not a finite,
// non-negative number, such as the stub written for videos without
// subtitles, starts at frame 0.
func FirstFrame(t *Track) (int, error) {
	seconds, err := Timecode(t, 0)
	if errors.Is(err, ErrMalformedTimecode) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return int(math.Floor(FramesPerSecond * seconds)), nil
}

// CheckCorrespondence reports whether the timecode of cue lastFrame follows
// lastTimecode by exactly one frame interval.
func CheckCorrespondence(t *Track, lastFrame int, lastTimecode float64) (bool, error) {
	seconds, err := Timecode(t, lastFrame)
	if err != nil {
		return false, err
	}

	expected := lastTimecode + 1.0/FramesPerSecond
	return math.Abs(seconds-expected) < correspondenceTolerance, nil
}

// columnSlice returns s[from:to] clamped to the length of s. Columns are
// byte offsets, so a multibyte rune before to shifts the field; SRT timecode
// lines are ASCII.
func columnSlice(s string, from, to int) string {
	if from > len(s) {
		return ""
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}
