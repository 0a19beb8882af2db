package subtitle

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cue struct {
	start   string
	caption string
}

// srt renders cues in the four-line layout written by ffmpeg
func srt(cues ...cue) string {
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> 99:59:59,999\n%s\n\n", i+1, c.start, c.caption)
	}
	return b.String()
}

func mustParse(t *testing.T, s string) *Track {
	t.Helper()
	track, err := Parse(strings.NewReader(s))
	require.NoError(t, err)
	return track
}

func TestTimecode(t *testing.T) {
	track := mustParse(t, srt(
		cue{"00:00:01,000", "a"},
		cue{"00:00:01,200", "b"},
		cue{"00:00:07,400", "c"},
	))

	tests := []struct {
		cue  int
		want float64
	}{
		{0, 1.0},
		{1, 1.2},
		{2, 7.4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("cue %d", tt.cue), func(t *testing.T) {
			got, err := Timecode(track, tt.cue)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestTimecodeReadsOnlyUnitsColumn(t *testing.T) {
	// Column 7 holds the units digit of the seconds, so tens are dropped.
	track := mustParse(t, srt(cue{"00:00:13,500", "a"}))

	got, err := Timecode(track, 0)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, got, 1e-12)
}

func TestTimecodeOutOfRange(t *testing.T) {
	track := mustParse(t, srt(cue{"00:00:01,000", "a"}))

	_, err := Timecode(track, 1)
	assert.ErrorIs(t, err, ErrCueOutOfRange)
}

func TestTimecodeMalformed(t *testing.T) {
	track := NewTrack([]string{"1", "garbage line here"})

	_, err := Timecode(track, 0)
	assert.ErrorIs(t, err, ErrMalformedTimecode)
}

func TestTimecodeShortLine(t *testing.T) {
	track := NewTrack([]string{"1", "00:00:04"})

	got, err := Timecode(track, 0)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-12)
}

func TestFirstFrame(t *testing.T) {
	tests := []struct {
		name  string
		start string
		want  int
	}{
		{"at zero", "00:00:00,000", 0},
		{"one second", "00:00:01,000", 5},
		{"rounds down", "00:00:02,300", 11},
		{"just under a frame", "00:00:00,100", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := mustParse(t, srt(cue{tt.start, "x"}))
			got, err := FirstFrame(track)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstFrameNonNumericTimecode(t *testing.T) {
	track := NewTrack([]string{"1", "xx:xx:ab,cde --> 00:00:01,000", "caption", ""})

	got, err := FirstFrame(track)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestTimecodeRejectsNegativeAndNonFinite(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"negative", "00:00:0-1,000 --> 00:00:01,000"},
		{"infinite", "00:00:0inf,000 --> 00:00:01,000"},
		{"not a number", "00:00:0nan,000 --> 00:00:01,000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := NewTrack([]string{"1", tt.line, "caption", ""})

			_, err := Timecode(track, 0)
			assert.ErrorIs(t, err, ErrMalformedTimecode)

			first, err := FirstFrame(track)
			require.NoError(t, err)
			assert.Equal(t, 0, first)
		})
	}
}

func TestFirstFrameStubTrack(t *testing.T) {
	track := mustParse(t, "\n\n")

	got, err := FirstFrame(track)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestFirstFrameEmptyTrackPropagates(t *testing.T) {
	track := mustParse(t, "")

	_, err := FirstFrame(track)
	assert.ErrorIs(t, err, ErrCueOutOfRange)
}

func TestCheckCorrespondence(t *testing.T) {
	track := mustParse(t, srt(
		cue{"00:00:01,000", "a"},
		cue{"00:00:01,200", "b"},
		cue{"00:00:01,600", "c"},
	))

	ok, err := CheckCorrespondence(track, 1, 1.0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckCorrespondence(track, 2, 1.2)
	require.NoError(t, err)
	assert.False(t, ok, "a skipped frame must be reported as drift")

	_, err = CheckCorrespondence(track, 5, 1.6)
	assert.ErrorIs(t, err, ErrCueOutOfRange)
}
