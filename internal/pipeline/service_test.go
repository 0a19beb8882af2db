package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
	"github.com/therealutkarshpriyadarshi/autotag/internal/media"
	"github.com/therealutkarshpriyadarshi/autotag/internal/output"
	"github.com/therealutkarshpriyadarshi/autotag/internal/subtitle"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

const twoCues = "1\n" +
	"00:00:00,400 --> 00:00:00,600\n" +
	"John Doe 5.2m (01/02/2020)\n" +
	"\n" +
	"2\n" +
	"00:00:00,600 --> 00:00:00,800\n" +
	"Main Rd 12km (03/04/2021)\n" +
	"\n"

func newFakeMedia(frames int, subtitles string) *fakeMedia {
	m := &fakeMedia{frames: frames, subtitles: subtitles}
	m.On("ProbeVideo", mock.Anything, mock.Anything).Return(&media.VideoMetadata{
		Format: media.FormatInfo{Filename: "drive.mp4", Duration: "1.0"},
		Streams: []media.StreamInfo{
			{CodecType: "video", CodecName: "h264", Width: 1280, Height: 720, AvgFrameRate: "30/1"},
			{CodecType: "subtitle", CodecName: "subrip"},
		},
	}, nil)
	m.On("DecomposeFrames", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.On("ExtractSubtitlesFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return m
}

func newDetector() *fakeDetector {
	return &fakeDetector{hits: map[string]string{
		"0003.jpg": "sign",
		"0004.jpg": "car",
		"0005.jpg": "pole",
	}}
}

func newTestService(t *testing.T, m MediaProcessor, d *fakeDetector) (*Service, string) {
	t.Helper()
	tempRoot := t.TempDir()
	cfg := config.PipelineConfig{TempDir: tempRoot}
	return NewService(cfg, m, d, logging.Nop()), tempRoot
}

type recordingSink struct {
	results []models.Result
	err     error
}

func (r *recordingSink) WriteResults(ctx context.Context, results []models.Result) error {
	r.results = results
	return r.err
}

func TestProcessVideo(t *testing.T) {
	det := newDetector()
	svc, tempRoot := newTestService(t, newFakeMedia(5, twoCues), det)
	outDir := t.TempDir()
	sink := &recordingSink{}

	report, err := svc.ProcessVideo(context.Background(), "/videos/drive.mp4", outDir, sink)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Frames)
	assert.Equal(t, 2, report.FirstFrame)
	assert.Equal(t, 2, report.Captioned)
	assert.Equal(t, 3, report.Detections)
	assert.False(t, report.Drift)
	assert.Equal(t, 1280, report.Info.Width)
	assert.Equal(t, 1, report.Info.SubtitleStreams)
	assert.Equal(t, filepath.Join(outDir, "drive"), report.OutputDir)

	require.Len(t, report.Results, 3)
	first := report.Results[0]
	assert.Equal(t, "0003.jpg", filepath.Base(first.Image))
	assert.Equal(t, "John Doe ", first.Name)
	assert.Equal(t, "5.2m", first.Dist)
	assert.Equal(t, "01/02/2020", first.Date)
	assert.Equal(t, "sign", first.Label)

	second := report.Results[1]
	assert.Equal(t, "Main Rd ", second.Name)
	assert.Equal(t, "12km", second.Dist)
	assert.Equal(t, "03/04/2021", second.Date)

	// Frame 5 lies past the end of the subtitle track.
	third := report.Results[2]
	assert.Equal(t, "pole", third.Label)
	assert.True(t, models.CaptionFields{Name: third.Name, Dist: third.Dist, Date: third.Date}.IsEmpty())

	assert.Equal(t, 2, report.Stats.Captioned)
	assert.Equal(t, report.Results, sink.results)

	rows, err := output.ReadResults(filepath.Join(report.OutputDir, output.ResultsFilename))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "0003.jpg", rows[0].Image)
	assert.Equal(t, "John Doe ", rows[0].Name)
	assert.FileExists(t, filepath.Join(report.OutputDir, "0004.jpg"))

	// The detector saw absolute frame paths inside a workspace that is gone now.
	require.Len(t, det.dirs, 1)
	assert.True(t, filepath.IsAbs(det.dirs[0]))
	entries, err := os.ReadDir(tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessVideo_KeepTemp(t *testing.T) {
	det := newDetector()
	tempRoot := t.TempDir()
	svc := NewService(config.PipelineConfig{TempDir: tempRoot, KeepTemp: true}, newFakeMedia(5, twoCues), det, nil)

	_, err := svc.ProcessVideo(context.Background(), "drive.mp4", t.TempDir())
	require.NoError(t, err)

	require.Len(t, det.dirs, 1)
	assert.DirExists(t, det.dirs[0])
	assert.FileExists(t, filepath.Join(filepath.Dir(det.dirs[0]), media.SubtitleFilename))
}

func TestProcessVideo_NoSubtitles(t *testing.T) {
	svc, _ := newTestService(t, newFakeMedia(3, "\n\n"), &fakeDetector{hits: map[string]string{"0001.jpg": "sign"}})

	report, err := svc.ProcessVideo(context.Background(), "drive.mp4", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 0, report.FirstFrame)
	assert.Equal(t, 0, report.Captioned)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "", report.Results[0].Name)
	assert.Equal(t, "sign", report.Results[0].Label)
}

func TestProcessVideo_Drift(t *testing.T) {
	drifting := "1\n00:00:00,000 --> 00:00:00,200\nA 1m (01/01/2020)\n\n" +
		"2\n00:00:01,000 --> 00:00:01,200\nB 2m (01/01/2020)\n\n"

	svc, _ := newTestService(t, newFakeMedia(4, drifting), &fakeDetector{})
	svc.cfg.CheckDrift = true

	report, err := svc.ProcessVideo(context.Background(), "drive.mp4", t.TempDir())
	require.NoError(t, err)
	assert.True(t, report.Drift)
	assert.Empty(t, report.Results)
}

func TestProcessVideo_StageErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func() (*fakeMedia, *fakeDetector)
		want  string
	}{
		{
			name: "probe",
			setup: func() (*fakeMedia, *fakeDetector) {
				m := &fakeMedia{}
				m.On("ProbeVideo", mock.Anything, mock.Anything).Return(nil, errors.New("no such file"))
				return m, newDetector()
			},
			want: "probe: no such file",
		},
		{
			name: "decompose",
			setup: func() (*fakeMedia, *fakeDetector) {
				m := &fakeMedia{}
				m.On("ProbeVideo", mock.Anything, mock.Anything).Return(&media.VideoMetadata{}, nil)
				m.On("DecomposeFrames", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("ffmpeg exited 1"))
				return m, newDetector()
			},
			want: "decompose: ffmpeg exited 1",
		},
		{
			name: "detect",
			setup: func() (*fakeMedia, *fakeDetector) {
				d := newDetector()
				d.err = errors.New("darknet exited 2")
				return newFakeMedia(5, twoCues), d
			},
			want: "detect: darknet exited 2",
		},
		{
			name: "subtitle track too short",
			setup: func() (*fakeMedia, *fakeDetector) {
				return newFakeMedia(2, "1\n"), newDetector()
			},
			want: "match:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, d := tt.setup()
			svc, _ := newTestService(t, m, d)
			outDir := t.TempDir()

			report, err := svc.ProcessVideo(context.Background(), "drive.mp4", outDir)
			require.Error(t, err)
			assert.Nil(t, report)
			assert.Contains(t, err.Error(), tt.want)
			assert.NoDirExists(t, filepath.Join(outDir, "drive"))
		})
	}
}

func TestProcessVideo_ShortTrackIsOutOfRange(t *testing.T) {
	svc, _ := newTestService(t, newFakeMedia(2, "1\n"), newDetector())

	_, err := svc.ProcessVideo(context.Background(), "drive.mp4", t.TempDir())
	assert.ErrorIs(t, err, subtitle.ErrCueOutOfRange)
}

func TestProcessVideo_SinkError(t *testing.T) {
	svc, _ := newTestService(t, newFakeMedia(5, twoCues), newDetector())

	_, err := svc.ProcessVideo(context.Background(), "drive.mp4", t.TempDir(), &recordingSink{err: errors.New("db down")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist: db down")
}

func TestCheckDrift(t *testing.T) {
	track := subtitle.NewTrack([]string{
		"1", "00:00:00,400 --> 00:00:00,600", "a", "",
		"2", "00:00:00,600 --> 00:00:00,800", "b", "",
		"3", "00:00:01,000 --> 00:00:01,200", "c", "",
	})

	assert.False(t, checkDrift(logging.Nop(), track, 0))
	assert.False(t, checkDrift(logging.Nop(), track, 1))
	assert.False(t, checkDrift(logging.Nop(), track, 2))
	assert.True(t, checkDrift(logging.Nop(), track, 3))
	assert.False(t, checkDrift(logging.Nop(), subtitle.NewTrack([]string{"", ""}), 2))
}
