package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/therealutkarshpriyadarshi/autotag/internal/media"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// fakeMedia decomposes into empty numbered frames and writes a fixed subtitle file
type fakeMedia struct {
	mock.Mock
	frames    int
	subtitles string
}

func (m *fakeMedia) ProbeVideo(ctx context.Context, videoPath string) (*media.VideoMetadata, error) {
	args := m.Called(ctx, videoPath)
	if md, ok := args.Get(0).(*media.VideoMetadata); ok {
		return md, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *fakeMedia) DecomposeFrames(ctx context.Context, videoPath, outDir string) error {
	if err := m.Called(ctx, videoPath, outDir).Error(0); err != nil {
		return err
	}
	for i := 1; i <= m.frames; i++ {
		name := filepath.Join(outDir, fmt.Sprintf("%04d.jpg", i))
		if err := os.WriteFile(name, []byte("jpeg"), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (m *fakeMedia) ExtractSubtitlesFrom(ctx context.Context, metadata *media.VideoMetadata, videoPath, outDir string) (string, error) {
	args := m.Called(ctx, metadata, videoPath, outDir)
	if err := args.Error(0); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, media.SubtitleFilename)
	return path, os.WriteFile(path, []byte(m.subtitles), 0644)
}

// fakeDetector reports the configured labels for the named frames
type fakeDetector struct {
	hits map[string]string
	err  error
	dirs []string
}

func (d *fakeDetector) Detect(ctx context.Context, imagesDir string) ([]models.Detection, error) {
	d.dirs = append(d.dirs, imagesDir)
	if d.err != nil {
		return nil, d.err
	}

	names := make([]string, 0, len(d.hits))
	for name := range d.hits {
		names = append(names, name)
	}
	slices.Sort(names)

	var detections []models.Detection
	for _, name := range names {
		detections = append(detections, models.Detection{
			Filename:    filepath.Join(imagesDir, name),
			Label:       d.hits[name],
			Probability: "91",
			Box:         models.Box{Left: "10", Right: "20", Top: "30", Bottom: "40"},
		})
	}
	return detections, nil
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) DownloadFile(ctx context.Context, objectName, filePath string) error {
	return m.Called(ctx, objectName, filePath).Error(0)
}

func (m *mockStore) UploadDir(ctx context.Context, prefix, dir string) (int64, error) {
	args := m.Called(ctx, prefix, dir)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) Bucket() string {
	return "autotag-test"
}

type mockJobs struct {
	mock.Mock
	statuses []string
	results  []models.Result
}

func (m *mockJobs) UpdateJob(ctx context.Context, job *models.Job) error {
	m.statuses = append(m.statuses, job.Status)
	return m.Called(ctx, job).Error(0)
}

func (m *mockJobs) InsertResults(ctx context.Context, jobID string, results []models.Result) error {
	m.results = results
	return m.Called(ctx, jobID, results).Error(0)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) SetJob(ctx context.Context, job *models.Job) error {
	return m.Called(ctx, job).Error(0)
}

func (m *mockCache) SetJobProgress(ctx context.Context, jobID string, progress float64) error {
	return m.Called(ctx, jobID, progress).Error(0)
}

func (m *mockCache) IncrementStat(ctx context.Context, stat string, delta int64) error {
	return m.Called(ctx, stat, delta).Error(0)
}

func (m *mockCache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, resource, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockCache) ReleaseLock(ctx context.Context, resource string) error {
	return m.Called(ctx, resource).Error(0)
}

type recordingNotifier struct {
	events   []string
	statuses []string
	err      error
}

func (n *recordingNotifier) Notify(ctx context.Context, event string, job *models.Job) error {
	n.events = append(n.events, event)
	n.statuses = append(n.statuses, job.Status)
	return n.err
}
