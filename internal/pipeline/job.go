package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/autotag/internal/cache"
	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
	"github.com/therealutkarshpriyadarshi/autotag/internal/metrics"
	"github.com/therealutkarshpriyadarshi/autotag/internal/storage"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// jobLockTTL bounds how long a crashed worker can hold a job
const jobLockTTL = 2 * time.Hour

// ErrJobLocked is returned when another worker is processing the job
var ErrJobLocked = errors.New("job is locked by another worker")

// ObjectStore moves videos and result bundles in and out of object storage
type ObjectStore interface {
	DownloadFile(ctx context.Context, objectName, filePath string) error
	UploadDir(ctx context.Context, prefix, dir string) (int64, error)
	Bucket() string
}

// JobStore persists job state and results
type JobStore interface {
	UpdateJob(ctx context.Context, job *models.Job) error
	InsertResults(ctx context.Context, jobID string, results []models.Result) error
}

// JobCache publishes job state for fast status reads
type JobCache interface {
	SetJob(ctx context.Context, job *models.Job) error
	SetJobProgress(ctx context.Context, jobID string, progress float64) error
	IncrementStat(ctx context.Context, stat string, delta int64) error
	AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, resource string) error
}

// JobNotifier announces job lifecycle events to external listeners
type JobNotifier interface {
	Notify(ctx context.Context, event string, job *models.Job) error
}

// WithJobBackend enables ProcessJob. cache may be nil.
func (s *Service) WithJobBackend(store ObjectStore, jobs JobStore, jobCache JobCache) *Service {
	s.storage = store
	s.jobs = jobs
	s.cache = jobCache
	if s.workerID == "" {
		s.workerID = uuid.New().String()
	}
	return s
}

// WithNotifier sends job started, completed and failed events to n
func (s *Service) WithNotifier(n JobNotifier) *Service {
	s.notify = n
	return s
}

// WorkerID identifies this service instance in job records
func (s *Service) WorkerID() string {
	return s.workerID
}

// jobResultSink stores results against a job
type jobResultSink struct {
	jobs   JobStore
	jobID  string
	logger *logging.Logger
}

func (j jobResultSink) WriteResults(ctx context.Context, results []models.Result) error {
	start := time.Now()
	err := j.jobs.InsertResults(ctx, j.jobID, results)
	duration := time.Since(start)
	metrics.RecordDatabaseOperation("insert_results", metrics.Status(err), duration.Seconds())
	j.logger.LogDatabaseOperation("insert_results", duration, err)
	if err != nil {
		return fmt.Errorf("failed to store results: %w", err)
	}
	return nil
}

// ProcessJob downloads the job's video, processes it, uploads the result
// directory and records the outcome. A failed job is marked failed and the
// error is returned.
func (s *Service) ProcessJob(ctx context.Context, job *models.Job) error {
	if s.storage == nil || s.jobs == nil {
		return errors.New("pipeline has no job backend")
	}

	logger := s.logger.WithJobID(job.ID).WithWorkerID(s.workerID)
	start := time.Now()

	if s.cache != nil {
		ok, err := s.cache.AcquireLock(ctx, job.ID, jobLockTTL)
		if err != nil {
			logger.WithError(err).Warn("Job lock unavailable, continuing without it")
		} else if !ok {
			return ErrJobLocked
		} else {
			defer s.cache.ReleaseLock(context.WithoutCancel(ctx), job.ID)
		}
	}

	metrics.JobsInProgress.Inc()
	defer metrics.JobsInProgress.Dec()

	now := time.Now()
	job.Status = models.JobStatusProcessing
	job.WorkerID = s.workerID
	job.StartedAt = &now
	job.CompletedAt = nil
	job.ErrorMsg = ""
	job.Progress = 0
	if err := s.saveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	logger.LogJobEvent(job.ID, "started", job.Status, map[string]interface{}{"video": job.VideoName})
	s.notifyJob(ctx, logger, models.WebhookEventJobStarted, job)

	workspace, err := s.workspace()
	if err != nil {
		return s.failJob(ctx, logger, job, start, err)
	}
	defer os.RemoveAll(workspace)

	videoPath, outputRoot := jobPaths(workspace, job)
	if err := os.MkdirAll(filepath.Dir(videoPath), 0755); err != nil {
		return s.failJob(ctx, logger, job, start, fmt.Errorf("failed to create video directory: %w", err))
	}
	if err := s.download(ctx, logger, job.VideoKey, videoPath); err != nil {
		return s.failJob(ctx, logger, job, start, err)
	}

	progress := func(stage string, percent float64) {
		job.Progress = percent
		if s.cache != nil {
			if err := s.cache.SetJobProgress(ctx, job.ID, percent); err != nil {
				logger.WithError(err).Warn("Failed to cache job progress")
			}
		}
	}

	report, err := s.processVideo(ctx, videoPath, outputRoot, progress, jobResultSink{jobs: s.jobs, jobID: job.ID, logger: logger})
	if err != nil {
		return s.failJob(ctx, logger, job, start, err)
	}

	prefix := storage.ResultsPrefix(job.ID)
	if err := s.upload(ctx, logger, prefix, report.OutputDir); err != nil {
		return s.failJob(ctx, logger, job, start, err)
	}

	completed := time.Now()
	job.Status = models.JobStatusCompleted
	job.Progress = 100
	job.CompletedAt = &completed
	job.Video = report.Info
	job.FrameCount = report.Frames
	job.FirstFrame = report.FirstFrame
	job.CaptionedFrames = report.Captioned
	job.ResultCount = len(report.Results)
	job.ResultsKey = prefix
	if err := s.saveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	if s.cache != nil {
		s.incrementStat(ctx, logger, cache.StatVideosProcessed, 1)
		s.incrementStat(ctx, logger, cache.StatResults, int64(job.ResultCount))
	}
	metrics.RecordJobCompleted(models.JobStatusCompleted, time.Since(start))
	logger.LogJobEvent(job.ID, "completed", job.Status, map[string]interface{}{
		"results":  job.ResultCount,
		"frames":   job.FrameCount,
		"duration": time.Since(start).String(),
	})
	s.notifyJob(ctx, logger, models.WebhookEventJobCompleted, job)

	return nil
}

// failJob marks a job as failed and persists it
func (s *Service) failJob(ctx context.Context, logger *logging.Logger, job *models.Job, start time.Time, err error) error {
	completed := time.Now()
	job.Status = models.JobStatusFailed
	job.ErrorMsg = err.Error()
	job.CompletedAt = &completed

	metrics.RecordJobCompleted(models.JobStatusFailed, time.Since(start))
	logger.WithError(err).Error("Job failed")

	// Record the failure even when ctx is already cancelled.
	saveCtx := context.WithoutCancel(ctx)
	if s.cache != nil {
		s.incrementStat(saveCtx, logger, cache.StatVideosFailed, 1)
	}
	if updateErr := s.saveJob(saveCtx, job); updateErr != nil {
		return fmt.Errorf("failed to update job: %w (original error: %v)", updateErr, err)
	}
	s.notifyJob(saveCtx, logger, models.WebhookEventJobFailed, job)

	return err
}

// notifyJob sends event when a notifier is configured. Delivery failures
// never fail the job.
func (s *Service) notifyJob(ctx context.Context, logger *logging.Logger, event string, job *models.Job) {
	if s.notify == nil {
		return
	}
	snapshot := *job
	if err := s.notify.Notify(ctx, event, &snapshot); err != nil {
		metrics.RecordError("webhook", event)
		logger.WithError(err).WithField("event", event).Warn("Failed to deliver job notification")
	}
}

// saveJob writes the job to the database and refreshes its cached copy
func (s *Service) saveJob(ctx context.Context, job *models.Job) error {
	start := time.Now()
	err := s.jobs.UpdateJob(ctx, job)
	duration := time.Since(start)
	metrics.RecordDatabaseOperation("update_job", metrics.Status(err), duration.Seconds())
	s.logger.WithJobID(job.ID).LogDatabaseOperation("update_job", duration, err)
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.SetJob(ctx, job); err != nil {
			s.logger.WithJobID(job.ID).WithError(err).Warn("Failed to cache job")
		}
	}
	return nil
}

func (s *Service) download(ctx context.Context, logger *logging.Logger, key, path string) error {
	start := time.Now()
	err := s.storage.DownloadFile(ctx, key, path)
	duration := time.Since(start)

	var size int64
	if err == nil {
		if info, statErr := os.Stat(path); statErr == nil {
			size = info.Size()
		}
	}
	metrics.RecordStorageOperation("download", metrics.Status(err), duration.Seconds(), size)
	logger.LogStorageOperation("download", s.storage.Bucket(), key, size, duration, err)
	return err
}

func (s *Service) upload(ctx context.Context, logger *logging.Logger, prefix, dir string) error {
	start := time.Now()
	size, err := s.storage.UploadDir(ctx, prefix, dir)
	duration := time.Since(start)

	metrics.RecordStorageOperation("upload", metrics.Status(err), duration.Seconds(), size)
	logger.LogStorageOperation("upload", s.storage.Bucket(), prefix, size, duration, err)
	return err
}

func (s *Service) incrementStat(ctx context.Context, logger *logging.Logger, stat string, delta int64) {
	if err := s.cache.IncrementStat(ctx, stat, delta); err != nil {
		logger.WithError(err).Warn("Failed to update stats")
	}
}

// jobPaths lays out a job workspace: the downloaded video under video/ and
// the result directories under output/, so no video name can collide with
// the output root.
func jobPaths(workspace string, job *models.Job) (videoPath, outputRoot string) {
	return filepath.Join(workspace, "video", videoFilename(job)), filepath.Join(workspace, "output")
}

// videoFilename picks the local name for a job's video
func videoFilename(job *models.Job) string {
	if job.VideoName != "" {
		return filepath.Base(job.VideoName)
	}
	return filepath.Base(job.VideoKey)
}
