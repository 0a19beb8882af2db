package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/autotag/internal/cache"
	"github.com/therealutkarshpriyadarshi/autotag/internal/database"
	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
	"github.com/therealutkarshpriyadarshi/autotag/internal/metrics"
	"github.com/therealutkarshpriyadarshi/autotag/internal/monitoring"
	"github.com/therealutkarshpriyadarshi/autotag/internal/output"
	"github.com/therealutkarshpriyadarshi/autotag/internal/storage"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

var allowedExtensions = map[string]string{
	".mp4": "video/mp4",
	".mov": "video/quicktime",
	".avi": "video/x-msvideo",
	".mkv": "video/x-matroska",
}

type jobRepository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	UpdateJob(ctx context.Context, job *models.Job) error
	DeleteJob(ctx context.Context, id string) error
	ListJobs(ctx context.Context, limit, offset int) ([]*models.Job, error)
	ListResults(ctx context.Context, jobID string) ([]models.Result, error)
}

type systemMonitor interface {
	Snapshot() monitoring.Snapshot
}

type healthChecker interface {
	Health(ctx context.Context) error
}

type objectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	GetURL(ctx context.Context, objectName string) (string, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

type jobQueue interface {
	PublishJob(ctx context.Context, job *models.Job) error
	RetryFromDLQ(ctx context.Context, job *models.Job) error
}

type jobCache interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	SetJob(ctx context.Context, job *models.Job) error
	DeleteJob(ctx context.Context, jobID string) error
	GetJobProgress(ctx context.Context, jobID string) (float64, error)
	GetStat(ctx context.Context, stat string) (int64, error)
}

// API serves job submission and job status
type API struct {
	repo          jobRepository
	health        healthChecker
	storage       objectStore
	queue         jobQueue
	cache         jobCache
	monitor       systemMonitor
	logger        *logging.Logger
	maxUploadSize int64
}

// healthCheck reports database reachability
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.health.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// uploadVideo stores the uploaded video and queues a tagging job for it
func (api *API) uploadVideo(c *gin.Context) {
	if api.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.maxUploadSize)
	}

	file, err := c.FormFile("video")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Video exceeds the upload limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video file provided"})
		return
	}

	filename := filepath.Base(file.Filename)
	contentType, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unsupported video type %q", filepath.Ext(filename))})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	job := &models.Job{
		ID:        uuid.New().String(),
		VideoName: filename,
		Status:    models.JobStatusQueued,
	}
	job.VideoKey = storage.VideoKey(job.ID, filename)
	logger := api.logger.WithJobID(job.ID)

	start := time.Now()
	err = api.storage.Upload(ctx, job.VideoKey, src, file.Size, contentType)
	metrics.RecordStorageOperation("upload", metrics.Status(err), time.Since(start).Seconds(), file.Size)
	if err != nil {
		logger.WithError(err).Error("Failed to store video")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store video"})
		return
	}
	metrics.RecordVideoUpload(file.Size)

	if err := api.repo.CreateJob(ctx, job); err != nil {
		logger.WithError(err).Error("Failed to create job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job"})
		return
	}
	metrics.RecordJobCreated()

	if err := api.queue.PublishJob(ctx, job); err != nil {
		logger.WithError(err).Error("Failed to queue job")
		job.Status = models.JobStatusFailed
		job.ErrorMsg = "failed to queue job"
		if updateErr := api.repo.UpdateJob(ctx, job); updateErr != nil {
			logger.WithError(updateErr).Error("Failed to mark job failed")
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to queue job"})
		return
	}

	api.cacheJob(ctx, job)
	logger.LogJobEvent(job.ID, "queued", job.Status, map[string]interface{}{
		"video": filename,
		"size":  file.Size,
	})

	c.JSON(http.StatusAccepted, job)
}

// listJobs returns jobs newest first
func (api *API) listJobs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must not be negative"})
		return
	}

	jobs, err := api.repo.ListJobs(c.Request.Context(), limit, offset)
	if err != nil {
		api.logger.WithError(err).Error("Failed to list jobs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   jobs,
		"limit":  limit,
		"offset": offset,
	})
}

// getJob returns the job, preferring the cached copy
func (api *API) getJob(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if api.cache != nil {
		job, err := api.cache.GetJob(ctx, id)
		if err != nil {
			api.logger.WithJobID(id).WithError(err).Warn("Job cache read failed")
		}
		if job != nil {
			if job.Status == models.JobStatusProcessing {
				if progress, err := api.cache.GetJobProgress(ctx, id); err == nil && progress > job.Progress {
					job.Progress = progress
				}
			}
			c.JSON(http.StatusOK, job)
			return
		}
	}

	job, ok := api.loadJob(c, id)
	if !ok {
		return
	}
	api.cacheJob(ctx, job)

	c.JSON(http.StatusOK, job)
}

// getJobResults returns the result rows of a completed job
func (api *API) getJobResults(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	job, ok := api.loadJob(c, id)
	if !ok {
		return
	}

	if job.Status != models.JobStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Job has not completed",
			"status": job.Status,
		})
		return
	}

	results, err := api.repo.ListResults(ctx, id)
	if err != nil {
		api.logger.WithJobID(id).WithError(err).Error("Failed to list results")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list results"})
		return
	}

	resp := gin.H{
		"job_id":  id,
		"count":   len(results),
		"results": results,
	}
	if job.ResultsKey != "" {
		url, err := api.storage.GetURL(ctx, path.Join(job.ResultsKey, output.ResultsFilename))
		if err == nil {
			resp["csv_url"] = url
		}
	}

	c.JSON(http.StatusOK, resp)
}

// retryJob requeues a failed job
func (api *API) retryJob(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	job, ok := api.loadJob(c, id)
	if !ok {
		return
	}

	if job.Status != models.JobStatusFailed {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Only failed jobs can be retried",
			"status": job.Status,
		})
		return
	}

	job.Status = models.JobStatusQueued
	job.Progress = 0
	job.ErrorMsg = ""
	job.RetryCount++
	job.StartedAt = nil
	job.CompletedAt = nil
	if err := api.repo.UpdateJob(ctx, job); err != nil {
		api.logger.WithJobID(id).WithError(err).Error("Failed to update job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update job"})
		return
	}

	if err := api.queue.RetryFromDLQ(ctx, job); err != nil {
		api.logger.WithJobID(id).WithError(err).Error("Failed to requeue job")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to queue job"})
		return
	}

	api.cacheJob(ctx, job)
	api.logger.LogJobEvent(id, "retried", job.Status, map[string]interface{}{"retry_count": job.RetryCount})

	c.JSON(http.StatusAccepted, job)
}

// deleteJob removes a finished job with its stored video, results and
// cached state
func (api *API) deleteJob(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	job, ok := api.loadJob(c, id)
	if !ok {
		return
	}

	if !job.IsTerminal() {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Job is still active",
			"status": job.Status,
		})
		return
	}

	logger := api.logger.WithJobID(id)
	for _, prefix := range []string{storage.VideoPrefix(id), storage.ResultsPrefix(id)} {
		if _, err := api.storage.DeletePrefix(ctx, prefix+"/"); err != nil {
			logger.WithError(err).Error("Failed to delete job objects")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete job files"})
			return
		}
	}

	if err := api.repo.DeleteJob(ctx, id); err != nil && !errors.Is(err, database.ErrJobNotFound) {
		logger.WithError(err).Error("Failed to delete job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete job"})
		return
	}

	if api.cache != nil {
		if err := api.cache.DeleteJob(ctx, id); err != nil {
			logger.WithError(err).Warn("Failed to evict cached job")
		}
	}

	logger.LogJobEvent(id, "deleted", job.Status, nil)
	c.Status(http.StatusNoContent)
}

// getStats returns worker counters kept in Redis
func (api *API) getStats(c *gin.Context) {
	if api.cache == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Stats require redis"})
		return
	}

	stats := gin.H{}
	for _, name := range []string{cache.StatVideosProcessed, cache.StatVideosFailed, cache.StatResults} {
		value, err := api.cache.GetStat(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stats"})
			return
		}
		stats[name] = value
	}

	c.JSON(http.StatusOK, stats)
}

// getSystem returns the last sampled queue and job counts
func (api *API) getSystem(c *gin.Context) {
	c.JSON(http.StatusOK, api.monitor.Snapshot())
}

// loadJob reads the job from the database, writing the error response itself
func (api *API) loadJob(c *gin.Context, id string) (*models.Job, bool) {
	job, err := api.repo.GetJob(c.Request.Context(), id)
	if errors.Is(err, database.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return nil, false
	}
	if err != nil {
		api.logger.WithJobID(id).WithError(err).Error("Failed to get job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job"})
		return nil, false
	}
	return job, true
}

func (api *API) cacheJob(ctx context.Context, job *models.Job) {
	if api.cache == nil {
		return
	}
	if err := api.cache.SetJob(ctx, job); err != nil {
		api.logger.WithJobID(job.ID).WithError(err).Warn("Failed to cache job")
	}
}
