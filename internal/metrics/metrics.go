package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotag_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autotag_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Upload Metrics
	VideoUploadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autotag_video_uploads_total",
			Help: "Total number of video uploads",
		},
	)

	VideoUploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autotag_video_upload_size_bytes",
			Help:    "Size of uploaded videos in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 15), // 1MB to 16GB
		},
	)

	// Job Metrics
	JobsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autotag_jobs_created_total",
			Help: "Total number of tagging jobs created",
		},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotag_jobs_completed_total",
			Help: "Total number of finished tagging jobs",
		},
		[]string{"status"},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autotag_jobs_in_progress",
			Help: "Number of jobs currently being processed",
		},
	)

	JobsQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autotag_jobs_queue_depth",
			Help: "Number of jobs waiting in queue",
		},
	)

	JobsDLQDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autotag_jobs_dlq_depth",
			Help: "Number of jobs parked in the dead letter queue",
		},
	)

	JobsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autotag_jobs_by_status",
			Help: "Number of stored jobs per status",
		},
		[]string{"status"},
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autotag_job_duration_seconds",
			Help:    "Job processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
	)

	// Pipeline Metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autotag_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
		},
		[]string{"stage", "status"},
	)

	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotag_frames_total",
			Help: "Total number of extracted frames by caption state",
		},
		[]string{"captioned"},
	)

	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotag_detections_total",
			Help: "Total number of detections by label",
		},
		[]string{"label"},
	)

	ResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autotag_results_total",
			Help: "Total number of result rows written",
		},
	)

	SubtitleDriftTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autotag_subtitle_drift_total",
			Help: "Videos whose last frame does not line up with the subtitle timecodes",
		},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotag_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autotag_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotag_storage_bytes_transferred_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	// Database Metrics
	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotag_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autotag_database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotag_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// Status returns the status label for err
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordVideoUpload records an accepted upload
func RecordVideoUpload(size int64) {
	VideoUploadsTotal.Inc()
	VideoUploadSizeBytes.Observe(float64(size))
}

// RecordJobCreated records job creation
func RecordJobCreated() {
	JobsCreatedTotal.Inc()
}

// RecordJobCompleted records a finished job
func RecordJobCompleted(status string, duration time.Duration) {
	JobsCompletedTotal.WithLabelValues(status).Inc()
	JobDuration.Observe(duration.Seconds())
}

// UpdateQueueMetrics records the main and dead letter queue depths
func UpdateQueueMetrics(queueDepth, dlqDepth int) {
	JobsQueueDepth.Set(float64(queueDepth))
	JobsDLQDepth.Set(float64(dlqDepth))
}

// UpdateJobStatusCounts replaces the per-status job gauges
func UpdateJobStatusCounts(counts map[string]int64) {
	JobsByStatus.Reset()
	for status, n := range counts {
		JobsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// RecordStage records the duration of one pipeline stage
func RecordStage(stage string, duration time.Duration, err error) {
	StageDuration.WithLabelValues(stage, Status(err)).Observe(duration.Seconds())
}

// RecordFrames records extracted frames split by whether a caption matched
func RecordFrames(total, captioned int) {
	if captioned > total {
		captioned = total
	}
	FramesTotal.WithLabelValues("true").Add(float64(captioned))
	FramesTotal.WithLabelValues("false").Add(float64(total - captioned))
}

// RecordDetections records detection counts keyed by label
func RecordDetections(byLabel map[string]int) {
	for label, n := range byLabel {
		DetectionsTotal.WithLabelValues(label).Add(float64(n))
	}
}

// RecordResults records written result rows
func RecordResults(n int) {
	ResultsTotal.Add(float64(n))
}

// RecordDrift records a subtitle drift warning
func RecordDrift() {
	SubtitleDriftTotal.Inc()
}

// RecordStorageOperation records storage operation metrics
func RecordStorageOperation(operation, status string, duration float64, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
	if bytesTransferred > 0 {
		StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
	}
}

// RecordDatabaseOperation records database operation metrics
func RecordDatabaseOperation(operation, status string, duration float64) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
