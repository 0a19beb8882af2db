package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// ErrJobNotFound is returned when no job has the requested ID
var ErrJobNotFound = errors.New("job not found")

// resultTableColumns mirrors models.ResultColumns with the job key prepended
var resultTableColumns = []string{
	"job_id", "seq", "image", "name", "dist", "date", "label", "probability",
	"box_left", "box_right", "box_top", "box_bottom",
}

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Jobs

// CreateJob creates a new job record
func (r *Repository) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}

	query := `
		INSERT INTO jobs (id, video_key, video_name, status, progress, retry_count, video)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		job.ID, job.VideoKey, job.VideoName, job.Status, job.Progress, job.RetryCount, job.Video,
	).Scan(&job.CreatedAt, &job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob retrieves a job by ID
func (r *Repository) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job

	query := `
		SELECT id, video_key, video_name, status, progress, error_msg, retry_count,
		       worker_id, frame_count, first_frame, captioned_frames, result_count,
		       results_key, video, started_at, completed_at, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.VideoKey, &job.VideoName, &job.Status, &job.Progress,
		&job.ErrorMsg, &job.RetryCount, &job.WorkerID, &job.FrameCount,
		&job.FirstFrame, &job.CaptionedFrames, &job.ResultCount, &job.ResultsKey,
		&job.Video, &job.StartedAt, &job.CompletedAt, &job.CreatedAt, &job.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// UpdateJob updates a job record
func (r *Repository) UpdateJob(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs
		SET status = $2, progress = $3, error_msg = $4, retry_count = $5, worker_id = $6,
		    frame_count = $7, first_frame = $8, captioned_frames = $9, result_count = $10,
		    results_key = $11, video = $12, started_at = $13, completed_at = $14,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		job.ID, job.Status, job.Progress, job.ErrorMsg, job.RetryCount, job.WorkerID,
		job.FrameCount, job.FirstFrame, job.CaptionedFrames, job.ResultCount,
		job.ResultsKey, job.Video, job.StartedAt, job.CompletedAt,
	).Scan(&job.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	return nil
}

// DeleteJob removes a job and, through the foreign key, its results
func (r *Repository) DeleteJob(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ListJobs retrieves jobs with pagination, newest first
func (r *Repository) ListJobs(ctx context.Context, limit, offset int) ([]*models.Job, error) {
	query := `
		SELECT id, video_key, video_name, status, progress, error_msg, retry_count,
		       worker_id, frame_count, first_frame, captioned_frames, result_count,
		       results_key, video, started_at, completed_at, created_at, updated_at
		FROM jobs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var job models.Job
		err := rows.Scan(
			&job.ID, &job.VideoKey, &job.VideoName, &job.Status, &job.Progress,
			&job.ErrorMsg, &job.RetryCount, &job.WorkerID, &job.FrameCount,
			&job.FirstFrame, &job.CaptionedFrames, &job.ResultCount, &job.ResultsKey,
			&job.Video, &job.StartedAt, &job.CompletedAt, &job.CreatedAt, &job.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

// CountJobsByStatus returns the number of jobs in each status
func (r *Repository) CountJobsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (statusCount, error) {
		var sc statusCount
		err := row.Scan(&sc.status, &sc.count)
		return sc, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan job counts: %w", err)
	}

	byStatus := make(map[string]int64, len(counts))
	for _, sc := range counts {
		byStatus[sc.status] = sc.count
	}
	return byStatus, nil
}

type statusCount struct {
	status string
	count  int64
}

// Results

// InsertResults replaces the stored results of a job with results, keeping
// their order.
func (r *Repository) InsertResults(ctx context.Context, jobID string, results []models.Result) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM results WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}

	if len(results) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"results"}, resultTableColumns, resultRows(jobID, results))
		if err != nil {
			return fmt.Errorf("failed to copy results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}

	return nil
}

// ListResults retrieves the results of a job in their original order
func (r *Repository) ListResults(ctx context.Context, jobID string) ([]models.Result, error) {
	query := `
		SELECT image, name, dist, date, label, probability, box_left, box_right, box_top, box_bottom
		FROM results
		WHERE job_id = $1
		ORDER BY seq
	`

	rows, err := r.db.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	results := []models.Result{}
	for rows.Next() {
		var res models.Result
		err := rows.Scan(
			&res.Image, &res.Name, &res.Dist, &res.Date, &res.Label, &res.Probability,
			&res.Left, &res.Right, &res.Top, &res.Bottom,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}

	return results, rows.Err()
}

// resultRows adapts results to a CopyFrom source
func resultRows(jobID string, results []models.Result) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(results), func(i int) ([]any, error) {
		res := results[i].WithBaseImage()
		values := make([]any, 0, len(resultTableColumns))
		values = append(values, jobID, i)
		for _, field := range res.Row() {
			values = append(values, field)
		}
		return values, nil
	})
}
