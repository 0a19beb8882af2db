package database

import (
	"context"

	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// ResultSink stores the results of one job
type ResultSink struct {
	repo  *Repository
	jobID string
}

// NewResultSink binds a sink to jobID
func NewResultSink(repo *Repository, jobID string) *ResultSink {
	return &ResultSink{repo: repo, jobID: jobID}
}

// WriteResults replaces the job's stored results
func (s *ResultSink) WriteResults(ctx context.Context, results []models.Result) error {
	return s.repo.InsertResults(ctx, s.jobID, results)
}
