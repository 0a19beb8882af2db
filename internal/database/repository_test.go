package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "autotag",
		Password: "secret",
		DBName:   "autotag",
		SSLMode:  "disable",
		MaxConns: 10,
		MinConns: 2,
	}

	assert.Equal(t,
		"host=db port=5432 user=autotag password=secret dbname=autotag sslmode=disable pool_max_conns=10 pool_min_conns=2",
		DSN(cfg))
}

func TestResultTableColumns(t *testing.T) {
	assert.Equal(t, []string{"job_id", "seq"}, resultTableColumns[:2])
	assert.Len(t, resultTableColumns, len(models.ResultColumns)+2)
}

func TestResultRows(t *testing.T) {
	results := []models.Result{
		{Image: "/tmp/frames/0001.jpg", Name: "A ", Dist: "1m", Date: "01/01/2020", Label: "sign", Probability: "90", Left: "1", Right: "2", Top: "3", Bottom: "4"},
		{Image: "0002.jpg", Label: "car", Probability: "50", Left: "5", Right: "6", Top: "7", Bottom: "8"},
	}

	src := resultRows("job-1", results)

	var rows [][]any
	for src.Next() {
		values, err := src.Values()
		require.NoError(t, err)
		rows = append(rows, values)
	}
	require.NoError(t, src.Err())
	require.Len(t, rows, 2)

	assert.Equal(t, []any{"job-1", 0, "0001.jpg", "A ", "1m", "01/01/2020", "sign", "90", "1", "2", "3", "4"}, rows[0])
	assert.Equal(t, "job-1", rows[1][0])
	assert.Equal(t, 1, rows[1][1])
	assert.Equal(t, "0002.jpg", rows[1][2])
	assert.Len(t, rows[1], len(resultTableColumns))
}
