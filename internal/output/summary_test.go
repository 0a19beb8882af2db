package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

func TestRenderSummary(t *testing.T) {
	results := []models.Result{
		{Image: "0000.jpg", Label: "car", Name: "John Doe "},
		{Image: "0001.jpg", Label: "car"},
		{Image: "0002.jpg", Label: "sign", Date: "01/02/2020"},
	}

	out := RenderSummary(results)

	assert.Contains(t, out, "car")
	assert.Contains(t, out, "sign")
	assert.Less(t, strings.Index(out, "car"), strings.Index(out, "sign"), "labels should be sorted")
	assert.Contains(t, strings.ToLower(out), "total")
}

func TestRenderResultsLimit(t *testing.T) {
	results := []models.Result{
		{Image: "0000.jpg", Label: "car"},
		{Image: "0001.jpg", Label: "truck"},
	}

	out := RenderResults(results, 1)
	assert.Contains(t, out, "0000.jpg")
	assert.NotContains(t, out, "0001.jpg")

	all := RenderResults(results, 0)
	assert.Contains(t, all, "0001.jpg")
}
