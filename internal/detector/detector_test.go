package detector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

func TestParseOutput(t *testing.T) {
	output := "/tmp/f/0000.jpg,car,0.91,10,50,5,40\n\n  /tmp/f/0001.jpg,person,0.5,1,2,3,4  \n"

	detections, err := ParseOutput(strings.NewReader(output))
	require.NoError(t, err)
	require.Len(t, detections, 2)

	assert.Equal(t, models.Detection{
		Filename:    "/tmp/f/0000.jpg",
		Label:       "car",
		Probability: "0.91",
		Box:         models.Box{Left: "10", Right: "50", Top: "5", Bottom: "40"},
	}, detections[0])
	assert.Equal(t, "/tmp/f/0001.jpg", detections[1].Filename)
	assert.Equal(t, "4", detections[1].Box.Bottom)
}

func TestParseOutputKeepsDetectorOrder(t *testing.T) {
	output := "b.jpg,x,1,0,0,0,0\na.jpg,y,1,0,0,0,0\nb.jpg,z,1,0,0,0,0\n"

	detections, err := ParseOutput(strings.NewReader(output))
	require.NoError(t, err)

	var labels []string
	for _, d := range detections {
		labels = append(labels, d.Label)
	}
	assert.Equal(t, []string{"x", "y", "z"}, labels)
}

func TestParseOutputWrongFieldCount(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"six fields", "a.jpg,car,0.9,1,2,3\n"},
		{"eight fields", "a.jpg,car,0.9,1,2,3,4,5\n"},
		{"second line bad", "a.jpg,car,0.9,1,2,3,4\nnoise\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOutput(strings.NewReader(tt.output))
			assert.Error(t, err)
		})
	}
}

func TestParseOutputLongLine(t *testing.T) {
	name := strings.Repeat("f", 2<<20) + ".jpg"
	output := name + ",car,0.9,1,2,3,4\nb.jpg,bus,0.8,1,2,3,4"

	detections, err := ParseOutput(strings.NewReader(output))
	require.NoError(t, err)
	require.Len(t, detections, 2)
	assert.Equal(t, name, detections[0].Filename)
	assert.Equal(t, "bus", detections[1].Label)
}

func TestParseOutputEmpty(t *testing.T) {
	detections, err := ParseOutput(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, detections)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detections.txt")
	require.NoError(t, os.WriteFile(path, []byte("0001.jpg,sign,0.7,1,2,3,4\n"), 0644))

	detections, err := FileSource{Path: path}.Detect(context.Background(), "ignored")
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, "sign", detections[0].Label)
}

func TestFileSourceMissing(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "none.txt")}.Detect(context.Background(), "")
	assert.Error(t, err)
}
