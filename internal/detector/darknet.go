package detector

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// Darknet runs "darknet detector testmany" over every JPEG in a directory
type Darknet struct {
	executable  string
	modelConfig string
	yoloConfig  string
	weights     string
}

// NewDarknet creates a darknet runner. Paths are made absolute because the
// process runs from the directory of the executable.
func NewDarknet(cfg config.DarknetConfig) (*Darknet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Darknet{}
	for _, p := range []struct {
		src string
		dst *string
	}{
		{cfg.Executable, &d.executable},
		{cfg.ModelConfig, &d.modelConfig},
		{cfg.YoloConfig, &d.yoloConfig},
		{cfg.Weights, &d.weights},
	} {
		abs, err := filepath.Abs(p.src)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p.src, err)
		}
		*p.dst = abs
	}

	return d, nil
}

// Detect runs darknet over the images in imagesDir. A non-zero exit is
// returned as an error.
func (d *Darknet) Detect(ctx context.Context, imagesDir string) ([]models.Detection, error) {
	images, err := listImages(imagesDir)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, d.executable, d.args(images)...)
	cmd.Dir = filepath.Dir(d.executable)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("darknet failed: %w, stderr: %s", err, stderr.String())
	}

	return ParseOutput(&stdout)
}

func (d *Darknet) args(images []string) []string {
	args := []string{
		"detector",
		"testmany",
		d.modelConfig,
		d.yoloConfig,
		d.weights,
	}
	return append(args, images...)
}

// listImages returns the *.jpg files of dir joined with dir
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match("*.jpg", entry.Name()); ok {
			images = append(images, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(images)

	return images, nil
}
