// Package frames lists the images extracted from a video and pairs them with
// the subtitle caption that was on screen when each was captured.
package frames

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// FindFrames lists the frame images in dir ordered by the integer value of
// their filename stem, so "10.jpg" sorts after "9.jpg".
func FindFrames(dir string) ([]models.FrameImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}

	frames := make([]models.FrameImage, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		index, err := FrameIndex(entry.Name())
		if err != nil {
			return nil, err
		}

		frames = append(frames, models.FrameImage{
			Path:  filepath.Join(dir, entry.Name()),
			Index: index,
		})
	}

	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].Index < frames[j].Index
	})

	return frames, nil
}

// FrameIndex parses the frame number out of a filename such as "0042.jpg"
func FrameIndex(filename string) (int, error) {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	index, err := strconv.Atoi(stem)
	if err != nil {
		return 0, fmt.Errorf("frame %q is not named by its index: %w", base, err)
	}

	return index, nil
}
