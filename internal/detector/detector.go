// Package detector runs the object detector over a directory of frames and
// parses the tuples it prints.
package detector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// fieldsPerLine is filename, label, probability and four box edges
const fieldsPerLine = 7

// Source produces detections for the frame images in a directory
type Source interface {
	Detect(ctx context.Context, imagesDir string) ([]models.Detection, error)
}

// ParseOutput reads one "filename,label,prob,left,right,top,bottom" tuple per
// line. Lines may be of any length. Blank lines are ignored; any other
// malformed line is an error.
func ParseOutput(r io.Reader) ([]models.Detection, error) {
	br := bufio.NewReader(r)

	var detections []models.Detection
	lineNo := 0
	for eof := false; !eof; {
		raw, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read detector output: %w", err)
		}
		eof = err != nil
		lineNo++

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != fieldsPerLine {
			return nil, fmt.Errorf("detector output line %d: expected %d fields, got %d",
				lineNo, fieldsPerLine, len(fields))
		}

		detections = append(detections, models.Detection{
			Filename:    fields[0],
			Label:       fields[1],
			Probability: fields[2],
			Box: models.Box{
				Left:   fields[3],
				Right:  fields[4],
				Top:    fields[5],
				Bottom: fields[6],
			},
		})
	}

	return detections, nil
}

// FileSource replays detector output captured in a file. The images
// directory is ignored.
type FileSource struct {
	Path string
}

// Detect parses the captured output file
func (s FileSource) Detect(ctx context.Context, imagesDir string) ([]models.Detection, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open detections: %w", err)
	}
	defer f.Close()

	return ParseOutput(f)
}
