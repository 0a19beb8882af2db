package models

import "path/filepath"

// ResultColumns is the column order of a persisted result row
var ResultColumns = []string{
	"image", "name", "dist", "date", "label", "probability", "left", "right", "top", "bottom",
}

// Result joins a detection with the caption fields of its frame
type Result struct {
	Image       string `json:"image" db:"image"`
	Name        string `json:"name" db:"name"`
	Dist        string `json:"dist" db:"dist"`
	Date        string `json:"date" db:"date"`
	Label       string `json:"label" db:"label"`
	Probability string `json:"probability" db:"probability"`
	Left        string `json:"left" db:"box_left"`
	Right       string `json:"right" db:"box_right"`
	Top         string `json:"top" db:"box_top"`
	Bottom      string `json:"bottom" db:"box_bottom"`
}

// NewResult builds a result from a detection and its caption fields
func NewResult(d Detection, c CaptionFields) Result {
	return Result{
		Image:       d.Filename,
		Name:        c.Name,
		Dist:        c.Dist,
		Date:        c.Date,
		Label:       d.Label,
		Probability: d.Probability,
		Left:        d.Box.Left,
		Right:       d.Box.Right,
		Top:         d.Box.Top,
		Bottom:      d.Box.Bottom,
	}
}

// Row returns the fields in ResultColumns order
func (r Result) Row() []string {
	return []string{
		r.Image, r.Name, r.Dist, r.Date, r.Label, r.Probability,
		r.Left, r.Right, r.Top, r.Bottom,
	}
}

// WithBaseImage returns a copy whose Image is reduced to its base filename
func (r Result) WithBaseImage() Result {
	r.Image = filepath.Base(r.Image)
	return r
}

// ResultFromRow is the inverse of Row. It returns false when the row does not
// have exactly one value per column.
func ResultFromRow(row []string) (Result, bool) {
	if len(row) != len(ResultColumns) {
		return Result{}, false
	}
	return Result{
		Image:       row[0],
		Name:        row[1],
		Dist:        row[2],
		Date:        row[3],
		Label:       row[4],
		Probability: row[5],
		Left:        row[6],
		Right:       row[7],
		Top:         row[8],
		Bottom:      row[9],
	}, true
}
