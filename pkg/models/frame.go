package models

// FrameImage is one image extracted from a video. Index is the integer value
// of the filename stem, so "0010.jpg" has index 10.
type FrameImage struct {
	Path  string `json:"path"`
	Index int    `json:"index"`
}

// CaptionFields is the structured form of a subtitle caption. Every field is
// empty when the caption does not follow the name/distance/date layout.
type CaptionFields struct {
	Name string `json:"name"`
	Dist string `json:"dist"`
	Date string `json:"date"`
}

// IsEmpty reports whether no field was extracted
func (c CaptionFields) IsEmpty() bool {
	return c.Name == "" && c.Dist == "" && c.Date == ""
}
