package models

// VideoInfo holds the probed properties of a source video
type VideoInfo struct {
	Filename        string  `json:"filename"`
	Duration        float64 `json:"duration"`
	FrameRate       float64 `json:"frame_rate"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Codec           string  `json:"codec"`
	Size            int64   `json:"size"`
	SubtitleStreams int     `json:"subtitle_streams"`
}
