package models

// Box holds the edges of a bounding box exactly as printed by the detector
type Box struct {
	Left   string `json:"left"`
	Right  string `json:"right"`
	Top    string `json:"top"`
	Bottom string `json:"bottom"`
}

// Detection is one object found by the detector in one frame image
type Detection struct {
	Filename    string `json:"filename"`
	Label       string `json:"label"`
	Probability string `json:"probability"`
	Box         Box    `json:"box"`
}
