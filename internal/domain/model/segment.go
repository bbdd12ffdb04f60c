package model

// Segment is one contiguous span of the transcript. Segments are recomputed from
// the raw text on every run and never persisted; indices are 1-based and stable
// for identical input and segmentation settings.
type Segment struct {
	Index     int    `json:"index"`
	Content   string `json:"content"`
	StartTime string `json:"start_time,omitempty"` // "H:MM:SS" if the transcript carried one
	Length    int    `json:"length"`
}
