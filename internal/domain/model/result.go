package model

import "time"

// ResultMetadata describes how far a summarization run got.
type ResultMetadata struct {
	TotalSegments          int        `json:"total_segments"`
	CompletedSegmentsCount int        `json:"completed_segments_count"`
	FailedSegmentsCount    int        `json:"failed_segments_count"`
	OriginalLength         int        `json:"original_length"`
	ModelUsed              string     `json:"model_used"`
	GeneratedAt            time.Time  `json:"generated_at"`
	TaskID                 string     `json:"task_id"`
	ProgressPercentage     float64    `json:"progress_percentage"`
	Status                 TaskStatus `json:"status"`
	IsPartial              bool       `json:"is_partial"`
}

// SummaryResult is what a summarization run returns, full or partial. Rendering
// it into text/markdown/PDF is a downstream concern.
type SummaryResult struct {
	Segments       []SegmentSummary `json:"segments"`
	OverallSummary string           `json:"overall_summary"`
	Topics         []string         `json:"topics"`
	Metadata       ResultMetadata   `json:"metadata"`
}
