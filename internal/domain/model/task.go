package model

import "time"

type TaskStatus string

const (
	TaskStatusInitialized        TaskStatus = "initialized"
	TaskStatusSegmentsInProgress TaskStatus = "segments_in_progress"
	TaskStatusSegmentsCompleted  TaskStatus = "segments_completed"
	TaskStatusOverallCompleted   TaskStatus = "overall_completed"
	TaskStatusFailed             TaskStatus = "failed"
)

// SegmentSummary is the checkpointed result for one completed segment.
type SegmentSummary struct {
	Index          int       `json:"index"`
	StartTime      string    `json:"start_time,omitempty"`
	OriginalLength int       `json:"original_length"`
	Summary        string    `json:"summary"`
	Keywords       []string  `json:"keywords,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
}

// SegmentFailure records a segment whose summarization exhausted its retries.
type SegmentFailure struct {
	Index    int       `json:"index"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// TaskState is the durable snapshot of one summarization task. It is mutated
// only by the summarize use case and persisted in full after every mutation.
type TaskState struct {
	TaskID     string    `json:"task_id"`
	MediaTitle string    `json:"media_title"`
	ModelKey   string    `json:"model_key"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// TotalSegments is set once when segmentation first runs and is immutable
	// afterwards; resumption re-runs the deterministic segmenter and checks the
	// count still matches.
	TotalSegments     int              `json:"total_segments"`
	CompletedSegments []SegmentSummary `json:"completed_segments"` // completion order
	FailedSegments    []SegmentFailure `json:"failed_segments"`

	OverallSummary string `json:"overall_summary,omitempty"` // empty until synthesized, written at most once

	// Topics is nil until topic analysis runs; an empty non-nil slice means the
	// analysis was attempted and found nothing (or failed), so it is not retried.
	Topics []string `json:"topics"`

	Status    TaskStatus `json:"status"`
	ErrorInfo string     `json:"error_info,omitempty"`
}

func NewTaskState(taskID, mediaTitle, modelKey string) *TaskState {
	now := time.Now().UTC()
	return &TaskState{
		TaskID:     taskID,
		MediaTitle: mediaTitle,
		ModelKey:   modelKey,
		CreatedAt:  now,
		UpdatedAt:  now,
		Status:     TaskStatusInitialized,
	}
}

func (t *TaskState) Touch() { t.UpdatedAt = time.Now().UTC() }

func (t *TaskState) IsSegmentCompleted(index int) bool {
	for _, s := range t.CompletedSegments {
		if s.Index == index {
			return true
		}
	}
	return false
}

// AddCompletedSegment appends a segment result. Duplicate indices are ignored
// and any earlier failure record for the index is evicted: an index lives in at
// most one of the two lists, and the latest success wins.
func (t *TaskState) AddCompletedSegment(s SegmentSummary) {
	if !t.IsSegmentCompleted(s.Index) {
		s.CompletedAt = time.Now().UTC()
		t.CompletedSegments = append(t.CompletedSegments, s)
	}
	t.removeFailedSegment(s.Index)
	t.Touch()
}

// AddFailedSegment records a failure, replacing any previous entry for the index.
func (t *TaskState) AddFailedSegment(index int, errMsg string) {
	t.removeFailedSegment(index)
	t.FailedSegments = append(t.FailedSegments, SegmentFailure{
		Index:    index,
		Error:    errMsg,
		FailedAt: time.Now().UTC(),
	})
	t.Touch()
}

func (t *TaskState) removeFailedSegment(index int) {
	for i, f := range t.FailedSegments {
		if f.Index == index {
			t.FailedSegments = append(t.FailedSegments[:i], t.FailedSegments[i+1:]...)
			return
		}
	}
}

func (t *TaskState) ProgressPercentage() float64 {
	if t.TotalSegments == 0 {
		return 0
	}
	return float64(len(t.CompletedSegments)) / float64(t.TotalSegments) * 100
}
