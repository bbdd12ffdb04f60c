package model

import (
	"testing"
	"time"
)

func TestAddCompletedSegmentDeduplicates(t *testing.T) {
	task := NewTaskState("t_1", "Title", "test")
	task.TotalSegments = 3

	task.AddCompletedSegment(SegmentSummary{Index: 1, Summary: "first"})
	task.AddCompletedSegment(SegmentSummary{Index: 1, Summary: "again"})

	if len(task.CompletedSegments) != 1 {
		t.Fatalf("got %d completed segments, want 1", len(task.CompletedSegments))
	}
	if task.CompletedSegments[0].Summary != "first" {
		t.Errorf("duplicate add replaced the original summary")
	}
	if task.CompletedSegments[0].CompletedAt.IsZero() {
		t.Error("completed_at not stamped")
	}
}

func TestCompletionEvictsFailureRecord(t *testing.T) {
	task := NewTaskState("t_1", "Title", "test")
	task.TotalSegments = 3

	task.AddFailedSegment(2, "timeout")
	if len(task.FailedSegments) != 1 {
		t.Fatalf("got %d failed segments, want 1", len(task.FailedSegments))
	}

	task.AddCompletedSegment(SegmentSummary{Index: 2, Summary: "recovered"})

	if len(task.FailedSegments) != 0 {
		t.Error("success for an index must remove its failure record")
	}
	if !task.IsSegmentCompleted(2) {
		t.Error("segment 2 should be completed")
	}
}

func TestAddFailedSegmentReplacesPreviousEntry(t *testing.T) {
	task := NewTaskState("t_1", "Title", "test")

	task.AddFailedSegment(2, "timeout")
	task.AddFailedSegment(2, "rate limited")

	if len(task.FailedSegments) != 1 {
		t.Fatalf("got %d failed segments, want 1", len(task.FailedSegments))
	}
	if task.FailedSegments[0].Error != "rate limited" {
		t.Errorf("error = %q, want the latest failure", task.FailedSegments[0].Error)
	}
}

func TestProgressPercentage(t *testing.T) {
	task := NewTaskState("t_1", "Title", "test")
	if got := task.ProgressPercentage(); got != 0 {
		t.Errorf("progress before segmentation = %v, want 0", got)
	}

	task.TotalSegments = 4
	task.AddCompletedSegment(SegmentSummary{Index: 1})
	task.AddCompletedSegment(SegmentSummary{Index: 2})
	if got := task.ProgressPercentage(); got != 50 {
		t.Errorf("progress = %v, want 50", got)
	}
}

func TestTouchRefreshesUpdatedAt(t *testing.T) {
	task := NewTaskState("t_1", "Title", "test")
	task.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	before := task.UpdatedAt

	task.Touch()
	if !task.UpdatedAt.After(before) {
		t.Error("Touch did not refresh UpdatedAt")
	}
}
