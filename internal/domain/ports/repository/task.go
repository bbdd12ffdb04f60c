package repository

import (
	"context"

	"transcript-digest/internal/domain/model"
)

// TaskRepository persists task snapshots, one full record per task id.
// Single-writer per id; distinct ids are independent records and may be
// written concurrently.
type TaskRepository interface {
	// Save atomically overwrites the task's record. Called after every
	// mutation, so a crash loses at most one unit of checkpointed work.
	Save(ctx context.Context, task *model.TaskState) error

	// Find returns the stored task or domain.ErrNotFound.
	Find(ctx context.Context, taskID string) (*model.TaskState, error)

	// ListIncomplete returns all tasks whose status is not overall_completed,
	// newest UpdatedAt first.
	ListIncomplete(ctx context.Context) ([]*model.TaskState, error)

	Delete(ctx context.Context, taskID string) error

	// SweepCompleted deletes overall_completed tasks whose UpdatedAt is older
	// than keepDays and returns how many were removed.
	SweepCompleted(ctx context.Context, keepDays int) (int, error)
}
