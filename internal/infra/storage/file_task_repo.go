// Package storage provides the durable checkpoint stores. Each task is one
// full-state record; every save is a complete overwrite, so writers must hold
// the whole TaskState in memory. Single-writer per task id.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"transcript-digest/internal/domain"
	"transcript-digest/internal/domain/model"
	"transcript-digest/internal/domain/ports/repository"
)

var _ repository.TaskRepository = (*FileTaskRepo)(nil)

// FileTaskRepo keeps one <task_id>.json document per task under a directory.
type FileTaskRepo struct {
	dir string
}

func NewFileTaskRepo(dir string) (*FileTaskRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create progress dir: %w", err)
	}
	return &FileTaskRepo{dir: dir}, nil
}

func (r *FileTaskRepo) path(taskID string) string {
	return filepath.Join(r.dir, taskID+".json")
}

// Save writes the snapshot to a temp file and renames it over the record, so a
// crash mid-write never leaves a truncated checkpoint behind.
func (r *FileTaskRepo) Save(ctx context.Context, task *model.TaskState) error {
	if task == nil || task.TaskID == "" {
		return domain.ErrInvalidArgument
	}
	b, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.TaskID, err)
	}
	dst := r.path(task.TaskID)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write task %s: %w", task.TaskID, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("commit task %s: %w", task.TaskID, err)
	}
	return nil
}

func (r *FileTaskRepo) Find(ctx context.Context, taskID string) (*model.TaskState, error) {
	if taskID == "" {
		return nil, domain.ErrInvalidArgument
	}
	b, err := os.ReadFile(r.path(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read task %s: %w", taskID, err)
	}
	var task model.TaskState
	if err := json.Unmarshal(b, &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", taskID, err)
	}
	return &task, nil
}

func (r *FileTaskRepo) ListIncomplete(ctx context.Context) ([]*model.TaskState, error) {
	tasks, err := r.loadAll()
	if err != nil {
		return nil, err
	}
	out := make([]*model.TaskState, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != model.TaskStatusOverallCompleted {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *FileTaskRepo) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return domain.ErrInvalidArgument
	}
	if err := os.Remove(r.path(taskID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

func (r *FileTaskRepo) SweepCompleted(ctx context.Context, keepDays int) (int, error) {
	tasks, err := r.loadAll()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)
	removed := 0
	for _, t := range tasks {
		if t.Status == model.TaskStatusOverallCompleted && t.UpdatedAt.Before(cutoff) {
			if err := r.Delete(ctx, t.TaskID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// loadAll reads every task document, skipping entries that cannot be decoded
// so one corrupt record never blocks the rest.
func (r *FileTaskRepo) loadAll() ([]*model.TaskState, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list progress dir: %w", err)
	}
	var tasks []*model.TaskState
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		taskID := strings.TrimSuffix(e.Name(), ".json")
		task, err := r.Find(context.Background(), taskID)
		if err != nil {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
