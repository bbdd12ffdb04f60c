package usecase

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"transcript-digest/internal/config"
	"transcript-digest/internal/domain"
	"transcript-digest/internal/domain/model"
	"transcript-digest/internal/domain/ports/repository"
	"transcript-digest/internal/infra/metrics"
)

// Compile-time check
var _ TaskUseCase = (*taskUC)(nil)

// TaskUseCase manages the lifecycle of summarization tasks around the
// orchestrated run itself: creation, resumption, listing, deletion and the
// retention sweep.
type TaskUseCase interface {
	Create(ctx context.Context, mediaTitle, modelKey string) (*model.TaskState, error)
	Resume(ctx context.Context, taskID string) (*model.TaskState, error)
	ListIncomplete(ctx context.Context) ([]*model.TaskState, error)
	Delete(ctx context.Context, taskID string) error
	Sweep(ctx context.Context) (int, error)
}

type taskUC struct {
	repo repository.TaskRepository
	cfg  config.ProgressConfig
	log  *zerolog.Logger
}

func NewTaskUseCase(repo repository.TaskRepository, cfg config.ProgressConfig, log *zerolog.Logger) *taskUC {
	return &taskUC{repo: repo, cfg: cfg, log: log}
}

func (t *taskUC) Create(ctx context.Context, mediaTitle, modelKey string) (*model.TaskState, error) {
	if modelKey == "" {
		return nil, domain.ErrInvalidArgument
	}
	task := model.NewTaskState(GenerateTaskID(mediaTitle), mediaTitle, modelKey)
	if err := t.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	metrics.IncTaskCreated()
	t.log.Info().Str("task_id", task.TaskID).Str("model_key", modelKey).Msg("task created")
	return task, nil
}

func (t *taskUC) Resume(ctx context.Context, taskID string) (*model.TaskState, error) {
	return t.repo.Find(ctx, taskID)
}

func (t *taskUC) ListIncomplete(ctx context.Context) ([]*model.TaskState, error) {
	return t.repo.ListIncomplete(ctx)
}

func (t *taskUC) Delete(ctx context.Context, taskID string) error {
	return t.repo.Delete(ctx, taskID)
}

func (t *taskUC) Sweep(ctx context.Context) (int, error) {
	if !t.cfg.CleanupEnabled {
		return 0, nil
	}
	removed, err := t.repo.SweepCompleted(ctx, t.cfg.KeepCompleted)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		metrics.AddTasksSwept(removed)
		t.log.Info().Int("removed", removed).Msg("retention sweep removed completed tasks")
	}
	return removed, nil
}

// GenerateTaskID builds a human-readable id: a sanitized fragment of the media
// title plus a short random suffix to avoid collisions.
func GenerateTaskID(mediaTitle string) string {
	kept := make([]rune, 0, len(mediaTitle))
	for _, r := range mediaTitle {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			kept = append(kept, r)
		case r == ' ':
			kept = append(kept, '_')
		}
	}
	if len(kept) > 50 {
		kept = kept[:50]
	}
	clean := strings.Trim(string(kept), "_")
	if clean == "" {
		clean = "task"
	}
	return clean + "_" + uuid.NewString()[:8]
}
