package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"transcript-digest/internal/config"
	"transcript-digest/internal/domain/model"
	"transcript-digest/internal/domain/ports/repository"
	aiAdapters "transcript-digest/internal/infra/adapters/ai"
	"transcript-digest/internal/infra/logging"
	"transcript-digest/internal/infra/metrics"
	red "transcript-digest/internal/infra/redis"
	"transcript-digest/internal/infra/storage"
	"transcript-digest/internal/usecase"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	filePath := flag.String("file", "", "transcript file to summarize")
	modelKey := flag.String("model", "", "model key from ai_models")
	taskID := flag.String("task", "", "existing task id to resume")
	listTasks := flag.Bool("list", false, "list incomplete tasks and exit")
	deleteID := flag.String("delete", "", "delete a task by id and exit")
	deep := flag.Bool("deep", false, "run single-shot deep analysis instead of the pipeline")
	dev := flag.Bool("dev", false, "development mode (console logs)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, *dev)
	metrics.MustRegister()

	// ---- Task store ----
	repo, closeRepo, err := openRepo(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("task store")
	}
	defer closeRepo()

	// ---- Single-flight task lock ----
	var locker red.Locker = red.NewLocalLocker()
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer rc.Close()
		locker = red.NewLocker(rc)
	}

	// ---- Use cases ----
	taskUC := usecase.NewTaskUseCase(repo, cfg.Progress, logger)
	sumUC := usecase.NewSummarizeUseCase(cfg, repo, aiAdapters.NewFactory(cfg, logger), logger)

	switch {
	case *listTasks:
		tasks, err := taskUC.ListIncomplete(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("list tasks")
		}
		for _, t := range tasks {
			fmt.Printf("%s\t%s\t%d/%d segments\t%s\n",
				t.TaskID, t.Status, len(t.CompletedSegments), t.TotalSegments,
				t.UpdatedAt.Format(time.RFC3339))
		}
		return
	case *deleteID != "":
		if err := taskUC.Delete(ctx, *deleteID); err != nil {
			logger.Fatal().Err(err).Str("task_id", *deleteID).Msg("delete task")
		}
		return
	}

	if *filePath == "" || *modelKey == "" {
		flag.Usage()
		os.Exit(2)
	}
	raw, err := os.ReadFile(*filePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("read transcript")
	}
	text := string(raw)

	if *deep {
		out, err := sumUC.DeepAnalysis(ctx, text, *modelKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("deep analysis")
		}
		fmt.Println(out)
		return
	}

	var task *model.TaskState
	if *taskID != "" {
		task, err = taskUC.Resume(ctx, *taskID)
		if err != nil {
			logger.Fatal().Err(err).Str("task_id", *taskID).Msg("resume task")
		}
		token, err := locker.TryLock(ctx, task.TaskID, time.Hour)
		if err != nil {
			logger.Fatal().Err(err).Str("task_id", task.TaskID).Msg("acquire task lock")
		}
		defer locker.Unlock(ctx, task.TaskID, token)
	}

	progress := func(fraction float64, message string) {
		logger.Info().Float64("progress", fraction).Msg(message)
	}

	result, err := sumUC.Summarize(ctx, text, *modelKey, progress, task)
	if err != nil {
		logger.Fatal().Err(err).Msg("summarize")
	}

	// Downstream renderers consume the result structure; the CLI just emits it.
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Fatal().Err(err).Msg("encode result")
	}

	if _, err := taskUC.Sweep(ctx); err != nil {
		logger.Warn().Err(err).Msg("retention sweep")
	}
}

func openRepo(cfg *config.Config) (repository.TaskRepository, func(), error) {
	switch cfg.Progress.Backend {
	case "sqlite":
		db, err := storage.OpenSQLite(cfg.Progress.SaveDirectory)
		if err != nil {
			return nil, nil, err
		}
		repo, err := storage.NewSQLiteTaskRepo(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() { db.Close() }, nil
	default:
		repo, err := storage.NewFileTaskRepo(cfg.Progress.SaveDirectory)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}
