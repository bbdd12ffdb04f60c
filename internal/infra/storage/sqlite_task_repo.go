package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"transcript-digest/internal/domain"
	"transcript-digest/internal/domain/model"
	"transcript-digest/internal/domain/ports/repository"
)

var _ repository.TaskRepository = (*SQLiteTaskRepo)(nil)

// SQLiteTaskRepo stores task snapshots in an embedded SQLite database: one row
// per task with the JSON payload, plus status and updated_at columns so the
// incomplete-list and retention queries stay in SQL.
type SQLiteTaskRepo struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the tasks database under dataDir.
func OpenSQLite(dataDir string) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "tasks.db"))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	// WAL and a busy timeout keep concurrent per-task writers from tripping
	// over SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA journal_mode = WAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func NewSQLiteTaskRepo(db *sql.DB) (*SQLiteTaskRepo, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS tasks (
		id         TEXT PRIMARY KEY,
		status     TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		payload    TEXT NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("init tasks table: %w", err)
	}
	return &SQLiteTaskRepo{db: db}, nil
}

func (r *SQLiteTaskRepo) Save(ctx context.Context, task *model.TaskState) error {
	if task == nil || task.TaskID == "" {
		return domain.ErrInvalidArgument
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.TaskID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, status, updated_at, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at,
			payload = excluded.payload`,
		task.TaskID, string(task.Status), task.UpdatedAt.Unix(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.TaskID, err)
	}
	return nil
}

func (r *SQLiteTaskRepo) Find(ctx context.Context, taskID string) (*model.TaskState, error) {
	if taskID == "" {
		return nil, domain.ErrInvalidArgument
	}
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM tasks WHERE id = ?`, taskID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find task %s: %w", taskID, err)
	}
	var task model.TaskState
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", taskID, err)
	}
	return &task, nil
}

func (r *SQLiteTaskRepo) ListIncomplete(ctx context.Context) ([]*model.TaskState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM tasks WHERE status != ? ORDER BY updated_at DESC`,
		string(model.TaskStatusOverallCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("list incomplete tasks: %w", err)
	}
	defer rows.Close()

	var out []*model.TaskState
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var task model.TaskState
		if err := json.Unmarshal([]byte(payload), &task); err != nil {
			continue
		}
		out = append(out, &task)
	}
	return out, rows.Err()
}

func (r *SQLiteTaskRepo) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return domain.ErrInvalidArgument
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

func (r *SQLiteTaskRepo) SweepCompleted(ctx context.Context, keepDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays).Unix()
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE status = ? AND updated_at < ?`,
		string(model.TaskStatusOverallCompleted), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep tasks: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
