package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"mediagraph/internal/domain"
)

type TaskStore struct {
	db *sqlx.DB
}

func NewTaskStore(db *sqlx.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Create inserts a new pending task and returns it.
func (s *TaskStore) Create(ctx context.Context, targetURL, crawlType string) (*domain.CrawlTask, error) {
	task := &domain.CrawlTask{
		ID:        uuid.NewString(),
		TargetURL: targetURL,
		CrawlType: crawlType,
		Status:    domain.TaskPending,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO crawl_task (id, target_url, crawl_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.db.ExecContext(ctx, query,
		task.ID, task.TargetURL, task.CrawlType, task.Status, task.CreatedAt,
	); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskStore) Get(ctx context.Context, id string) (*domain.CrawlTask, error) {
	var task domain.CrawlTask
	query := `
		SELECT id, target_url, crawl_type, status, total_items,
			created_at, started_at, finished_at, error_message
		FROM crawl_task
		WHERE id = $1`

	err := s.db.GetContext(ctx, &task, query, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskStore) List(ctx context.Context, limit int) ([]domain.CrawlTask, error) {
	query := `
		SELECT id, target_url, crawl_type, status, total_items,
			created_at, started_at, finished_at, error_message
		FROM crawl_task
		ORDER BY created_at DESC
		LIMIT $1`

	tasks := []domain.CrawlTask{}
	if err := s.db.SelectContext(ctx, &tasks, query, limit); err != nil {
		return nil, err
	}
	return tasks, nil
}

// MarkRunning moves a pending task to RUNNING. Tasks already past
// PENDING are left untouched and reported as a conflict.
func (s *TaskStore) MarkRunning(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crawl_task
		SET status = $1, started_at = $2
		WHERE id = $3 AND status = $4`,
		domain.TaskRunning, time.Now().UTC(), id, domain.TaskPending,
	)
	if err != nil {
		return err
	}
	return requireUpdated(res, id)
}

// MarkDone finishes a running task with its item count.
func (s *TaskStore) MarkDone(ctx context.Context, id string, totalItems int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crawl_task
		SET status = $1, total_items = $2, finished_at = $3
		WHERE id = $4 AND status = $5`,
		domain.TaskDone, totalItems, time.Now().UTC(), id, domain.TaskRunning,
	)
	if err != nil {
		return err
	}
	return requireUpdated(res, id)
}

// MarkFailed finishes a task with an error message. Terminal tasks are
// never overwritten.
func (s *TaskStore) MarkFailed(ctx context.Context, id string, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crawl_task
		SET status = $1, error_message = $2, finished_at = $3
		WHERE id = $4 AND status NOT IN ($5, $6)`,
		domain.TaskFailed, message, time.Now().UTC(), id, domain.TaskDone, domain.TaskFailed,
	)
	if err != nil {
		return err
	}
	return requireUpdated(res, id)
}

func requireUpdated(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, domain.ErrTaskConflict)
	}
	return nil
}
