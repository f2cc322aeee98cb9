package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/azhengyongqin/eval-hub/internal/model"
)

// TaskRepo TaskRepository 的 pgx 实现
type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

var _ TaskRepository = (*TaskRepo)(nil)

// ErrTaskNotFound 查询不到指定 task_id
var ErrTaskNotFound = errors.New("task not found")

func (r *TaskRepo) CreateTask(ctx context.Context, t Task) error {
	if t.TaskID == "" {
		return errors.New("task_id 不能为空")
	}
	_, err := r.pool.Exec(ctx, `
insert into task(task_id, project_id, task_type, status, model_info, language, detail, total_count, completed_count, note, start_time, end_time)
values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`, t.TaskID, t.ProjectID, t.TaskType, int(t.Status), t.ModelInfo, nullIfEmpty(t.Language), t.Detail, t.TotalCount, t.CompletedCount, nullIfEmpty(t.Note), t.StartTime, t.EndTime)
	return err
}

func (r *TaskRepo) GetTask(ctx context.Context, taskID string) (*Task, error) {
	row := r.pool.QueryRow(ctx, `
select task_id, project_id, task_type, status, model_info, coalesce(language,''), detail, total_count, completed_count, coalesce(note,''), start_time, end_time, created_at
from task
where task_id=$1
`, taskID)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

// UpdateDetail 回写 detail 与进度计数。status=0 守卫保证读-改-写不会覆盖
// 并发打上的终态：写入 0 行说明任务已离开 processing，由调用方定夺。
func (r *TaskRepo) UpdateDetail(ctx context.Context, taskID string, detail json.RawMessage, completedCount int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
update task
set detail=$2, completed_count=$3
where task_id=$1 and status=0
`, taskID, detail, completedCount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateProgress 进度只对 processing 任务落库，终态后的迟到写入静默丢弃
func (r *TaskRepo) UpdateProgress(ctx context.Context, taskID string, completedCount int) error {
	_, err := r.pool.Exec(ctx, `
update task
set completed_count=$2
where task_id=$1 and status=0
`, taskID, completedCount)
	return err
}

// FinishTask 迁移到终态。status=0 守卫保证 processing 到终态只发生一次，
// 中断端点和驱动例程同时收尾时只有先到者生效。
func (r *TaskRepo) FinishTask(ctx context.Context, taskID string, status model.TaskStatus, note string, endTime time.Time) (bool, error) {
	if !status.Terminal() {
		return false, errors.New("finish 只接受终态")
	}
	tag, err := r.pool.Exec(ctx, `
update task
set status=$2, note=$3, end_time=$4
where task_id=$1 and status=0
`, taskID, int(status), nullIfEmpty(note), endTime)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TaskRepo) ListTasks(ctx context.Context, f ListTasksFilter) ([]Task, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	status := -1
	if f.Status != nil {
		status = int(*f.Status)
	}

	rows, err := r.pool.Query(ctx, `
select task_id, project_id, task_type, status, model_info, coalesce(language,''), detail, total_count, completed_count, coalesce(note,''), start_time, end_time, created_at
from task
where ($1='' or project_id=$1)
  and ($2='' or task_type=$2)
  and ($3=-1 or status=$3)
order by created_at desc
limit $4 offset $5
`, f.ProjectID, f.TaskType, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TaskRepo) CountTasks(ctx context.Context, f ListTasksFilter) (int, error) {
	status := -1
	if f.Status != nil {
		status = int(*f.Status)
	}
	var count int
	err := r.pool.QueryRow(ctx, `
select count(*)
from task
where ($1='' or project_id=$1)
  and ($2='' or task_type=$2)
  and ($3=-1 or status=$3)
`, f.ProjectID, f.TaskType, status).Scan(&count)
	return count, err
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	var status int
	if err := row.Scan(&t.TaskID, &t.ProjectID, &t.TaskType, &status, &t.ModelInfo, &t.Language, &t.Detail, &t.TotalCount, &t.CompletedCount, &t.Note, &t.StartTime, &t.EndTime, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	return &t, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
