package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/azhengyongqin/eval-hub/internal/model"
)

// EvalRepo 题目、判分结果与分块的 pgx 实现
type EvalRepo struct {
	pool *pgxpool.Pool
}

func NewEvalRepo(pool *pgxpool.Pool) *EvalRepo {
	return &EvalRepo{pool: pool}
}

var (
	_ DatasetRepository = (*EvalRepo)(nil)
	_ ResultRepository  = (*EvalRepo)(nil)
	_ ChunkRepository   = (*EvalRepo)(nil)
)

// ErrDatasetNotFound 查询不到指定 dataset_id
var ErrDatasetNotFound = errors.New("dataset not found")

// ErrChunkNotFound 查询不到指定 chunk_id
var ErrChunkNotFound = errors.New("chunk not found")

func (r *EvalRepo) GetDataset(ctx context.Context, datasetID string) (*EvalDataset, error) {
	row := r.pool.QueryRow(ctx, `
select dataset_id, project_id, question, question_type, options, correct_answer, coalesce(tags,''), coalesce(chunk_id,''), created_at
from eval_dataset
where dataset_id=$1
`, datasetID)

	ds, err := scanDataset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}
	return ds, nil
}

// ListDatasetsByIDs 按给定 id 批量查询。查不到的 id 直接缺席，
// 调用方按返回结果驱动，缺失题目不会中断任务。
func (r *EvalRepo) ListDatasetsByIDs(ctx context.Context, datasetIDs []string) ([]EvalDataset, error) {
	if len(datasetIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
select dataset_id, project_id, question, question_type, options, correct_answer, coalesce(tags,''), coalesce(chunk_id,''), created_at
from eval_dataset
where dataset_id = any($1)
`, datasetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]EvalDataset, len(datasetIDs))
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		byID[ds.DatasetID] = *ds
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 保持调用方给定的顺序
	out := make([]EvalDataset, 0, len(byID))
	for _, id := range datasetIDs {
		if ds, ok := byID[id]; ok {
			out = append(out, ds)
		}
	}
	return out, nil
}

func (r *EvalRepo) ListDatasets(ctx context.Context, projectID string, limit, offset int) ([]EvalDataset, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
select dataset_id, project_id, question, question_type, options, correct_answer, coalesce(tags,''), coalesce(chunk_id,''), created_at
from eval_dataset
where ($1='' or project_id=$1)
order by created_at desc
limit $2 offset $3
`, projectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EvalDataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ds)
	}
	return out, rows.Err()
}

func (r *EvalRepo) CreateDataset(ctx context.Context, ds EvalDataset) error {
	if ds.DatasetID == "" {
		return errors.New("dataset_id 不能为空")
	}
	options := json.RawMessage("[]")
	if len(ds.Options) > 0 {
		b, err := json.Marshal(ds.Options)
		if err != nil {
			return err
		}
		options = b
	}
	_, err := r.pool.Exec(ctx, `
insert into eval_dataset(dataset_id, project_id, question, question_type, options, correct_answer, tags, chunk_id)
values ($1,$2,$3,$4,$5,$6,$7,$8)
`, ds.DatasetID, ds.ProjectID, ds.Question, string(ds.QuestionType), options, ds.CorrectAnswer, nullIfEmpty(ds.Tags), nullIfEmpty(ds.ChunkID))
	return err
}

// UpsertResult (task_id, dataset_id) 冲突时覆盖，重跑不产生重复记录
func (r *EvalRepo) UpsertResult(ctx context.Context, res EvalResult) error {
	_, err := r.pool.Exec(ctx, `
insert into eval_result(task_id, dataset_id, model_answer, score, is_correct, judge_response)
values ($1,$2,$3,$4,$5,$6)
on conflict (task_id, dataset_id) do update
set model_answer = excluded.model_answer,
    score = excluded.score,
    is_correct = excluded.is_correct,
    judge_response = excluded.judge_response
`, res.TaskID, res.DatasetID, res.ModelAnswer, res.Score, res.IsCorrect, nullIfEmpty(res.JudgeResponse))
	return err
}

func (r *EvalRepo) ListResultsByTask(ctx context.Context, taskID string) ([]EvalResult, error) {
	rows, err := r.pool.Query(ctx, `
select task_id, dataset_id, coalesce(model_answer,''), score, is_correct, coalesce(judge_response,''), created_at
from eval_result
where task_id=$1
order by created_at asc
`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EvalResult
	for rows.Next() {
		var res EvalResult
		if err := rows.Scan(&res.TaskID, &res.DatasetID, &res.ModelAnswer, &res.Score, &res.IsCorrect, &res.JudgeResponse, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *EvalRepo) GetChunk(ctx context.Context, chunkID string) (*Chunk, error) {
	row := r.pool.QueryRow(ctx, `
select chunk_id, project_id, coalesce(name,''), content
from chunk
where chunk_id=$1
`, chunkID)

	var c Chunk
	if err := row.Scan(&c.ChunkID, &c.ProjectID, &c.Name, &c.Content); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChunkNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanDataset(row pgx.Row) (*EvalDataset, error) {
	var ds EvalDataset
	var qtype string
	var options json.RawMessage
	if err := row.Scan(&ds.DatasetID, &ds.ProjectID, &ds.Question, &qtype, &options, &ds.CorrectAnswer, &ds.Tags, &ds.ChunkID, &ds.CreatedAt); err != nil {
		return nil, err
	}
	ds.QuestionType = model.QuestionType(qtype)
	if len(options) > 0 {
		_ = json.Unmarshal(options, &ds.Options)
	}
	return &ds, nil
}
