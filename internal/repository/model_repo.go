package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ModelRepo 模型配置与用量日志的 pgx 实现
type ModelRepo struct {
	pool *pgxpool.Pool
}

func NewModelRepo(pool *pgxpool.Pool) *ModelRepo {
	return &ModelRepo{pool: pool}
}

var (
	_ ModelConfigRepository = (*ModelRepo)(nil)
	_ UsageLogRepository    = (*ModelRepo)(nil)
)

// ErrModelConfigNotFound 查询不到指定 model_config_id
var ErrModelConfigNotFound = errors.New("model config not found")

func (r *ModelRepo) GetModelConfig(ctx context.Context, modelConfigID string) (*ModelConfig, error) {
	row := r.pool.QueryRow(ctx, `
select model_config_id, provider_id, endpoint, coalesce(api_key,''), model_name, temperature, top_p, top_k, max_tokens
from model_config
where model_config_id=$1
`, modelConfigID)

	var mc ModelConfig
	if err := row.Scan(&mc.ModelConfigID, &mc.ProviderID, &mc.Endpoint, &mc.APIKey, &mc.ModelName, &mc.Temperature, &mc.TopP, &mc.TopK, &mc.MaxTokens); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrModelConfigNotFound
		}
		return nil, err
	}
	return &mc, nil
}

func (r *ModelRepo) InsertUsageLog(ctx context.Context, l UsageLog) error {
	_, err := r.pool.Exec(ctx, `
insert into model_usage_log(provider_id, model_name, input_tokens, output_tokens, duration_ms, status)
values ($1,$2,$3,$4,$5,$6)
`, l.ProviderID, l.ModelName, l.InputTokens, l.OutputTokens, l.DurationMs, l.Status)
	return err
}
