package healthcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	asynqx "github.com/azhengyongqin/eval-hub/internal/queue"
)

// HealthChecker 健康检查器
type HealthChecker struct {
	pgPool   *pgxpool.Pool
	redisOpt asynq.RedisConnOpt
	hasQueue bool
}

// NewHealthChecker 创建健康检查器。redisOpt 为 nil 时跳过队列检查。
func NewHealthChecker(pgPool *pgxpool.Pool, redisOpt asynq.RedisConnOpt) *HealthChecker {
	return &HealthChecker{
		pgPool:   pgPool,
		redisOpt: redisOpt,
		hasQueue: redisOpt != nil,
	}
}

// CheckResult 健康检查结果
type CheckResult struct {
	Status string            `json:"status"` // "ok" or "error"
	Checks map[string]string `json:"checks"`
}

// LivenessCheck 存活检查（快速返回，不检查依赖）
func (h *HealthChecker) LivenessCheck() CheckResult {
	return CheckResult{
		Status: "ok",
		Checks: map[string]string{
			"service": "running",
		},
	}
}

// ReadinessCheck 就绪检查：存储和任务队列都可用才算就绪
func (h *HealthChecker) ReadinessCheck(ctx context.Context) CheckResult {
	result := CheckResult{
		Checks: make(map[string]string),
	}

	if h.pgPool != nil {
		if err := h.checkPostgres(ctx); err != nil {
			result.Checks["postgres"] = "error: " + err.Error()
			result.Status = "error"
		} else {
			result.Checks["postgres"] = "ok"
		}
	}

	if h.hasQueue {
		if depth, err := h.checkQueue(); err != nil {
			result.Checks["queue"] = "error: " + err.Error()
			result.Status = "error"
		} else {
			result.Checks["queue"] = fmt.Sprintf("ok (pending=%d)", depth)
		}
	}

	if result.Status == "" {
		result.Status = "ok"
	}

	return result
}

// checkPostgres 检查 PostgreSQL 连接
func (h *HealthChecker) checkPostgres(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return h.pgPool.Ping(ctx)
}

// checkQueue 检查任务队列可达，并顺带读一下积压深度
func (h *HealthChecker) checkQueue() (int, error) {
	inspector := asynq.NewInspector(h.redisOpt)
	defer inspector.Close()

	info, err := inspector.GetQueueInfo(asynqx.QueueDefault)
	if err != nil {
		// 队列还没有任何消息时 asynq 报队列不存在，这不算故障
		if _, qerr := inspector.Queues(); qerr == nil {
			return 0, nil
		}
		return 0, err
	}
	return info.Pending, nil
}
