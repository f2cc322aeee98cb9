package sdk

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetryConfig 请求重试配置
type RetryConfig struct {
	MaxRetries     int           // 最大重试次数，默认 3
	InitialBackoff time.Duration // 初始退避时间，默认 1秒
	MaxBackoff     time.Duration // 最大退避时间，默认 30秒
	BackoffFactor  float64       // 退避因子，默认 2.0（指数退避）
}

// DefaultRetryConfig 默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// GetTaskWithRetry 带重试的任务查询。只对传输层错误和 5xx 重试，
// 4xx 视为确定性失败立即返回。
func GetTaskWithRetry(ctx context.Context, client *Client, taskID string, config RetryConfig) (*Task, error) {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}

			backoff = time.Duration(float64(backoff) * config.BackoffFactor)
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}

		task, err := client.GetTask(ctx, taskID)
		if err == nil {
			return task, nil
		}
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode < 500 {
			return nil, err
		}

		lastErr = err
		log.Printf("[sdk-retry] 查询任务失败 (尝试 %d/%d): %v", attempt+1, config.MaxRetries+1, err)
	}

	return nil, fmt.Errorf("查询任务失败，已达最大重试次数: %w", lastErr)
}

// WaitForTerminal 轮询任务直到进入终态或 ctx 取消
func WaitForTerminal(ctx context.Context, client *Client, taskID string, interval time.Duration) (*Task, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		task, err := GetTaskWithRetry(ctx, client, taskID, DefaultRetryConfig())
		if err != nil {
			return nil, err
		}
		if task.Terminal() {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
