package asynqx

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Client asynq 客户端封装
type Client struct {
	*asynq.Client
}

func NewClient(opt asynq.RedisConnOpt) *Client {
	return &Client{Client: asynq.NewClient(opt)}
}

// EnqueueTask 把一个已持久化的任务交给后台执行
func (c *Client) EnqueueTask(ctx context.Context, taskType, taskID string) error {
	t, err := NewAsynqTask(taskType, taskID)
	if err != nil {
		return err
	}
	if _, err := c.EnqueueContext(ctx, t, EnqueueOptions(taskID)...); err != nil {
		return fmt.Errorf("enqueue %s %s: %w", taskType, taskID, err)
	}
	return nil
}
