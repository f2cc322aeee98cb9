package asynqx

import "github.com/hibiken/asynq"

// NewRedisConnOpt 构造 asynq 的 Redis 连接参数
func NewRedisConnOpt(addr, password string, db int) asynq.RedisConnOpt {
	return asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
}
