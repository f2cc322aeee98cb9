package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/azhengyongqin/eval-hub/internal/cache"
	"github.com/azhengyongqin/eval-hub/internal/logger"
	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// Resolver 把 model_config_id 解析成可用的调用器
type Resolver interface {
	InvokerFor(ctx context.Context, modelConfigID string) (*Invoker, error)
}

// Registry Resolver 的默认实现：仓储查询 + Redis 缓存。
// 缓存不可用时直接回源，配置读取只会变慢不会失败。
type Registry struct {
	repo    repository.ModelConfigRepository
	cache   *cache.RedisCache
	ttl     time.Duration
	timeout time.Duration
	sink    UsageSink
}

// NewRegistry 创建模型注册表。cache 可为 nil（不启用缓存）。
func NewRegistry(repo repository.ModelConfigRepository, c *cache.RedisCache, cacheTTL, requestTimeout time.Duration, sink UsageSink) *Registry {
	return &Registry{
		repo:    repo,
		cache:   c,
		ttl:     cacheTTL,
		timeout: requestTimeout,
		sink:    sink,
	}
}

// cachedModelConfig 缓存条目。ModelConfig 对外序列化时隐藏 api_key，
// 缓存里必须带上，否则命中缓存的调用器拿不到凭证。
type cachedModelConfig struct {
	ModelConfigID string  `json:"model_config_id"`
	ProviderID    string  `json:"provider_id"`
	Endpoint      string  `json:"endpoint"`
	APIKey        string  `json:"api_key"`
	ModelName     string  `json:"model_name"`
	Temperature   float32 `json:"temperature"`
	TopP          float32 `json:"top_p"`
	TopK          int     `json:"top_k"`
	MaxTokens     int     `json:"max_tokens"`
}

func toCached(mc repository.ModelConfig) cachedModelConfig {
	return cachedModelConfig(mc)
}

func fromCached(c cachedModelConfig) repository.ModelConfig {
	return repository.ModelConfig(c)
}

// Resolve 获取模型配置，优先走缓存
func (r *Registry) Resolve(ctx context.Context, modelConfigID string) (*repository.ModelConfig, error) {
	if modelConfigID == "" {
		return nil, errors.New("model_config_id 不能为空")
	}

	key := cache.CacheKey("model_config", modelConfigID)
	if r.cache != nil {
		var c cachedModelConfig
		err := r.cache.Get(ctx, key, &c)
		if err == nil {
			mc := fromCached(c)
			return &mc, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Str("model_config_id", modelConfigID).Err(err).Msg("模型配置缓存读取失败，回源查询")
		}
	}

	mc, err := r.repo.GetModelConfig(ctx, modelConfigID)
	if err != nil {
		return nil, fmt.Errorf("resolve model config %s: %w", modelConfigID, err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, toCached(*mc), r.ttl); err != nil {
			logger.Warn().Str("model_config_id", modelConfigID).Err(err).Msg("模型配置缓存写入失败")
		}
	}
	return mc, nil
}

// InvokerFor 解析配置并构造调用器
func (r *Registry) InvokerFor(ctx context.Context, modelConfigID string) (*Invoker, error) {
	mc, err := r.Resolve(ctx, modelConfigID)
	if err != nil {
		return nil, err
	}
	return NewInvoker(*mc, r.timeout, r.sink), nil
}
