package llm

import (
	"context"
	"time"

	"github.com/azhengyongqin/eval-hub/internal/logger"
	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// UsageSink 用量记录出口。记录失败只影响账目，不影响调用方。
type UsageSink interface {
	Record(l repository.UsageLog)
}

// RepoSink 把用量异步写入仓储，写库失败只打日志
type RepoSink struct {
	repo repository.UsageLogRepository
}

func NewRepoSink(repo repository.UsageLogRepository) *RepoSink {
	return &RepoSink{repo: repo}
}

func (s *RepoSink) Record(l repository.UsageLog) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.repo.InsertUsageLog(ctx, l); err != nil {
			logger.Warn().
				Str("provider", l.ProviderID).
				Str("model", l.ModelName).
				Err(err).
				Msg("写入模型用量日志失败")
		}
	}()
}

// NopSink 丢弃所有用量记录（测试用）
type NopSink struct{}

func (NopSink) Record(repository.UsageLog) {}
