package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// 调用失败的分类，决定用量日志与指标里的 status 标签
const (
	KindAuth     = "auth"
	KindTimeout  = "timeout"
	KindUpstream = "upstream"
)

// ProviderError 一次模型调用的失败信息
type ProviderError struct {
	StatusCode int
	Kind       string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("model invocation failed (%s, http %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model invocation failed (%s): %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// classify 把底层 SDK 错误归为稳定分类
func classify(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		kind := KindUpstream
		if apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden {
			kind = KindAuth
		}
		return &ProviderError{
			StatusCode: apiErr.HTTPStatusCode,
			Kind:       kind,
			Message:    apiErr.Message,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		kind := KindUpstream
		if reqErr.HTTPStatusCode == http.StatusUnauthorized || reqErr.HTTPStatusCode == http.StatusForbidden {
			kind = KindAuth
		}
		return &ProviderError{
			StatusCode: reqErr.HTTPStatusCode,
			Kind:       kind,
			Message:    reqErr.Error(),
			Err:        err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ProviderError{Kind: KindTimeout, Message: err.Error(), Err: err}
	}

	return &ProviderError{Kind: KindUpstream, Message: err.Error(), Err: err}
}
