package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/azhengyongqin/eval-hub/internal/metrics"
	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// Usage 一次调用的 token 消耗
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatResult 一次 chat 调用的结果
type ChatResult struct {
	Text       string `json:"text"`
	Usage      Usage  `json:"usage"`
	DurationMs int64  `json:"duration_ms"`
}

// Invoker 单个模型端点的调用器。不做重试，失败原样上抛给调用方定夺。
type Invoker struct {
	client     *openai.Client
	providerID string
	modelName  string
	params     repository.ModelConfig
	timeout    time.Duration
	sink       UsageSink
}

// NewInvoker 按模型配置创建调用器（OpenAI 兼容端点）
func NewInvoker(cfg repository.ModelConfig, timeout time.Duration, sink UsageSink) *Invoker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Invoker{
		client:     openai.NewClientWithConfig(clientCfg),
		providerID: cfg.ProviderID,
		modelName:  cfg.ModelName,
		params:     cfg,
		timeout:    timeout,
		sink:       sink,
	}
}

// ProviderID 返回提供方标识
func (iv *Invoker) ProviderID() string { return iv.providerID }

// ModelName 返回模型名
func (iv *Invoker) ModelName() string { return iv.modelName }

// Chat 非流式调用。system 为空时只发送用户消息。
func (iv *Invoker) Chat(ctx context.Context, system, user string) (*ChatResult, error) {
	ctx, cancel := context.WithTimeout(ctx, iv.timeout)
	defer cancel()

	start := time.Now()
	resp, err := iv.client.CreateChatCompletion(ctx, iv.buildRequest(system, user, false))
	elapsed := time.Since(start)

	if err != nil {
		perr := classify(err)
		iv.record("error:"+perr.Kind, 0, 0, elapsed)
		return nil, perr
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	iv.record("ok", resp.Usage.PromptTokens, resp.Usage.CompletionTokens, elapsed)

	return &ChatResult{
		Text: text,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		DurationMs: elapsed.Milliseconds(),
	}, nil
}

// ChatStream 流式调用。onDelta 对每个增量片段回调一次（可为 nil）。
// 中途失败时返回已经累积的部分文本和错误，由调用方决定是否采用。
func (iv *Invoker) ChatStream(ctx context.Context, system, user string, onDelta func(delta string)) (*ChatResult, error) {
	ctx, cancel := context.WithTimeout(ctx, iv.timeout)
	defer cancel()

	start := time.Now()
	stream, err := iv.client.CreateChatCompletionStream(ctx, iv.buildRequest(system, user, true))
	if err != nil {
		elapsed := time.Since(start)
		perr := classify(err)
		iv.record("error:"+perr.Kind, 0, 0, elapsed)
		return nil, perr
	}
	defer stream.Close()

	var sb strings.Builder
	var usage Usage
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			elapsed := time.Since(start)
			perr := classify(err)
			iv.record("error:"+perr.Kind, usage.InputTokens, usage.OutputTokens, elapsed)
			return &ChatResult{
				Text:       sb.String(),
				Usage:      usage,
				DurationMs: elapsed.Milliseconds(),
			}, perr
		}
		if chunk.Usage != nil {
			usage.InputTokens = chunk.Usage.PromptTokens
			usage.OutputTokens = chunk.Usage.CompletionTokens
		}
		if len(chunk.Choices) > 0 {
			delta := chunk.Choices[0].Delta.Content
			if delta != "" {
				sb.WriteString(delta)
				if onDelta != nil {
					onDelta(delta)
				}
			}
		}
	}

	elapsed := time.Since(start)
	iv.record("ok", usage.InputTokens, usage.OutputTokens, elapsed)

	return &ChatResult{
		Text:       sb.String(),
		Usage:      usage,
		DurationMs: elapsed.Milliseconds(),
	}, nil
}

func (iv *Invoker) buildRequest(system, user string, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	req := openai.ChatCompletionRequest{
		Model:       iv.modelName,
		Messages:    msgs,
		Temperature: iv.params.Temperature,
		TopP:        iv.params.TopP,
		MaxTokens:   iv.params.MaxTokens,
	}
	if stream {
		req.Stream = true
		req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return req
}

// record 每次调用无论成败都记指标和用量
func (iv *Invoker) record(status string, inputTokens, outputTokens int, elapsed time.Duration) {
	metrics.RecordModelInvocation(iv.providerID, iv.modelName, status, elapsed.Seconds(), inputTokens, outputTokens)
	iv.sink.Record(repository.UsageLog{
		ProviderID:   iv.providerID,
		ModelName:    iv.modelName,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		DurationMs:   elapsed.Milliseconds(),
		Status:       status,
	})
}
