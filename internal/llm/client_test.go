package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azhengyongqin/eval-hub/internal/repository"
)

func testConfig(endpoint string) repository.ModelConfig {
	return repository.ModelConfig{
		ModelConfigID: "mc-test",
		ProviderID:    "test-provider",
		Endpoint:      endpoint,
		APIKey:        "sk-test",
		ModelName:     "test-model",
		Temperature:   0.7,
		MaxTokens:     256,
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "你好"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`)
	}))
	defer srv.Close()

	iv := NewInvoker(testConfig(srv.URL+"/v1"), 10*time.Second, NopSink{})
	res, err := iv.Chat(context.Background(), "你是测试助手", "打个招呼")
	require.NoError(t, err)
	assert.Equal(t, "你好", res.Text)
	assert.Equal(t, 12, res.Usage.InputTokens)
	assert.Equal(t, 3, res.Usage.OutputTokens)
}

func TestChatAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	iv := NewInvoker(testConfig(srv.URL+"/v1"), 10*time.Second, NopSink{})
	_, err := iv.Chat(context.Background(), "", "hello")
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindAuth, perr.Kind)
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
}

func TestChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		chunks := []string{
			`{"id":"1","object":"chat.completion.chunk","model":"test-model","choices":[{"index":0,"delta":{"content":"答案"}}]}`,
			`{"id":"1","object":"chat.completion.chunk","model":"test-model","choices":[{"index":0,"delta":{"content":"是 A"}}]}`,
			`{"id":"1","object":"chat.completion.chunk","model":"test-model","choices":[],"usage":{"prompt_tokens":8,"completion_tokens":4,"total_tokens":12}}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	iv := NewInvoker(testConfig(srv.URL+"/v1"), 10*time.Second, NopSink{})

	var deltas []string
	res, err := iv.ChatStream(context.Background(), "", "问题", func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)
	assert.Equal(t, "答案是 A", res.Text)
	assert.Equal(t, []string{"答案", "是 A"}, deltas)
	assert.Equal(t, 8, res.Usage.InputTokens)
	assert.Equal(t, 4, res.Usage.OutputTokens)
}

func TestChatStreamKeepsPartialTextOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 声明的长度大于实际写入，客户端读到一半会收到 unexpected EOF
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Content-Length", "4096")
		fmt.Fprint(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"model\":\"test-model\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"部分回答\"}}]}\n\n")
		w.(http.Flusher).Flush()
	}))
	defer srv.Close()

	iv := NewInvoker(testConfig(srv.URL+"/v1"), 10*time.Second, NopSink{})
	res, err := iv.ChatStream(context.Background(), "", "问题", nil)
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindUpstream, perr.Kind)

	// 已累积的部分文本随错误一起返回
	require.NotNil(t, res)
	assert.Equal(t, "部分回答", res.Text)
}

func TestClassifyTimeout(t *testing.T) {
	perr := classify(context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, perr.Kind)
}
