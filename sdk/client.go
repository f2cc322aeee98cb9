package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client HTTP 客户端，用于与评估服务通信
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient 创建客户端
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateEvaluationTask 创建评估任务
func (c *Client) CreateEvaluationTask(ctx context.Context, req CreateEvaluationRequest) (*Task, error) {
	modelInfo, err := json.Marshal(map[string]string{"model_config_id": req.ModelConfigID})
	if err != nil {
		return nil, fmt.Errorf("marshal model_info: %w", err)
	}
	detail, err := json.Marshal(map[string]interface{}{
		"dataset_ids":    req.DatasetIDs,
		"judge_model_id": req.JudgeModelID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal detail: %w", err)
	}

	return c.createTask(ctx, createTaskRequest{
		ProjectID: req.ProjectID,
		TaskType:  "evaluation",
		Language:  req.Language,
		ModelInfo: modelInfo,
		Detail:    detail,
	})
}

// CreateGenerationTask 创建数据集生成任务
func (c *Client) CreateGenerationTask(ctx context.Context, req CreateGenerationRequest) (*Task, error) {
	modelInfo, err := json.Marshal(map[string]string{"model_config_id": req.ModelConfigID})
	if err != nil {
		return nil, fmt.Errorf("marshal model_info: %w", err)
	}
	detail, err := json.Marshal(map[string]interface{}{
		"chunk_ids":           req.ChunkIDs,
		"questions_per_chunk": req.QuestionsPerChunk,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal detail: %w", err)
	}

	return c.createTask(ctx, createTaskRequest{
		ProjectID: req.ProjectID,
		TaskType:  "dataset-generation",
		Language:  req.Language,
		ModelInfo: modelInfo,
		Detail:    detail,
	})
}

func (c *Client) createTask(ctx context.Context, req createTaskRequest) (*Task, error) {
	var task Task
	if err := c.postJSON(ctx, "/api/v1/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask 查询任务详情（轮询入口）
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := c.getJSON(ctx, "/api/v1/tasks/"+url.PathEscape(taskID), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks 按条件分页查询任务
func (c *Client) ListTasks(ctx context.Context, filter ListTasksFilter) (*TaskList, error) {
	q := url.Values{}
	if filter.ProjectID != "" {
		q.Set("project_id", filter.ProjectID)
	}
	if filter.TaskType != "" {
		q.Set("task_type", filter.TaskType)
	}
	if filter.Status != nil {
		q.Set("status", strconv.Itoa(*filter.Status))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	path := "/api/v1/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list TaskList
	if err := c.getJSON(ctx, path, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetTaskResults 查询评估任务的逐题判分结果与汇总统计
func (c *Client) GetTaskResults(ctx context.Context, taskID string) (*TaskResults, error) {
	var results TaskResults
	if err := c.getJSON(ctx, "/api/v1/tasks/"+url.PathEscape(taskID)+"/results", &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// InterruptTask 请求中断任务，后台例程在下一个检查点停止
func (c *Client) InterruptTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := c.postJSON(ctx, "/api/v1/tasks/"+url.PathEscape(taskID)+"/interrupt", nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateBlindTest 创建盲测任务
func (c *Client) CreateBlindTest(ctx context.Context, req CreateBlindTestRequest) (*Task, error) {
	var task Task
	if err := c.postJSON(ctx, "/api/v1/blindtests", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetCurrentRound 获取（并在需要时执行）当前盲测轮次
func (c *Client) GetCurrentRound(ctx context.Context, taskID string) (*Round, error) {
	var round Round
	if err := c.getJSON(ctx, "/api/v1/blindtests/"+url.PathEscape(taskID)+"/current", &round); err != nil {
		return nil, err
	}
	return &round, nil
}

// SubmitVote 对当前轮次投票
func (c *Client) SubmitVote(ctx context.Context, taskID, vote string) (*VoteOutcome, error) {
	var outcome VoteOutcome
	req := map[string]string{"vote": vote}
	if err := c.postJSON(ctx, "/api/v1/blindtests/"+url.PathEscape(taskID)+"/vote", req, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// APIError 服务端返回的非 200 响应
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}
