package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEvaluationTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/tasks", r.URL.Path)

		var req createTaskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "evaluation", req.TaskType)
		assert.Equal(t, "proj_1", req.ProjectID)

		var detail map[string]interface{}
		require.NoError(t, json.Unmarshal(req.Detail, &detail))
		assert.Len(t, detail["dataset_ids"], 2)

		json.NewEncoder(w).Encode(Task{TaskID: "t1", Status: StatusProcessing, TotalCount: 2})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	task, err := client.CreateEvaluationTask(context.Background(), CreateEvaluationRequest{
		ProjectID:     "proj_1",
		ModelConfigID: "mc-1",
		DatasetIDs:    []string{"d1", "d2"},
		JudgeModelID:  "mc-judge",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", task.TaskID)
	assert.Equal(t, 2, task.TotalCount)
}

func TestGetTaskAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "task missing not found"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.GetTask(context.Background(), "missing")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "not found")
}

func TestListTasksQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "proj_1", r.URL.Query().Get("project_id"))
		assert.Equal(t, "1", r.URL.Query().Get("status"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(TaskList{Items: []Task{{TaskID: "t1"}}, Total: 1})
	}))
	defer srv.Close()

	status := StatusCompleted
	client := NewClient(srv.URL)
	list, err := client.ListTasks(context.Background(), ListTasksFilter{
		ProjectID: "proj_1",
		Status:    &status,
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "t1", list.Items[0].TaskID)
}

func TestSubmitVote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/blindtests/bt-1/vote", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, VoteBothGood, req["vote"])

		json.NewEncoder(w).Encode(VoteOutcome{CurrentIndex: 1, Total: 3, ModelAScore: 0.5, ModelBScore: 0.5})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	outcome, err := client.SubmitVote(context.Background(), "bt-1", VoteBothGood)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.CurrentIndex)
	assert.Equal(t, 0.5, outcome.ModelAScore)
}

func TestWaitForTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		task := Task{TaskID: "t1", Status: StatusProcessing}
		if n >= 3 {
			task.Status = StatusCompleted
		}
		json.NewEncoder(w).Encode(task)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewClient(srv.URL)
	task, err := WaitForTerminal(ctx, client, "t1", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}

func TestGetTaskWithRetryStopsOn4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := GetTaskWithRetry(context.Background(), client, "missing", DefaultRetryConfig())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
