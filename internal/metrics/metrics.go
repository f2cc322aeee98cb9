package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evalhub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 任务指标
	TasksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalhub_tasks_created_total",
			Help: "Total number of tasks created",
		},
		[]string{"task_type"},
	)

	TasksFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalhub_tasks_finished_total",
			Help: "Total number of tasks reaching a terminal status",
		},
		[]string{"task_type", "status"},
	)

	WorkUnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalhub_work_units_total",
			Help: "Work units processed inside background tasks",
		},
		[]string{"task_type", "result"},
	)

	// 模型调用指标
	ModelInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalhub_model_invocations_total",
			Help: "Total number of model invocations",
		},
		[]string{"provider", "model", "status"},
	)

	ModelInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evalhub_model_invocation_duration_seconds",
			Help:    "Model invocation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider", "model"},
	)

	ModelTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalhub_model_tokens_total",
			Help: "Tokens consumed by model invocations",
		},
		[]string{"provider", "model", "direction"},
	)

	// 判分指标
	QuestionsGradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalhub_questions_graded_total",
			Help: "Questions graded, by question type and correctness",
		},
		[]string{"question_type", "correct"},
	)

	// 盲测指标
	BlindRoundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalhub_blind_rounds_total",
			Help: "Blind test rounds executed / voted",
		},
		[]string{"stage"},
	)

	// 错误指标
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalhub_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "type"},
	)
)

// RecordHTTPRequest 记录 HTTP 请求
func RecordHTTPRequest(method, path string, status int, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTaskCreated 记录任务创建
func RecordTaskCreated(taskType string) {
	TasksCreatedTotal.WithLabelValues(taskType).Inc()
}

// RecordTaskFinished 记录任务到达终态
func RecordTaskFinished(taskType, status string) {
	TasksFinishedTotal.WithLabelValues(taskType, status).Inc()
}

// RecordWorkUnit 记录工作单元结果（ok/failed）
func RecordWorkUnit(taskType, result string) {
	WorkUnitsTotal.WithLabelValues(taskType, result).Inc()
}

// RecordModelInvocation 记录一次模型调用
func RecordModelInvocation(provider, model, status string, durationSeconds float64, inputTokens, outputTokens int) {
	ModelInvocationsTotal.WithLabelValues(provider, model, status).Inc()
	if durationSeconds > 0 {
		ModelInvocationDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	}
	if inputTokens > 0 {
		ModelTokensTotal.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		ModelTokensTotal.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}

// RecordQuestionGraded 记录一次判分
func RecordQuestionGraded(questionType string, correct bool) {
	c := "false"
	if correct {
		c = "true"
	}
	QuestionsGradedTotal.WithLabelValues(questionType, c).Inc()
}

// RecordBlindRound 记录盲测轮次（stage: run/vote）
func RecordBlindRound(stage string) {
	BlindRoundsTotal.WithLabelValues(stage).Inc()
}

// RecordError 记录错误
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// statusClass 将 HTTP 状态码转为类别
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
