package model

// TaskStatus 统一任务状态枚举（用于 API/PG/前端筛选）。
// 约定：
// - 0 processing: 后台例程正在推进
// - 1 completed: 正常完成
// - 2 failed: 编排层错误导致整体失败（单个工作单元失败不算）
// - 3 interrupted: 外部中断请求生效
//
// 状态只允许从 processing 迁出；三个终态互斥且不可再迁移。
type TaskStatus int

const (
	TaskStatusProcessing  TaskStatus = 0
	TaskStatusCompleted   TaskStatus = 1
	TaskStatusFailed      TaskStatus = 2
	TaskStatusInterrupted TaskStatus = 3
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed, TaskStatusInterrupted:
		return true
	default:
		return false
	}
}

// Terminal 是否为终态（endTime 当且仅当终态被打上）
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusInterrupted
}

// CanTransitionTo 校验状态迁移：仅允许 processing -> 终态
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	return s == TaskStatusProcessing && next.Terminal()
}

func (s TaskStatus) String() string {
	switch s {
	case TaskStatusProcessing:
		return "processing"
	case TaskStatusCompleted:
		return "completed"
	case TaskStatusFailed:
		return "failed"
	case TaskStatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// TaskType 任务类型标签，detail/model_info 的 schema 由它决定
const (
	TaskTypeEvaluation = "evaluation"
	TaskTypeGeneration = "dataset-generation"
	TaskTypeBlindTest  = "blind-test"
)

func ValidTaskType(t string) bool {
	switch t {
	case TaskTypeEvaluation, TaskTypeGeneration, TaskTypeBlindTest:
		return true
	default:
		return false
	}
}
