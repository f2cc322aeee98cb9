package model

import (
	"encoding/json"
	"time"
)

// detail/model_info 在存储层是 jsonb，这里按 task_type 解码为带类型的载荷。
// 解码失败统一回退为零值（displayed-as-empty），读路径对半写入的记录保持韧性；
// 需要严格校验的写路径自行判断零值。

// EvaluationDetail 批量评估任务的载荷
type EvaluationDetail struct {
	DatasetIDs   []string `json:"dataset_ids"`
	JudgeModelID string   `json:"judge_model_id"`
}

// GenerationDetail 数据集生成任务的载荷
type GenerationDetail struct {
	ChunkIDs          []string `json:"chunk_ids"`
	QuestionsPerChunk int      `json:"questions_per_chunk"`
}

// BlindTestDetail 盲测任务的载荷。
// 不变式：每记录一票 CurrentIndex 恰好 +1；
// CurrentIndex == len(QuestionIDs) 时任务转为 completed。
type BlindTestDetail struct {
	QuestionIDs  []string      `json:"question_ids"`
	CurrentIndex int           `json:"current_index"`
	Results      []RoundResult `json:"results"`
}

// RoundResult 一轮盲测的投票结果。
// IsSwapped 记录该轮的匿名化布尔：true 表示模型 B 的回答展示在左侧。
// 历史只能从 Results 恢复，无法由 QuestionIDs+CurrentIndex 重算（每轮随机数独立）。
type RoundResult struct {
	QuestionID  string    `json:"question_id"`
	Vote        Vote      `json:"vote"`
	IsSwapped   bool      `json:"is_swapped"`
	ModelAScore float64   `json:"model_a_score"`
	ModelBScore float64   `json:"model_b_score"`
	LeftAnswer  string    `json:"left_answer"`
	RightAnswer string    `json:"right_answer"`
	Timestamp   time.Time `json:"timestamp"`
}

// TotalScores 汇总两个物理模型的累计得分
func (d BlindTestDetail) TotalScores() (scoreA, scoreB float64) {
	for _, r := range d.Results {
		scoreA += r.ModelAScore
		scoreB += r.ModelBScore
	}
	return scoreA, scoreB
}

// EvalModelInfo 评估/生成任务的模型引用
type EvalModelInfo struct {
	ModelConfigID string `json:"model_config_id"`
}

// BlindModelInfo 盲测任务的模型对引用
type BlindModelInfo struct {
	ModelAID string `json:"model_a_id"`
	ModelBID string `json:"model_b_id"`
}

// DecodeEvaluationDetail 解码评估载荷，坏数据回退为空
func DecodeEvaluationDetail(raw json.RawMessage) EvaluationDetail {
	var d EvaluationDetail
	if len(raw) == 0 || json.Unmarshal(raw, &d) != nil {
		return EvaluationDetail{}
	}
	return d
}

// DecodeGenerationDetail 解码生成载荷，坏数据回退为空
func DecodeGenerationDetail(raw json.RawMessage) GenerationDetail {
	var d GenerationDetail
	if len(raw) == 0 || json.Unmarshal(raw, &d) != nil {
		return GenerationDetail{}
	}
	return d
}

// DecodeBlindTestDetail 解码盲测载荷，坏数据回退为空
func DecodeBlindTestDetail(raw json.RawMessage) BlindTestDetail {
	var d BlindTestDetail
	if len(raw) == 0 || json.Unmarshal(raw, &d) != nil {
		return BlindTestDetail{}
	}
	return d
}

// DecodeEvalModelInfo 解码模型引用，坏数据回退为空
func DecodeEvalModelInfo(raw json.RawMessage) EvalModelInfo {
	var m EvalModelInfo
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return EvalModelInfo{}
	}
	return m
}

// DecodeBlindModelInfo 解码盲测模型对引用，坏数据回退为空
func DecodeBlindModelInfo(raw json.RawMessage) BlindModelInfo {
	var m BlindModelInfo
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return BlindModelInfo{}
	}
	return m
}

// EncodeDetail 序列化任意 detail 载荷（写路径）
func EncodeDetail(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}
