package grader

import (
	"github.com/azhengyongqin/eval-hub/internal/model"
	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// TypeStats 单一题型的统计
type TypeStats struct {
	Total        int     `json:"total"`
	CorrectCount int     `json:"correct_count"`
	TotalScore   float64 `json:"total_score"`
	Accuracy     float64 `json:"accuracy"`
}

// TaskStats 一个评估任务的汇总统计
type TaskStats struct {
	TotalQuestions int                  `json:"total_questions"`
	TotalScore     float64              `json:"total_score"`
	CorrectCount   int                  `json:"correct_count"`
	Accuracy       float64              `json:"accuracy"`
	ByType         map[string]TypeStats `json:"by_type"`
}

// ComputeStats 汇总判分结果。typeByDataset 把 dataset_id 映射到题型，
// 查不到题型的结果归入 unknown 桶而不是丢弃。
func ComputeStats(results []repository.EvalResult, typeByDataset map[string]model.QuestionType) TaskStats {
	stats := TaskStats{ByType: make(map[string]TypeStats)}

	for _, r := range results {
		stats.TotalQuestions++
		stats.TotalScore += r.Score
		if r.IsCorrect {
			stats.CorrectCount++
		}

		qtype := "unknown"
		if t, ok := typeByDataset[r.DatasetID]; ok {
			qtype = string(t)
		}
		ts := stats.ByType[qtype]
		ts.Total++
		ts.TotalScore += r.Score
		if r.IsCorrect {
			ts.CorrectCount++
		}
		stats.ByType[qtype] = ts
	}

	if stats.TotalQuestions > 0 {
		stats.Accuracy = float64(stats.CorrectCount) / float64(stats.TotalQuestions) * 100
	}
	for k, ts := range stats.ByType {
		if ts.Total > 0 {
			ts.Accuracy = float64(ts.CorrectCount) / float64(ts.Total) * 100
			stats.ByType[k] = ts
		}
	}
	return stats
}
