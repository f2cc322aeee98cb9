package dto

// CreateBlindTestRequest 创建盲测任务请求
type CreateBlindTestRequest struct {
	ProjectID   string   `json:"project_id" binding:"required" example:"proj_1"`
	ModelAID    string   `json:"model_a_id" binding:"required" example:"mc-a"`
	ModelBID    string   `json:"model_b_id" binding:"required" example:"mc-b"`
	QuestionIDs []string `json:"question_ids" binding:"required"`
	Language    string   `json:"language" example:"zh"`
}

// VoteRequest 盲测投票请求
type VoteRequest struct {
	Vote string `json:"vote" binding:"required" example:"left"` // left, right, both_good, both_bad
}
