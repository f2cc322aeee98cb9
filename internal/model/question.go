package model

// QuestionType 评估题型
type QuestionType string

const (
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionOpenEnded      QuestionType = "open_ended"
)

func (q QuestionType) Valid() bool {
	switch q {
	case QuestionTrueFalse, QuestionSingleChoice, QuestionMultipleChoice,
		QuestionShortAnswer, QuestionOpenEnded:
		return true
	default:
		return false
	}
}

// HasOptions 选择类题型带 options 列表
func (q QuestionType) HasOptions() bool {
	return q == QuestionSingleChoice || q == QuestionMultipleChoice
}

// NeedsJudge 主观题由裁判模型打分，客观题走确定性判分
func (q QuestionType) NeedsJudge() bool {
	return q == QuestionShortAnswer || q == QuestionOpenEnded
}

// Vote 盲测投票选项
type Vote string

const (
	VoteLeft     Vote = "left"
	VoteRight    Vote = "right"
	VoteBothGood Vote = "both_good"
	VoteBothBad  Vote = "both_bad"
)

func (v Vote) Valid() bool {
	switch v {
	case VoteLeft, VoteRight, VoteBothGood, VoteBothBad:
		return true
	default:
		return false
	}
}
