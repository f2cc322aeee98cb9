package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvaluationDetail(t *testing.T) {
	d := DecodeEvaluationDetail(json.RawMessage(`{"dataset_ids":["d1","d2"],"judge_model_id":"mc-judge"}`))
	assert.Equal(t, []string{"d1", "d2"}, d.DatasetIDs)
	assert.Equal(t, "mc-judge", d.JudgeModelID)
}

func TestDecodeFallsBackToZeroValue(t *testing.T) {
	// 读路径对坏数据保持韧性：解码失败一律回退为空载荷
	assert.Empty(t, DecodeEvaluationDetail(json.RawMessage(`{"dataset_ids":[`)).DatasetIDs)
	assert.Empty(t, DecodeEvaluationDetail(nil).DatasetIDs)
	assert.Empty(t, DecodeGenerationDetail(json.RawMessage(`not json`)).ChunkIDs)
	assert.Empty(t, DecodeBlindTestDetail(json.RawMessage(`[1,2]`)).QuestionIDs)
	assert.Empty(t, DecodeEvalModelInfo(json.RawMessage(`"x"`)).ModelConfigID)
	assert.Empty(t, DecodeBlindModelInfo(nil).ModelAID)
}

func TestEncodeDecodeBlindTestDetail(t *testing.T) {
	in := BlindTestDetail{
		QuestionIDs:  []string{"q1", "q2"},
		CurrentIndex: 1,
		Results: []RoundResult{
			{QuestionID: "q1", Vote: VoteLeft, IsSwapped: true, ModelAScore: 0, ModelBScore: 1},
		},
	}

	out := DecodeBlindTestDetail(EncodeDetail(in))
	require.Len(t, out.Results, 1)
	assert.Equal(t, in.QuestionIDs, out.QuestionIDs)
	assert.Equal(t, 1, out.CurrentIndex)
	assert.True(t, out.Results[0].IsSwapped)
	assert.Equal(t, VoteLeft, out.Results[0].Vote)
}

func TestBlindTestDetailTotalScores(t *testing.T) {
	d := BlindTestDetail{
		Results: []RoundResult{
			{ModelAScore: 1, ModelBScore: 0},
			{ModelAScore: 0.5, ModelBScore: 0.5},
			{ModelAScore: 0, ModelBScore: 0},
		},
	}
	a, b := d.TotalScores()
	assert.Equal(t, 1.5, a)
	assert.Equal(t, 0.5, b)
}

func TestQuestionTypeTraits(t *testing.T) {
	assert.True(t, QuestionSingleChoice.HasOptions())
	assert.True(t, QuestionMultipleChoice.HasOptions())
	assert.False(t, QuestionTrueFalse.HasOptions())

	assert.True(t, QuestionShortAnswer.NeedsJudge())
	assert.True(t, QuestionOpenEnded.NeedsJudge())
	assert.False(t, QuestionSingleChoice.NeedsJudge())

	assert.True(t, QuestionTrueFalse.Valid())
	assert.False(t, QuestionType("essay").Valid())
}

func TestVoteValid(t *testing.T) {
	assert.True(t, VoteLeft.Valid())
	assert.True(t, VoteBothBad.Valid())
	assert.False(t, Vote("abstain").Valid())
	assert.False(t, Vote("").Valid())
}
