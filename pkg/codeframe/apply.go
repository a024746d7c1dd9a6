package codeframe

import "github.com/google/uuid"

// ApplyItem is one answer under consideration for automatic coding.
type ApplyItem struct {
	AnswerId      uuid.UUID
	HasCode       bool // answer was coded before; never overwritten
	InOutlier     bool
	ClusterFailed bool
	CodeId        uuid.UUID
	CodeName      string
	Confidence    float64
}

type Assignment struct {
	AnswerId uuid.UUID
	CodeId   uuid.UUID
	CodeName string
}

type ApplyResult struct {
	Assignments  []Assignment
	NeedsReview  int
	AlreadyCoded int
}

// GateAssignments decides which answers get their cluster's code. An answer
// that already has a code is never touched. Outlier-bucket answers, answers
// whose cluster failed generation, and answers below the confidence
// threshold are left for review.
func GateAssignments(items []ApplyItem, threshold float64) *ApplyResult {
	res := &ApplyResult{}
	for _, it := range items {
		if it.HasCode {
			res.AlreadyCoded++
			continue
		}
		if it.InOutlier || it.ClusterFailed || it.CodeId == uuid.Nil || it.Confidence < threshold {
			res.NeedsReview++
			continue
		}
		res.Assignments = append(res.Assignments, Assignment{
			AnswerId: it.AnswerId,
			CodeId:   it.CodeId,
			CodeName: it.CodeName,
		})
	}
	return res
}
