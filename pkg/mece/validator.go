package mece

import (
	"fmt"

	"codeframe-be/pkg/cluster"
)

// Warning kinds and severities surfaced on the generation run.
const (
	KindOverlap = "overlap"
	KindGap     = "gap"

	SeverityWarning = "warning"
	SeverityError   = "error"
)

type Warning struct {
	Kind     string   `json:"kind"`
	Severity string   `json:"severity"`
	NodeIds  []string `json:"node_ids,omitempty"`
	Count    int      `json:"count,omitempty"`
	Detail   string   `json:"detail"`
}

// CodeInput is a code-level node under validation: its id, display name and
// the embedding of its name+description.
type CodeInput struct {
	Id        string
	Name      string
	Embedding []float32
}

// Policy holds the tunable thresholds and score weights. Defaults mirror the
// qualitative guidance ("warning ~0.70, error ~0.85, gap >10%").
type Policy struct {
	OverlapWarnThreshold  float64
	OverlapErrorThreshold float64
	GapFraction           float64
	ErrorOverlapWeight    float64
	WarnOverlapWeight     float64
	UncoveredWeight       float64
}

func DefaultPolicy() Policy {
	return Policy{
		OverlapWarnThreshold:  0.70,
		OverlapErrorThreshold: 0.85,
		GapFraction:           0.10,
		ErrorOverlapWeight:    40,
		WarnOverlapWeight:     15,
		UncoveredWeight:       100,
	}
}

type Report struct {
	Score    int
	Warnings []Warning
}

// Validate checks the generated codes for mutual exclusivity (pairwise cosine
// over code embeddings) and exhaustiveness (fraction of input items not
// covered by any code). The score is 100 minus weighted penalties, clamped to
// [0,100]; it is non-increasing in warning count and uncovered fraction.
func Validate(codes []CodeInput, totalItems, uncoveredItems int, policy Policy) *Report {
	report := &Report{}

	errorOverlaps := 0
	warnOverlaps := 0

	for i := 0; i < len(codes); i++ {
		for j := i + 1; j < len(codes); j++ {
			sim := cluster.CosineSimilarity(codes[i].Embedding, codes[j].Embedding)
			if sim >= policy.OverlapErrorThreshold {
				errorOverlaps++
				report.Warnings = append(report.Warnings, Warning{
					Kind:     KindOverlap,
					Severity: SeverityError,
					NodeIds:  []string{codes[i].Id, codes[j].Id},
					Detail:   fmt.Sprintf("codes %q and %q are near-duplicates (similarity %.2f)", codes[i].Name, codes[j].Name, sim),
				})
			} else if sim >= policy.OverlapWarnThreshold {
				warnOverlaps++
				report.Warnings = append(report.Warnings, Warning{
					Kind:     KindOverlap,
					Severity: SeverityWarning,
					NodeIds:  []string{codes[i].Id, codes[j].Id},
					Detail:   fmt.Sprintf("codes %q and %q overlap (similarity %.2f)", codes[i].Name, codes[j].Name, sim),
				})
			}
		}
	}

	uncoveredFraction := 0.0
	if totalItems > 0 {
		uncoveredFraction = float64(uncoveredItems) / float64(totalItems)
	}
	if uncoveredFraction > policy.GapFraction {
		report.Warnings = append(report.Warnings, Warning{
			Kind:     KindGap,
			Severity: SeverityWarning,
			Count:    uncoveredItems,
			Detail:   fmt.Sprintf("%d of %d items are not covered by any code (%.0f%%)", uncoveredItems, totalItems, uncoveredFraction*100),
		})
	}

	penalty := policy.ErrorOverlapWeight*float64(errorOverlaps) +
		policy.WarnOverlapWeight*float64(warnOverlaps) +
		policy.UncoveredWeight*uncoveredFraction

	score := 100 - penalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	report.Score = int(score)

	return report
}
