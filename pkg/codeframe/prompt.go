package codeframe

import (
	"fmt"
	"strings"
)

// PromptInput grounds one cluster's generation call. Exemplars are already
// capped by the generator; the full cluster is never sent.
type PromptInput struct {
	CategoryName        string
	CategoryDescription string
	Exemplars           []string
	MaxDepth            int // 2 = theme+code, 3 = theme+code+sub-code
	Language            string
}

const systemInstruction = `You are a survey coding analyst. You group open-ended survey answers into a hierarchical codeframe. Respond with JSON only, no prose.`

// BuildPrompt renders the generation prompt for a cluster.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Survey question category: %s\n", in.CategoryName)
	if in.CategoryDescription != "" {
		fmt.Fprintf(&b, "Category description: %s\n", in.CategoryDescription)
	}
	if in.Language != "" {
		fmt.Fprintf(&b, "Write all names and descriptions in: %s\n", in.Language)
	}

	b.WriteString("\nThese answers were grouped together by semantic similarity:\n")
	for i, ex := range in.Exemplars {
		fmt.Fprintf(&b, "%d. %s\n", i+1, ex)
	}

	depthNote := "Do NOT include sub_codes."
	if in.MaxDepth >= 3 {
		depthNote = "Include sub_codes only where the answers genuinely split further; omit them otherwise."
	}

	fmt.Fprintf(&b, `
Propose one theme for this group with one or more codes under it.
Codes must be mutually exclusive. %s
Use fewer levels if the group is homogeneous; never invent detail that is not in the answers.

Respond with exactly this JSON shape:
{
  "theme": {"name": "...", "description": "...", "confidence": 0.0},
  "codes": [
    {"name": "...", "description": "...", "confidence": 0.0, "sub_codes": [
      {"name": "...", "description": "...", "confidence": 0.0}
    ]}
  ],
  "mece_self_assessment": "one sentence on overlap/coverage risks"
}
`, depthNote)

	return b.String()
}

// BuildRetryPrompt re-asks after an unparseable response, quoting the failure
// and tightening the format requirement. Used at most once per cluster.
func BuildRetryPrompt(in PromptInput, parseErr error) string {
	var b strings.Builder
	b.WriteString(BuildPrompt(in))
	fmt.Fprintf(&b, `
Your previous response could not be parsed: %v.
Return ONLY the JSON object. No markdown fences, no commentary, no trailing text.
`, parseErr)
	return b.String()
}
