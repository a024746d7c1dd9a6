package codeframe

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultConfidence is used when the model omits a confidence value.
const DefaultConfidence = 0.5

// Proposal is the validated output of one generation call. Everything past
// this boundary sees defaults instead of missing fields.
type Proposal struct {
	Theme              NodeProposal
	Codes              []CodeProposal
	MeceSelfAssessment string
}

type NodeProposal struct {
	Name        string
	Description string
	Confidence  float64
}

type CodeProposal struct {
	NodeProposal
	SubCodes []NodeProposal
}

// Wire shapes. Pointers distinguish "absent" from zero so defaults apply
// only where the model stayed silent.

type wireNode struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Confidence  *float64 `json:"confidence"`
}

type wireCode struct {
	wireNode
	SubCodes []wireNode `json:"sub_codes"`
}

type wireProposal struct {
	Theme              *wireNode  `json:"theme"`
	Codes              []wireCode `json:"codes"`
	MeceSelfAssessment string     `json:"mece_self_assessment"`
}

// ParseProposal parses a model response into a Proposal. It is the single
// boundary where raw model text is interpreted: it tolerates markdown fences
// and surrounding prose, applies documented defaults for optional fields, and
// rejects anything missing a theme name or a first code. maxDepth 2 strips
// sub-codes; responses may use fewer levels but never more.
func ParseProposal(raw string, maxDepth int) (*Proposal, error) {
	jsonText, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var wire wireProposal
	if err := json.Unmarshal([]byte(jsonText), &wire); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if wire.Theme == nil || strings.TrimSpace(wire.Theme.Name) == "" {
		return nil, fmt.Errorf("missing theme name")
	}
	if len(wire.Codes) == 0 {
		return nil, fmt.Errorf("theme %q has no codes", wire.Theme.Name)
	}

	p := &Proposal{
		Theme:              toNode(*wire.Theme),
		MeceSelfAssessment: strings.TrimSpace(wire.MeceSelfAssessment),
	}

	for _, wc := range wire.Codes {
		if strings.TrimSpace(wc.Name) == "" {
			return nil, fmt.Errorf("code with empty name under theme %q", p.Theme.Name)
		}
		code := CodeProposal{NodeProposal: toNode(wc.wireNode)}
		if maxDepth >= 3 {
			for _, ws := range wc.SubCodes {
				if strings.TrimSpace(ws.Name) == "" {
					continue // drop nameless sub-codes rather than failing the cluster
				}
				code.SubCodes = append(code.SubCodes, toNode(ws))
			}
		}
		p.Codes = append(p.Codes, code)
	}

	return p, nil
}

func toNode(w wireNode) NodeProposal {
	n := NodeProposal{
		Name:       strings.TrimSpace(w.Name),
		Confidence: DefaultConfidence,
	}
	if w.Description != nil {
		n.Description = strings.TrimSpace(*w.Description)
	}
	if w.Confidence != nil {
		c := *w.Confidence
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		n.Confidence = c
	}
	return n
}

// extractJSON pulls the first balanced {...} block out of the response,
// which survives markdown fences and chatty preambles.
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}
