package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"bugsentinel/internal/domain/snippet"
)

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// decodeJSONBlock reads the outermost {...} span of a model answer into v.
// Models often wrap JSON in prose or fences and leave trailing commas.
func decodeJSONBlock(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	block := trailingComma.ReplaceAllString(text[start:end+1], "$1")
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

type rawIssue struct {
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Suggestion string `json:"suggestion"`
	FixedCode  string `json:"fixedCode"`
}

var (
	issueTypes = map[string]bool{"syntax": true, "logic": true, "security": true, "performance": true, "style": true}
	severities = map[string]bool{"low": true, "medium": true, "high": true}
)

// normalizeIssues fills the gaps models leave behind.
func normalizeIssues(raw []rawIssue) []snippet.Issue {
	out := make([]snippet.Issue, 0, len(raw))
	for _, r := range raw {
		is := snippet.Issue{
			Type:       strings.ToLower(r.Type),
			Severity:   strings.ToLower(r.Severity),
			Message:    r.Message,
			Line:       r.Line,
			Column:     r.Column,
			Suggestion: r.Suggestion,
			FixedCode:  r.FixedCode,
		}
		if !issueTypes[is.Type] {
			is.Type = "logic"
		}
		if !severities[is.Severity] {
			is.Severity = "medium"
		}
		if is.Message == "" {
			is.Message = "Issue found"
		}
		if is.Line < 1 {
			is.Line = 1
		}
		if is.Column < 1 {
			is.Column = 1
		}
		out = append(out, is)
	}
	return out
}

func normalizeRefactor(r RefactorResult, original string) *RefactorResult {
	r.OriginalCode = original
	if r.RefactoredCode == "" {
		r.RefactoredCode = original
	}
	if r.Explanation == "" {
		r.Explanation = "Code refactored"
	}
	if len(r.Improvements) == 0 {
		r.Improvements = []string{"Code improved"}
	}
	return &r
}
