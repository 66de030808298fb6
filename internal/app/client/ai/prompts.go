package ai

import (
	"fmt"
	"strings"

	"bugsentinel/internal/domain/snippet"
)

const systemPrompt = "You are a meticulous code reviewer. Answer with a single JSON object and nothing else."

const issueSchema = `{
  "type": "syntax|logic|security|performance|style",
  "severity": "low|medium|high",
  "message": "Description of the issue",
  "line": 1,
  "column": 1,
  "suggestion": "How to fix this issue",
  "fixedCode": "Corrected code snippet"
}`

func codeBlock(code string, lang snippet.Language) string {
	return fmt.Sprintf("```%s\n%s\n```", lang, code)
}

func analyzePrompt(req AnalyzeRequest) string {
	intro := req.Prompt
	if strings.TrimSpace(intro) == "" {
		intro = fmt.Sprintf("Analyze this %s code for bugs, errors, and issues. Provide specific line numbers and suggestions for fixes.", req.Language.Label())
	}

	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n\nCode to analyze:\n")
	b.WriteString(codeBlock(req.Code, req.Language))
	b.WriteString("\n\nReply in this JSON format:\n{\n  \"issues\": [\n")
	b.WriteString(issueSchema)
	b.WriteString("\n  ]\n}\n\n")
	b.WriteString("Look for syntax errors, logic bugs, security vulnerabilities, performance issues, style problems and best practice violations. ")
	b.WriteString("Be specific with line numbers and give actionable suggestions.")
	return b.String()
}

func refactorPrompt(code string, lang snippet.Language) string {
	return fmt.Sprintf(`Refactor this %s code to improve its structure, readability, and maintainability.

Original code:
%s

Reply in this JSON format:
{
  "refactoredCode": "The improved code",
  "explanation": "Explanation of the refactoring changes",
  "improvements": ["Specific improvement"]
}

Prefer better names, simpler structure, reduced complexity, proper error handling and readability.`, lang.Label(), codeBlock(code, lang))
}

func suggestPrompt(code string, lang snippet.Language, hint string) string {
	ctxLine := ""
	if hint != "" {
		ctxLine = "\nContext: " + hint + "\n"
	}
	return fmt.Sprintf(`Provide code suggestions and improvements for this %s code.

Code:
%s
%s
Reply in this JSON format:
{
  "suggestions": [
    {
      "suggestion": "Brief description of the suggestion",
      "code": "Improved code snippet",
      "explanation": "Detailed explanation of the improvement"
    }
  ]
}

Consider modern language features, performance, clarity, best practices and alternative approaches.`, lang.Label(), codeBlock(code, lang), ctxLine)
}

func allPrompt(code string, lang snippet.Language) string {
	return fmt.Sprintf(`Analyze this %s code comprehensively. Provide analysis, refactoring suggestions, and code improvements in one response.

Code to analyze:
%s

Reply in this JSON format:
{
  "analysis": {
    "issues": [
%s
    ]
  },
  "refactoring": {
    "refactoredCode": "The improved code",
    "explanation": "Explanation of the refactoring changes",
    "improvements": ["Specific improvement"]
  },
  "suggestions": [
    {
      "suggestion": "Brief description",
      "code": "Improved code snippet",
      "explanation": "Why it helps"
    }
  ]
}`, lang.Label(), codeBlock(code, lang), issueSchema)
}
