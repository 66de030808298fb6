package snippet

import (
	"fmt"
	"time"
)

type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangCPP        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangPHP        Language = "php"
	LangRuby       Language = "ruby"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangJSON       Language = "json"
	LangSQL        Language = "sql"
	LangBash       Language = "bash"
)

// LanguageInfo describes a language the editor and the AI prompts know about.
type LanguageInfo struct {
	Value Language `json:"value" yaml:"value"`
	Label string   `json:"label" yaml:"label"`
}

var supportedLanguages = []LanguageInfo{
	{LangJavaScript, "JavaScript"},
	{LangTypeScript, "TypeScript"},
	{LangPython, "Python"},
	{LangJava, "Java"},
	{LangCPP, "C++"},
	{LangCSharp, "C#"},
	{LangGo, "Go"},
	{LangRust, "Rust"},
	{LangPHP, "PHP"},
	{LangRuby, "Ruby"},
	{LangHTML, "HTML"},
	{LangCSS, "CSS"},
	{LangJSON, "JSON"},
	{LangSQL, "SQL"},
	{LangBash, "Bash"},
}

// SupportedLanguages returns a copy of the language table in display order.
func SupportedLanguages() []LanguageInfo {
	out := make([]LanguageInfo, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

func (l Language) IsSupported() bool {
	for _, info := range supportedLanguages {
		if info.Value == l {
			return true
		}
	}
	return false
}

// Label returns the display name, or the raw value for unknown languages.
func (l Language) Label() string {
	for _, info := range supportedLanguages {
		if info.Value == l {
			return info.Label
		}
	}
	return string(l)
}

// DefaultTitle builds the title used when the user saves without naming a snippet.
func DefaultTitle(l Language, now time.Time) string {
	return fmt.Sprintf("%s Snippet - %s", l.Label(), now.Format("Jan 2, 2006"))
}
