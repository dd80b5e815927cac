package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fenceOpen     = regexp.MustCompile("^```(?:json)?\\s*")
	fenceClose    = regexp.MustCompile("\\s*```$")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// StripFences removes a surrounding markdown code fence from model output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseStrict decodes model output into v after fence stripping, with no
// repair attempts.
func ParseStrict(raw string, v any) error {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return fmt.Errorf("empty model output")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("parse model output: %w", err)
	}
	return nil
}

// Repair applies bounded fixes to almost-JSON: trailing commas before a
// closing brace or bracket are dropped, and the outermost {...} span is
// extracted when the payload is wrapped in prose.
func Repair(raw string) string {
	s := StripFences(raw)
	s = trailingComma.ReplaceAllString(s, "$1")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

// Parse decodes model output into v, strictly first and then once more
// after repair. A second failure is terminal; callers fall back rather
// than re-prompting forever.
func Parse(raw string, v any) error {
	if err := ParseStrict(raw, v); err == nil {
		return nil
	}
	repaired := Repair(raw)
	if repaired == "" {
		return fmt.Errorf("empty model output")
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("parse model output after repair: %w", err)
	}
	return nil
}
