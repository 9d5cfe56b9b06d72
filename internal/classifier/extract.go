package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/automax/grievance-backend/internal/models"
)

var (
	codeFencePattern  = regexp.MustCompile("(?i)```(?:json)?")
	flatObjectPattern = regexp.MustCompile(`\{[^{}]*\}`)
	// Dot does not match newlines, so this only spans a single line.
	singleLinePattern = regexp.MustCompile(`\{.*\}`)
)

var requiredFields = []string{"department", "risk_score", "ai_suggested_action"}

// extractionStrategy returns a candidate JSON object span from cleaned text.
type extractionStrategy func(text string) (string, bool)

// Tried in order; the first hit wins.
var extractionStrategies = []extractionStrategy{
	flatSpanWithAllFields,
	singleLineSpan,
	outermostBraces,
}

// StripCodeFences removes markdown code fence markers, with or without a json
// language tag, wherever they appear.
func StripCodeFences(text string) string {
	return strings.TrimSpace(codeFencePattern.ReplaceAllString(text, ""))
}

// ExtractJSONObject locates the classification object inside a model reply.
func ExtractJSONObject(reply string) (string, bool) {
	cleaned := StripCodeFences(reply)
	for _, strategy := range extractionStrategies {
		if span, ok := strategy(cleaned); ok {
			return span, true
		}
	}
	return "", false
}

func flatSpanWithAllFields(text string) (string, bool) {
	for _, span := range flatObjectPattern.FindAllString(text, -1) {
		if containsAllFields(span) {
			return span, true
		}
	}
	return "", false
}

func singleLineSpan(text string) (string, bool) {
	span := singleLinePattern.FindString(text)
	return span, span != ""
}

func outermostBraces(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func containsAllFields(span string) bool {
	for _, field := range requiredFields {
		if !strings.Contains(span, `"`+field+`"`) {
			return false
		}
	}
	return true
}

// ParseReply extracts, decodes and validates a model reply.
func ParseReply(reply string) (Result, error) {
	span, ok := ExtractJSONObject(reply)
	if !ok {
		return Result{}, fmt.Errorf("%w: no JSON object found", ErrParse)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	for _, field := range requiredFields {
		if _, ok := fields[field]; !ok {
			return Result{}, fmt.Errorf("%w: missing field %q", ErrSchema, field)
		}
	}

	risk, err := parseRiskScore(fields["risk_score"])
	if err != nil {
		return Result{}, fmt.Errorf("%w: risk_score: %v", ErrSchema, err)
	}

	action := rawString(fields["ai_suggested_action"])
	if action == "" {
		return Result{}, fmt.Errorf("%w: ai_suggested_action is empty", ErrSchema)
	}

	return Result{
		Department:      models.NormalizeDepartment(rawString(fields["department"])),
		RiskScore:       risk,
		SuggestedAction: action,
		AIUsed:          true,
	}, nil
}

// parseRiskScore accepts a JSON number or a numeric string, truncates toward
// zero and clamps into the valid range. Numbers beyond float64 range clamp to
// the nearest bound.
func parseRiskScore(raw json.RawMessage) (int, error) {
	if string(raw) == "null" {
		return 0, errors.New("value is null")
	}

	var text string
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		text = n.String()
	} else if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("not a number: %s", string(raw))
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		// Overflow yields ±Inf, which the clamp below absorbs.
	case err != nil:
		return 0, fmt.Errorf("not a number: %q", text)
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, fmt.Errorf("not a finite number: %q", text)
	}

	switch {
	case f < models.MinRiskScore:
		return models.MinRiskScore, nil
	case f > models.MaxRiskScore:
		return models.MaxRiskScore, nil
	}
	return models.ClampRiskScore(int(f)), nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if string(raw) == "null" {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
