package enrich

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Keys under which providers have been seen to wrap candidate lists.
var listKeys = []string{
	"topics", "related_topics", "relatedTopics",
	"tools", "ai_tools", "AI_Tools", "related_tools", "relatedTools",
	"results", "items", "candidates",
}

// NormalizeTopics converts raw provider output into topic candidates.
// Accepted shapes: a bare array, an object wrapping an array under a known
// key, any object field holding an array of named items, or a single named
// object. Fenced code blocks and malformed JSON are repaired first.
func NormalizeTopics(raw string) ([]TopicCandidate, error) {
	items, err := normalizeItems(raw)
	if err != nil {
		return nil, err
	}
	out := make([]TopicCandidate, 0, len(items))
	for _, it := range items {
		out = append(out, TopicCandidate{
			Name:        pickString(it, "name", "title", "topic"),
			Description: pickString(it, "description", "summary", "desc"),
			Score:       pickScore(it),
			Origin:      OriginModel,
		})
	}
	return out, nil
}

// NormalizeTools converts raw provider output into tool candidates. It
// accepts the same shapes as NormalizeTopics.
func NormalizeTools(raw string) ([]ToolCandidate, error) {
	items, err := normalizeItems(raw)
	if err != nil {
		return nil, err
	}
	out := make([]ToolCandidate, 0, len(items))
	for _, it := range items {
		out = append(out, ToolCandidate{
			Name:        pickString(it, "name", "title", "tool"),
			Description: pickString(it, "description", "summary", "desc"),
			Category:    pickString(it, "category", "type"),
			URL:         pickString(it, "url", "website", "link", "homepage"),
			Score:       pickScore(it),
			Origin:      OriginModel,
		})
	}
	return out, nil
}

// ParseScore extracts a rating in [0, 1] from a free-text reply. It returns
// DefaultScore when no number can be found.
func ParseScore(raw string) float64 {
	s := strings.TrimSpace(extractFromCodeBlock(raw))
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return clampOrDefault(v)
	}
	for _, field := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r == '.')
	}) {
		if v, err := strconv.ParseFloat(strings.Trim(field, "."), 64); err == nil {
			return clampOrDefault(v)
		}
	}
	return DefaultScore
}

func clampOrDefault(v float64) float64 {
	if v < 0 || v > 1 {
		return DefaultScore
	}
	return v
}

// normalizeItems decodes raw and locates the list of candidate objects.
func normalizeItems(raw string) ([]map[string]any, error) {
	v, err := decodeLoose(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch t := v.(type) {
	case []any:
		return objects(t), nil
	case map[string]any:
		for _, k := range listKeys {
			if arr, ok := t[k].([]any); ok {
				return objects(arr), nil
			}
		}
		for _, val := range t {
			if arr, ok := val.([]any); ok && hasNamedItem(arr) {
				return objects(arr), nil
			}
		}
		if pickString(t, "name", "title") != "" {
			return []map[string]any{t}, nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unexpected response shape %T", ErrUnavailable, v)
}

// decodeLoose parses JSON that may be fenced, double-encoded or malformed.
func decodeLoose(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(extractFromCodeBlock(s))
	}
	if s == "" {
		return nil, fmt.Errorf("empty response")
	}

	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		if inner, ok := v.(string); ok {
			return decodeLoose(inner)
		}
		return v, nil
	}

	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, fmt.Errorf("repairing JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, fmt.Errorf("decoding repaired JSON: %w", err)
	}
	return v, nil
}

// extractFromCodeBlock strips a surrounding ``` fence.
func extractFromCodeBlock(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 || !strings.HasPrefix(lines[0], "```") {
		return text
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}

func objects(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		switch t := el.(type) {
		case map[string]any:
			out = append(out, t)
		case string:
			// A bare list of names.
			out = append(out, map[string]any{"name": t})
		}
	}
	return out
}

func hasNamedItem(arr []any) bool {
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok && pickString(m, "name", "title") != "" {
			return true
		}
	}
	return false
}

func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// pickScore reads a numeric or string score. Missing scores are Unscored.
func pickScore(m map[string]any) float64 {
	for _, k := range []string{"score", "veracity_score", "veracityScore", "veracity", "confidence", "relevance"} {
		switch v := m[k].(type) {
		case float64:
			return scaleScore(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && !math.IsNaN(f) {
				return scaleScore(f)
			}
		}
	}
	return Unscored
}

// scaleScore maps a provider score onto [0, 1]. Values in (1, 100] are
// percentages; negatives become 0 and anything above 100 becomes 1.
func scaleScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v <= 1:
		return v
	case v <= 100:
		return v / 100
	}
	return 1
}
