package analyze

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSONRe   = regexp.MustCompile(`(?s)\{[^{}]*\}`)
)

type verdictPayload struct {
	Consistency string `json:"consistency"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
	Location    string `json:"location"`
}

// extractJSONObject pulls the first plausible JSON object out of a
// model reply, tolerating code fences and surrounding prose.
func extractJSONObject(reply string) (verdictPayload, bool) {
	candidates := []string{}
	if m := fencedJSONRe.FindStringSubmatch(reply); m != nil {
		candidates = append(candidates, m[1])
	}
	trimmed := strings.TrimSpace(reply)
	if strings.HasPrefix(trimmed, "{") {
		candidates = append(candidates, trimmed)
	}
	candidates = append(candidates, bareJSONRe.FindAllString(reply, -1)...)

	for _, c := range candidates {
		var p verdictPayload
		if err := json.Unmarshal([]byte(c), &p); err != nil {
			continue
		}
		if p.Consistency != "" || p.Status != "" {
			return p, true
		}
	}
	return verdictPayload{}, false
}

// parseConsistency reads a consistent/inconsistent verdict. The raw
// reply is kept on every verdict for audit; a reply that cannot be
// interpreted at all produces a verdict with an empty status.
func parseConsistency(reply string) Verdict {
	if p, ok := extractJSONObject(reply); ok {
		value := p.Consistency
		if value == "" {
			value = p.Status
		}
		if status, ok := normalizeConsistency(value); ok {
			return Verdict{Status: status, Reason: p.Reason, Location: p.Location, RawResponse: reply}
		}
	}
	// Keyword fallback for models that ignore the JSON instruction.
	// Check the negative form first since "inconsistent" contains
	// "consistent".
	lower := strings.ToLower(reply)
	switch {
	case strings.Contains(lower, "inconsistent") || strings.Contains(reply, "不一致"):
		return Verdict{Status: StatusInconsistent, RawResponse: reply}
	case strings.Contains(lower, "consistent") || strings.Contains(reply, "一致"):
		return Verdict{Status: StatusConsistent, RawResponse: reply}
	}
	return Verdict{RawResponse: reply}
}

func normalizeConsistency(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "consistent", "一致":
		return StatusConsistent, true
	case "inconsistent", "不一致":
		return StatusInconsistent, true
	}
	return "", false
}

// internalStatuses maps reply labels to canonical statuses, listed in
// severity order for the keyword fallback.
var internalStatuses = []struct {
	status   string
	keywords []string
}{
	{StatusFactualError, []string{"factual_error", "基础错误"}},
	{StatusSelfContradiction, []string{"self_contradiction", "自相矛盾"}},
	{StatusLogicError, []string{"logic_error", "逻辑错误"}},
	{StatusContradiction, []string{"contradiction", "前后矛盾"}},
	{StatusNoIssue, []string{"no_issue", "无问题"}},
}

func normalizeInternal(value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, s := range internalStatuses {
		for _, kw := range s.keywords {
			if v == kw {
				return s.status, true
			}
		}
	}
	return "", false
}

// parseInternal reads an internal consistency verdict. The keyword
// fallback scans in severity order so a reply that names several
// problems resolves to the most severe one.
func parseInternal(reply string) Verdict {
	if p, ok := extractJSONObject(reply); ok {
		if status, ok := normalizeInternal(p.Status); ok {
			return Verdict{Status: status, Reason: p.Reason, Location: p.Location, RawResponse: reply}
		}
	}
	lower := strings.ToLower(reply)
	for _, s := range internalStatuses {
		for _, kw := range s.keywords {
			if strings.Contains(lower, kw) || strings.Contains(reply, kw) {
				return Verdict{Status: s.status, RawResponse: reply}
			}
		}
	}
	return Verdict{RawResponse: reply}
}
