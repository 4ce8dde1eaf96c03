package analyze

import "testing"

func TestParseConsistency(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected string
	}{
		{
			name:     "plain json",
			reply:    `{"consistency": "consistent", "reason": "all claims supported"}`,
			expected: StatusConsistent,
		},
		{
			name:     "fenced json",
			reply:    "Here is my analysis:\n```json\n{\"consistency\": \"inconsistent\", \"reason\": \"claim 2 unsupported\"}\n```",
			expected: StatusInconsistent,
		},
		{
			name:     "status key instead of consistency",
			reply:    `{"status": "consistent"}`,
			expected: StatusConsistent,
		},
		{
			name:     "chinese values",
			reply:    `{"consistency": "不一致", "reason": "来源不支持该说法"}`,
			expected: StatusInconsistent,
		},
		{
			name:     "json embedded in prose",
			reply:    `After review, my verdict is {"consistency": "consistent", "reason": "ok"} as shown.`,
			expected: StatusConsistent,
		},
		{
			name:     "keyword fallback inconsistent",
			reply:    "The sentence is clearly inconsistent with source 2.",
			expected: StatusInconsistent,
		},
		{
			name:     "keyword fallback consistent",
			reply:    "The claims are consistent with the provided sources.",
			expected: StatusConsistent,
		},
		{
			name:     "chinese keyword fallback",
			reply:    "结论：不一致。",
			expected: StatusInconsistent,
		},
		{
			name:     "unparseable",
			reply:    "I cannot evaluate this.",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := parseConsistency(tt.reply)
			if v.Status != tt.expected {
				t.Errorf("status = %q, want %q", v.Status, tt.expected)
			}
			if tt.expected == "" && v.RawResponse == "" {
				t.Error("unparseable replies must keep the raw text")
			}
		})
	}
}

func TestParseConsistencyKeepsReason(t *testing.T) {
	v := parseConsistency(`{"consistency": "inconsistent", "reason": "number differs", "location": "second claim"}`)
	if v.Reason != "number differs" {
		t.Errorf("reason = %q", v.Reason)
	}
	if v.Location != "second claim" {
		t.Errorf("location = %q", v.Location)
	}
}

func TestParseInternal(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected string
	}{
		{
			name:     "plain json",
			reply:    `{"status": "no_issue", "reason": "clean"}`,
			expected: StatusNoIssue,
		},
		{
			name:     "fenced json",
			reply:    "```json\n{\"status\": \"logic_error\", \"reason\": \"conclusion does not follow\"}\n```",
			expected: StatusLogicError,
		},
		{
			name:     "chinese status value",
			reply:    `{"status": "前后矛盾", "reason": "第二段与第一段矛盾"}`,
			expected: StatusContradiction,
		},
		{
			name:     "keyword fallback",
			reply:    "I found a factual_error in the third paragraph.",
			expected: StatusFactualError,
		},
		{
			name:     "chinese keyword fallback",
			reply:    "该回答存在自相矛盾的表述。",
			expected: StatusSelfContradiction,
		},
		{
			name:     "severity order wins on multiple mentions",
			reply:    "There is a contradiction and also a factual_error here.",
			expected: StatusFactualError,
		},
		{
			name:     "self contradiction beats plain contradiction",
			reply:    "This is a self_contradiction.",
			expected: StatusSelfContradiction,
		},
		{
			name:     "unparseable",
			reply:    "Unable to say.",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := parseInternal(tt.reply)
			if v.Status != tt.expected {
				t.Errorf("status = %q, want %q", v.Status, tt.expected)
			}
			if tt.expected == "" && v.RawResponse == "" {
				t.Error("unparseable replies must keep the raw text")
			}
		})
	}
}
