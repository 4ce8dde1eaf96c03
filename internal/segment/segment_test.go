package segment

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "ascii periods",
			input:    "First sentence. Second sentence.",
			expected: []string{"First sentence.", "Second sentence."},
		},
		{
			name:     "decimal numbers stay intact",
			input:    "The value is 3.14 exactly. Next point.",
			expected: []string{"The value is 3.14 exactly.", "Next point."},
		},
		{
			name:     "cjk terminators",
			input:    "第一句。第二句！第三句？",
			expected: []string{"第一句。", "第二句！", "第三句？"},
		},
		{
			name:     "newlines split",
			input:    "line one\nline two",
			expected: []string{"line one", "line two"},
		},
		{
			name:     "trailing text without terminator",
			input:    "Done. And a fragment",
			expected: []string{"Done.", "And a fragment"},
		},
		{
			name:     "abbreviation mid-word not split",
			input:    "See example.com for details. Done.",
			expected: []string{"See example.com for details.", "Done."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := Split(tt.input)
			var got []string
			for _, s := range segs {
				got = append(got, s.Text)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtractCitations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []int
	}{
		{"citation marker", "Water boils at 100C.[citation:2]", []int{2}},
		{"caret marker", "Per the report[^3], sales grew.", []int{3}},
		{"bare bracket", "Sales grew 5% [4].", []int{4}},
		{"bracket list", "Both sources agree [1,2].", []int{1, 2}},
		{"bracket list with spaces", "Both sources agree [1, 2].", []int{1, 2}},
		{"mixed markers ordered by position", "A[^2] then B[citation:1] then C[3].", []int{2, 1, 3}},
		{"duplicates keep first appearance", "A[1] B[2] C[1].", []int{1, 2}},
		{"no markers", "Nothing cited here.", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractCitations(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitStripsMarkers(t *testing.T) {
	segs := Split("Water boils at 100C.[citation:2]")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Plain != "Water boils at 100C." {
		t.Errorf("plain = %q", segs[0].Plain)
	}
	if segs[0].Text != "Water boils at 100C.[citation:2]" {
		t.Errorf("text = %q", segs[0].Text)
	}
}

func TestCited(t *testing.T) {
	segs := []Segment{
		{Text: "Cited and long enough.[1]", Plain: "Cited and long enough.", Citations: []int{1}},
		{Text: "No citations here.", Plain: "No citations here."},
		{Text: "Ok.[2]", Plain: "Ok.", Citations: []int{2}},
		{Text: strings.Repeat("长", 500) + "[3]", Plain: strings.Repeat("长", 500), Citations: []int{3}},
	}

	got := Cited(segs)
	if len(got) != 1 {
		t.Fatalf("expected 1 cited segment, got %d", len(got))
	}
	if got[0].Citations[0] != 1 {
		t.Errorf("unexpected segment kept: %+v", got[0])
	}
}

func TestSplitIdempotent(t *testing.T) {
	input := "First point.[citation:1] 第二点。Third point [2, 3]."
	first := Split(input)

	var texts []string
	for _, s := range first {
		texts = append(texts, s.Text)
	}
	second := Split(strings.Join(texts, " "))

	if len(first) != len(second) {
		t.Fatalf("re-split changed segment count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Errorf("segment %d changed: %q vs %q", i, first[i].Text, second[i].Text)
		}
	}
}
