// Package segment splits answer text into sentences and extracts the
// citation markers each sentence carries.
package segment

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Segment is one sentence of an answer. Text keeps the citation
// markers, Plain has them stripped, Citations lists the referenced
// source indices in order of first appearance.
type Segment struct {
	Text      string `json:"text"`
	Plain     string `json:"plain"`
	Citations []int  `json:"citations"`
}

var (
	citationRe = regexp.MustCompile(`\[citation:(\d+)\]`)
	caretRe    = regexp.MustCompile(`\[\^(\d+)\]`)
	bracketRe  = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`)
)

// Split breaks answer into sentence segments. Sentences end at CJK
// terminators, newlines, or an ASCII period that is not part of a
// decimal number.
func Split(answer string) []Segment {
	sentences := splitSentences(answer)
	segs := make([]Segment, 0, len(sentences))
	for _, s := range sentences {
		text := strings.TrimSpace(s)
		if text == "" {
			continue
		}
		segs = append(segs, Segment{
			Text:      text,
			Plain:     strings.TrimSpace(stripMarkers(text)),
			Citations: extractCitations(text),
		})
	}
	return segs
}

// Cited filters segs down to sentences worth checking against their
// sources: they must cite at least one source, carry more than three
// characters of plain text, and stay under 500 characters raw.
func Cited(segs []Segment) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		if len(s.Citations) == 0 {
			continue
		}
		if utf8.RuneCountInString(s.Plain) <= 3 {
			continue
		}
		if utf8.RuneCountInString(s.Text) >= 500 {
			continue
		}
		out = append(out, s)
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		boundary := false
		switch r {
		case '。', '！', '？', '\n':
			boundary = true
		case '.':
			// Keep decimal numbers like 3.14 intact. A period only
			// ends a sentence when the next rune is a space or the
			// end of the text.
			prevDigit := i > 0 && unicode.IsDigit(runes[i-1])
			nextOK := i == len(runes)-1 || runes[i+1] == ' '
			boundary = !prevDigit && nextOK
		}
		if boundary {
			out = append(out, string(runes[start:i+1]))
			start = i + 1
		}
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

type markerMatch struct {
	pos     int
	indices []int
}

// extractCitations collects source indices from [citation:N], [^N] and
// [N] or [N,M] markers, deduplicated in order of first appearance.
func extractCitations(text string) []int {
	var matches []markerMatch
	for _, m := range citationRe.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err == nil {
			matches = append(matches, markerMatch{pos: m[0], indices: []int{n}})
		}
	}
	for _, m := range caretRe.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err == nil {
			matches = append(matches, markerMatch{pos: m[0], indices: []int{n}})
		}
	}
	for _, m := range bracketRe.FindAllStringSubmatchIndex(text, -1) {
		var idx []int
		for _, part := range strings.Split(text[m[2]:m[3]], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err == nil {
				idx = append(idx, n)
			}
		}
		if len(idx) > 0 {
			matches = append(matches, markerMatch{pos: m[0], indices: idx})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	seen := make(map[int]bool)
	var out []int
	for _, m := range matches {
		for _, n := range m.indices {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

func stripMarkers(text string) string {
	text = citationRe.ReplaceAllString(text, "")
	text = caretRe.ReplaceAllString(text, "")
	text = bracketRe.ReplaceAllString(text, "")
	return text
}
