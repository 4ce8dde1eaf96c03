package analyze

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Reasoning models wrap chain-of-thought in assorted delimiters before
// the actual answer. These cover the tags seen in the wild across the
// supported backends.
var thinkingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<thinking>.*?</thinking>`),
	regexp.MustCompile(`(?s)<think>.*?</think>`),
	regexp.MustCompile(`(?s)<思考>.*?</思考>`),
	regexp.MustCompile(`(?s)【思考过程】.*?【回答】`),
	regexp.MustCompile(`(?s)【思考】.*?【答案】`),
}

// StripThinking removes chain-of-thought blocks from answer text.
// When stripping would discard more than 70% of the text the raw input
// is returned instead, with ok set to false, since the answer itself
// was probably inside the block.
func StripThinking(raw string) (clean string, ok bool) {
	clean = raw
	for _, re := range thinkingPatterns {
		clean = re.ReplaceAllString(clean, "")
	}
	clean = strings.TrimSpace(clean)

	rawLen := utf8.RuneCountInString(raw)
	if rawLen > 0 && utf8.RuneCountInString(clean)*10 < rawLen*3 {
		return raw, false
	}
	return clean, true
}
