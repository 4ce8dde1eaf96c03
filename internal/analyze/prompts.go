package analyze

import (
	"fmt"
	"sort"
	"strings"
)

func sourcesBlock(citations map[int]string) string {
	indices := make([]int, 0, len(citations))
	for n := range citations {
		indices = append(indices, n)
	}
	sort.Ints(indices)

	var sb strings.Builder
	for _, n := range indices {
		fmt.Fprintf(&sb, "Source [%d]:\n%s\n\n", n, citations[n])
	}
	return sb.String()
}

func fullTextPrompt(question, answer string, citations map[int]string) string {
	var sb strings.Builder
	sb.WriteString("You are checking whether an answer is faithful to its cited sources.\n\n")
	if question != "" {
		fmt.Fprintf(&sb, "Question:\n%s\n\n", question)
	}
	fmt.Fprintf(&sb, "Answer:\n%s\n\n", answer)
	if len(citations) > 0 {
		sb.WriteString("Sources:\n")
		sb.WriteString(sourcesBlock(citations))
	}
	sb.WriteString(`Compare every factual claim in the answer against the sources. ` +
		`The answer is "consistent" only if all of its claims are supported; ` +
		`it is "inconsistent" if any claim contradicts or goes beyond the sources.

Reply with a JSON object only:
{"consistency": "consistent" or "inconsistent", "reason": "brief explanation", "location": "the offending claim, if any"}`)
	return sb.String()
}

func sentencePrompt(question, sentence string, sources map[int]string) string {
	var sb strings.Builder
	sb.WriteString("You are checking whether one sentence from an answer is supported by the sources it cites.\n\n")
	if question != "" {
		fmt.Fprintf(&sb, "Question:\n%s\n\n", question)
	}
	fmt.Fprintf(&sb, "Sentence:\n%s\n\n", sentence)
	sb.WriteString("Cited sources:\n")
	sb.WriteString(sourcesBlock(sources))
	sb.WriteString(`The sentence is "consistent" only if the cited sources support it; ` +
		`it is "inconsistent" if it contradicts them or states something they do not contain.

Reply with a JSON object only:
{"consistency": "consistent" or "inconsistent", "reason": "brief explanation"}`)
	return sb.String()
}

func internalPrompt(question, answer string) string {
	var sb strings.Builder
	sb.WriteString("You are checking an answer for internal problems. No external sources are involved.\n\n")
	if question != "" {
		fmt.Fprintf(&sb, "Question:\n%s\n\n", question)
	}
	fmt.Fprintf(&sb, "Answer:\n%s\n\n", answer)
	sb.WriteString(`Classify the answer with exactly one status:
- "no_issue": nothing wrong
- "contradiction": a later part contradicts an earlier part
- "logic_error": the reasoning does not follow
- "factual_error": a claim is plainly wrong as a matter of common knowledge
- "self_contradiction": a single statement contradicts itself

Reply with a JSON object only:
{"status": "<one of the five>", "reason": "brief explanation", "location": "the offending text, if any"}`)
	return sb.String()
}
