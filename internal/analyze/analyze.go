// Package analyze evaluates LLM answers, either against their cited
// sources or for internal consistency.
package analyze

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hai0823/AIQualityKit/internal/provider"
	"github.com/hai0823/AIQualityKit/internal/segment"
)

// Mode selects the evaluation strategy for an answer.
type Mode string

const (
	// ModeFullText checks the whole answer against all sources in one
	// call.
	ModeFullText Mode = "fulltext"
	// ModeSliced checks each cited sentence against its own sources.
	ModeSliced Mode = "sliced"
	// ModeInternal looks for contradictions and factual slips inside
	// the answer itself, no sources required.
	ModeInternal Mode = "internal"
)

// ParseMode normalizes user-facing mode names.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "fulltext", "full", "full-text":
		return ModeFullText, nil
	case "sliced", "slice", "sentence":
		return ModeSliced, nil
	case "internal", "internal-consistency", "hallucination":
		return ModeInternal, nil
	default:
		return "", fmt.Errorf("unknown analysis mode: %q", s)
	}
}

// Consistency statuses for source-grounded checks.
const (
	StatusConsistent   = "consistent"
	StatusInconsistent = "inconsistent"
)

// Issue statuses for internal consistency checks, ordered from most to
// least severe.
const (
	StatusFactualError      = "factual_error"
	StatusSelfContradiction = "self_contradiction"
	StatusLogicError        = "logic_error"
	StatusContradiction     = "contradiction"
	StatusNoIssue           = "no_issue"
)

// Verdict is the outcome of one check. A verdict with an empty Status
// means the model's reply could not be parsed; RawResponse keeps the
// reply for manual review.
type Verdict struct {
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	Location    string `json:"location,omitempty"`
	Sentence    string `json:"sentence,omitempty"`
	Citations   []int  `json:"citations,omitempty"`
	RawResponse string `json:"raw_response,omitempty"`
}

// Analyzer runs evaluation prompts through a provider.
type Analyzer struct {
	caller provider.Caller
	log    *slog.Logger
}

func New(caller provider.Caller, log *slog.Logger) *Analyzer {
	return &Analyzer{caller: caller, log: log}
}

// Analyze evaluates one answer. citations maps source index to source
// text and may be empty for ModeInternal. The returned usage covers
// every call made, including calls before a mid-run failure.
func (a *Analyzer) Analyze(ctx context.Context, question, answer string, citations map[int]string, mode Mode) ([]Verdict, provider.Usage, error) {
	switch mode {
	case ModeFullText:
		return a.analyzeFullText(ctx, question, answer, citations)
	case ModeSliced:
		return a.analyzeSliced(ctx, question, answer, citations)
	case ModeInternal:
		return a.analyzeInternal(ctx, question, answer)
	default:
		return nil, provider.Usage{}, fmt.Errorf("unknown analysis mode: %q", mode)
	}
}

func (a *Analyzer) analyzeFullText(ctx context.Context, question, answer string, citations map[int]string) ([]Verdict, provider.Usage, error) {
	prompt := fullTextPrompt(question, answer, citations)
	reply, usage, err := a.caller.Call(ctx, prompt)
	if err != nil {
		return nil, usage, err
	}
	v := parseConsistency(reply)
	if v.Status == "" {
		a.log.Warn("unparseable consistency reply", "reply_len", len(reply))
	}
	return []Verdict{v}, usage, nil
}

func (a *Analyzer) analyzeSliced(ctx context.Context, question, answer string, citations map[int]string) ([]Verdict, provider.Usage, error) {
	var total provider.Usage
	segs := segment.Cited(segment.Split(answer))
	verdicts := make([]Verdict, 0, len(segs))

	for _, seg := range segs {
		sources := make(map[int]string, len(seg.Citations))
		for _, n := range seg.Citations {
			if text, ok := citations[n]; ok {
				sources[n] = text
			}
		}
		if len(sources) == 0 {
			verdicts = append(verdicts, Verdict{
				Status:    StatusInconsistent,
				Reason:    "cited sources not provided",
				Sentence:  seg.Plain,
				Citations: seg.Citations,
			})
			continue
		}

		prompt := sentencePrompt(question, seg.Plain, sources)
		reply, usage, err := a.caller.Call(ctx, prompt)
		total.Add(usage)
		if err != nil {
			return verdicts, total, err
		}

		v := parseConsistency(reply)
		v.Sentence = seg.Plain
		v.Citations = seg.Citations
		if v.Status == "" {
			a.log.Warn("unparseable consistency reply", "reply_len", len(reply))
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, total, nil
}

func (a *Analyzer) analyzeInternal(ctx context.Context, question, answer string) ([]Verdict, provider.Usage, error) {
	// The answer is cleaned before the prompt is built so leftover
	// scratch-pad text is not judged as part of the answer.
	clean, ok := StripThinking(answer)
	if !ok {
		a.log.Warn("thinking strip removed most of the answer, keeping raw text", "answer_len", len(answer))
	}

	prompt := internalPrompt(question, clean)
	reply, usage, err := a.caller.Call(ctx, prompt)
	if err != nil {
		return nil, usage, err
	}

	v := parseInternal(reply)
	if v.Status == "" {
		a.log.Warn("unparseable internal consistency reply", "reply_len", len(reply))
	}
	return []Verdict{v}, usage, nil
}
