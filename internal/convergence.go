package internal

import (
	"regexp"
	"strings"
)

const (
	defaultMaxFreeTextWords = 6
	maxFreeTextChars        = 60
)

// LabelPattern is one strategy for finding an option label in a response. The first
// capture group must hold the label.
type LabelPattern struct {
	Name string
	Re   *regexp.Regexp
	// Unique patterns only count when every match names the same label. A restated
	// option list is not a vote.
	Unique bool
}

// DefaultLabelPatterns are tried in order; within a pattern the last match wins, since
// agents are asked to end with their recommendation. Labels are the capital letters A-H
// so that the pronoun "I" is never read as a vote.
var DefaultLabelPatterns = []LabelPattern{
	{
		Name: "bare",
		Re:   regexp.MustCompile(`^\W*(?i:option\s+)?\(?([A-Ha-h])\)?\W*$`),
	},
	{
		Name: "recommendation",
		Re:   regexp.MustCompile(`(?i:\bmy\s+(?:final\s+)?(?:recommendation|choice|pick|answer|vote))\s*(?::|\bis\b)?\s*[*_]*\s*(?i:option\s+)?\(?([A-H])\b`),
	},
	{
		Name: "verb",
		Re:   regexp.MustCompile(`(?i:\b(?:choose|pick|recommend|go\s+with|select|vote\s+for))\s+[*_]*(?i:option\s+)?\(?([A-H])\b`),
	},
	{
		Name: "evaluative",
		Re:   regexp.MustCompile(`(?i:\boption\s+)?\b([A-H])\s+(?i:is|would\s+be)\s+(?i:the\s+)?(?i:best|right|correct|better|strongest)\b`),
	},
	{
		Name:   "enumerated",
		Re:     regexp.MustCompile(`(?m)^\s*\(?([A-H])\)`),
		Unique: true,
	},
}

// ChoiceExtractor turns a free-form response into a choice label
type ChoiceExtractor struct {
	Patterns []LabelPattern
	// MaxFreeTextWords bounds the fallback: a response this short is its own answer
	MaxFreeTextWords int
}

// NewChoiceExtractor creates an extractor with the default patterns
func NewChoiceExtractor() *ChoiceExtractor {
	return &ChoiceExtractor{
		Patterns:         DefaultLabelPatterns,
		MaxFreeTextWords: defaultMaxFreeTextWords,
	}
}

// Extract returns the label found in text, a normalized short free-text answer, or
// NoChoice
func (x *ChoiceExtractor) Extract(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return NoChoice
	}

	for _, p := range x.Patterns {
		matches := p.Re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		if label, ok := patternLabel(p, matches); ok {
			return label
		}
	}

	maxWords := x.MaxFreeTextWords
	if maxWords <= 0 {
		maxWords = defaultMaxFreeTextWords
	}
	if norm := NormalizeFreeText(text); norm != "" && wordCount(norm) <= maxWords && len(norm) <= maxFreeTextChars {
		return norm
	}
	return NoChoice
}

// patternLabel picks the label from a pattern's matches: the last one, or for a Unique
// pattern the single label all matches agree on
func patternLabel(p LabelPattern, matches [][]string) (string, bool) {
	label := ""
	for _, m := range matches {
		if len(m) < 2 || m[1] == "" {
			continue
		}
		l := strings.ToUpper(m[1])
		if p.Unique && label != "" && l != label {
			return "", false
		}
		label = l
	}
	return label, label != ""
}

// Analysis is the convergence view of one round
type Analysis struct {
	Choices    map[string]string // agent id -> choice or NoChoice
	Tally      Tally
	Responders int // agents that produced a parseable choice
	Consensus  bool
	Choice     string // the agreed choice when Consensus is set
}

// Analyzer extracts choices from a round and decides whether the round converged
type Analyzer struct {
	extractor *ChoiceExtractor
}

// NewAnalyzer creates an Analyzer using extractor, or the default extractor when nil
func NewAnalyzer(extractor *ChoiceExtractor) *Analyzer {
	if extractor == nil {
		extractor = NewChoiceExtractor()
	}
	return &Analyzer{extractor: extractor}
}

// Analyze maps every response to a choice. Consensus holds exactly when the non-"none"
// choices are non-empty and all equal. Failed agents always map to NoChoice.
func (a *Analyzer) Analyze(responses []AgentResponse) Analysis {
	res := Analysis{
		Choices: make(map[string]string, len(responses)),
		Tally:   make(Tally),
	}

	distinct := make(map[string]bool)
	for _, resp := range responses {
		choice := NoChoice
		if resp.Success {
			choice = a.extractor.Extract(resp.Response)
		}
		res.Choices[resp.AgentID] = choice
		res.Tally[choice]++
		if choice != NoChoice {
			res.Responders++
			distinct[choice] = true
		}
	}

	if len(distinct) == 1 {
		res.Consensus = true
		for c := range distinct {
			res.Choice = c
		}
	}
	return res
}
