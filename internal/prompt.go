package internal

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// RecommendationInstruction is the label format the choice extractor recognises first
const RecommendationInstruction = `End with: "My recommendation: Option X"`

const defaultMaxEmbeddedChars = 4000

const followUpTemplate = `COUNCIL DELIBERATION - Round {{.Round}}

Original question:
{{.Question}}
{{- if .Context}}

Context:
{{.Context}}
{{- end}}

Other advisors' positions from round {{.Previous}}:
{{- range .Others}}

### {{.Name}}'s position:
{{.Text}}
{{- else}}

(no other advisor positions were available)
{{- end}}

---

Considering your colleagues' perspectives:
1. What do you AGREE with?
2. What do you DISAGREE with?
3. What is your REFINED position?

State clearly whether you agree or disagree with the other advisors, then restate your choice.
{{.Instruction}}
`

var followUpTmpl = template.Must(template.New("followup").Parse(followUpTemplate))

// PromptBuilder constructs round prompts. From round two on, each agent sees every other
// agent's previous answer but never its own.
type PromptBuilder struct {
	// MaxEmbeddedChars caps each prior response quoted into a prompt; <= 0 uses the default
	MaxEmbeddedChars int
	// RoundOneHint appends the recommendation instruction to the first-round prompt
	RoundOneHint bool
}

// NewPromptBuilder creates a builder with the default embedded-response cap
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{MaxEmbeddedChars: defaultMaxEmbeddedChars}
}

type otherPosition struct {
	Name string
	Text string
}

// Initial returns the round-one prompt: the question and optional context as given
func (b *PromptBuilder) Initial(question, context string) string {
	var sb strings.Builder
	sb.WriteString(question)
	if context != "" {
		sb.WriteString("\n\nContext:\n")
		sb.WriteString(context)
	}
	if b.RoundOneHint {
		sb.WriteString("\n\nBe specific about which option you choose and why.\n")
		sb.WriteString(RecommendationInstruction)
	}
	return sb.String()
}

// Build returns the prompt for target in the given round. previous is the full response
// list of round-1; the target's own entry is skipped.
func (b *PromptBuilder) Build(round int, question, context string, target Agent, previous []AgentResponse) (string, error) {
	if round <= 1 {
		return b.Initial(question, context), nil
	}

	others := make([]otherPosition, 0, len(previous))
	for _, resp := range previous {
		if resp.AgentID == target.ID {
			continue
		}
		text := TruncateText(resp.Response, b.maxEmbedded())
		if !resp.Success {
			reason := resp.Error
			if reason == "" {
				reason = "failed"
			}
			text = fmt.Sprintf("[no response: %s]", firstLine(reason))
		}
		others = append(others, otherPosition{Name: resp.Name, Text: text})
	}

	data := struct {
		Round       int
		Previous    int
		Question    string
		Context     string
		Others      []otherPosition
		Instruction string
	}{
		Round:       round,
		Previous:    round - 1,
		Question:    question,
		Context:     context,
		Others:      others,
		Instruction: RecommendationInstruction,
	}

	var buf bytes.Buffer
	if err := followUpTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// BuildRound returns one prompt per agent for the given round
func (b *PromptBuilder) BuildRound(round int, question, context string, agents []Agent, previous []AgentResponse) (map[string]string, error) {
	prompts := make(map[string]string, len(agents))
	for _, a := range agents {
		p, err := b.Build(round, question, context, a, previous)
		if err != nil {
			return nil, err
		}
		prompts[a.ID] = p
	}
	return prompts, nil
}

func (b *PromptBuilder) maxEmbedded() int {
	if b.MaxEmbeddedChars > 0 {
		return b.MaxEmbeddedChars
	}
	return defaultMaxEmbeddedChars
}
