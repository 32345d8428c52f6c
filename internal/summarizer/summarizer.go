package summarizer

import (
	"context"
	"errors"
	"strings"

	"pdf-ask/internal/llm"
)

// ErrNoPartials means Summarize was called with nothing to merge.
var ErrNoPartials = errors.New("summarizer: no partial answers")

// Summarizer merges per-chunk answers into one final answer.
type Summarizer struct {
	llm llm.Client
}

func New(client llm.Client) *Summarizer {
	return &Summarizer{llm: client}
}

// Prompt lists the partial answers, one per line, in the given order.
func Prompt(partials []string) string {
	return "You are a helpful assistant. " +
		"Here are partial answers from multiple PDF chunks:\n\n" +
		strings.Join(partials, "\n") +
		"\n\nPlease provide ONE concise, clear answer to the question, " +
		"without repeating information."
}

// Summarize makes a single model call and returns its trimmed output.
func (s *Summarizer) Summarize(ctx context.Context, partials []string) (string, error) {
	if len(partials) == 0 {
		return "", ErrNoPartials
	}
	resp, err := s.llm.Generate(ctx, Prompt(partials))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}
