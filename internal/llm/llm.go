package llm

import (
	"context"
	"errors"
)

// ErrNoChoices is returned when the provider answers without any completion.
var ErrNoChoices = errors.New("llm: no choices returned")

// Client sends one prompt to a hosted model and returns its text completion.
// An empty completion is a valid result.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
