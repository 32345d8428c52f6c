package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"pdf-ask/internal/chunker"
	"pdf-ask/internal/llm"
)

// DefaultConcurrency bounds in-flight chunk calls per query.
const DefaultConcurrency = 4

// Orchestrator asks the model one question per chunk.
type Orchestrator struct {
	llm         llm.Client
	concurrency int
	log         *slog.Logger
}

// New returns an Orchestrator. concurrency <= 0 uses DefaultConcurrency;
// 1 issues the calls one after another.
func New(client llm.Client, concurrency int, log *slog.Logger) *Orchestrator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Orchestrator{llm: client, concurrency: concurrency, log: log}
}

// ChunkPrompt builds the prompt for one chunk. idx is zero-based; the label
// shown to the model is one-based.
func ChunkPrompt(idx int, chunk, question string) string {
	return fmt.Sprintf(
		"PDF Chunk %d:\n%s\n\nQuestion:\n%s\n"+
			"Answer ONLY using the content above. "+
			"If the content is not relevant, reply with nothing.",
		idx+1, chunk, question,
	)
}

// Query returns the trimmed, non-empty answers in chunk order. Any failed
// call cancels the rest and aborts the whole query.
func (o *Orchestrator) Query(ctx context.Context, chunks []chunker.Chunk, question string) ([]string, error) {
	answers := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			resp, err := o.llm.Generate(gctx, ChunkPrompt(c.Index, c.Text, question))
			if err != nil {
				return fmt.Errorf("chunk %d: %w", c.Index+1, err)
			}
			answers[i] = strings.TrimSpace(resp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	relevant := answers[:0]
	for _, a := range answers {
		if a != "" {
			relevant = append(relevant, a)
		}
	}
	o.log.Debug("chunk answers collected", "chunks", len(chunks), "relevant", len(relevant))
	return relevant, nil
}
