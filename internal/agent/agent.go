package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"pdf-ask/internal/cache"
	"pdf-ask/internal/chunker"
	"pdf-ask/internal/extractor"
	"pdf-ask/internal/llm"
	"pdf-ask/internal/orchestrator"
	"pdf-ask/internal/summarizer"
)

// NotFound is the answer when the document has no content or no chunk
// was relevant to the question.
const NotFound = "Information not found in the provided document."

// State names a step of Ask.
type State string

const (
	StateIdle         State = "idle"
	StateExtracting   State = "extracting"
	StateChunking     State = "chunking"
	StateQuerying     State = "querying"
	StateNoneRelevant State = "none_relevant"
	StateSummarizing  State = "summarizing"
	StateDone         State = "done"
)

// TextSource produces the document text for a path.
type TextSource interface {
	Extract(path string) string
}

// Options configures an Agent.
type Options struct {
	DocumentPath string
	ChunkSize    int
	Concurrency  int
	// Model only feeds the answer cache key.
	Model    string
	CacheTTL time.Duration
}

// Agent answers questions about a single PDF document.
// It is safe for concurrent use.
type Agent struct {
	opts  Options
	src   TextSource
	orch  *orchestrator.Orchestrator
	sum   *summarizer.Summarizer
	cache cache.Cache
	log   *slog.Logger

	loads singleflight.Group
	mu    sync.RWMutex
	text  *string
	gen   uint64 // bumped by Reload
}

// New wires an Agent. A nil cache disables answer caching.
func New(opts Options, src TextSource, client llm.Client, c cache.Cache, log *slog.Logger) *Agent {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunker.DefaultMaxChars
	}
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &Agent{
		opts:  opts,
		src:   src,
		orch:  orchestrator.New(client, opts.Concurrency, log),
		sum:   summarizer.New(client),
		cache: c,
		log:   log,
	}
}

// Ask runs extract, chunk, per-chunk query and summarize for one question.
// LLM failures abort the request and are returned.
func (a *Agent) Ask(ctx context.Context, question string) (string, error) {
	log := a.log.With("ask_id", uuid.NewString())
	log.Info("question received", "question_len", len(question))
	a.enter(log, StateIdle)

	gen := a.generation()
	key := cache.Key(a.opts.Model, strconv.Itoa(a.opts.ChunkSize), a.opts.DocumentPath, question)
	if answer, ok := a.cached(ctx, log, key); ok {
		return answer, nil
	}

	a.enter(log, StateExtracting)
	text := a.Document()
	if text == "" || text == extractor.NotFound {
		log.Warn("document has no content", "path", a.opts.DocumentPath)
		a.enter(log, StateDone)
		return NotFound, nil
	}

	a.enter(log, StateChunking)
	chunks := chunker.Split(text, a.opts.ChunkSize)

	a.enter(log, StateQuerying)
	partials, err := a.orch.Query(ctx, chunks, question)
	if err != nil {
		return "", fmt.Errorf("query chunks: %w", err)
	}
	log.Info("chunks queried", "chunks", len(chunks), "relevant", len(partials))

	answer := NotFound
	if len(partials) == 0 {
		a.enter(log, StateNoneRelevant)
	} else {
		a.enter(log, StateSummarizing)
		answer, err = a.sum.Summarize(ctx, partials)
		if err != nil {
			return "", fmt.Errorf("summarize: %w", err)
		}
	}

	a.store(ctx, log, gen, key, answer)
	a.enter(log, StateDone)
	return answer, nil
}

// Document returns the extracted document text, extracting it on first use.
// Concurrent first calls share a single extraction. A missing file is not
// cached, so the document can be dropped in later without a reload.
func (a *Agent) Document() string {
	a.mu.RLock()
	if a.text != nil {
		defer a.mu.RUnlock()
		return *a.text
	}
	gen := a.gen
	a.mu.RUnlock()

	v, _, _ := a.loads.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		a.mu.RLock()
		if a.text != nil && a.gen == gen {
			defer a.mu.RUnlock()
			return *a.text, nil
		}
		a.mu.RUnlock()

		text := a.src.Extract(a.opts.DocumentPath)
		if text != extractor.NotFound {
			a.mu.Lock()
			// A Reload during extraction wins; keep the stale text out.
			if a.gen == gen {
				a.text = &text
			}
			a.mu.Unlock()
		}
		return text, nil
	})
	return v.(string)
}

// Reload drops the cached document text and every cached answer. The next
// Ask extracts the document again.
func (a *Agent) Reload(ctx context.Context) error {
	a.mu.Lock()
	a.text = nil
	a.gen++
	a.mu.Unlock()
	a.log.Info("document cache dropped", "path", a.opts.DocumentPath)

	if err := a.cache.Flush(ctx); err != nil {
		return fmt.Errorf("flush answer cache: %w", err)
	}
	return nil
}

func (a *Agent) enter(log *slog.Logger, s State) {
	log.Debug("ask state", "state", s)
}

func (a *Agent) cached(ctx context.Context, log *slog.Logger, key string) (string, bool) {
	answer, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		log.Warn("answer cache read failed", "err", err)
		return "", false
	}
	if ok {
		log.Info("cache hit")
		a.enter(log, StateDone)
	}
	return answer, ok
}

func (a *Agent) generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.gen
}

// store caches answer unless a Reload happened since gen was read. The read
// lock is held across Set so a Reload cannot flush in between.
func (a *Agent) store(ctx context.Context, log *slog.Logger, gen uint64, key, answer string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.gen != gen {
		log.Info("document reloaded during ask; answer not cached")
		return
	}
	if err := a.cache.Set(ctx, key, answer, a.opts.CacheTTL); err != nil {
		log.Warn("failed to cache answer", "err", err)
	}
}
