package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pdf-ask/internal/cache"
	"pdf-ask/internal/extractor"
	"pdf-ask/internal/llm"
	"pdf-ask/internal/logger"
	"pdf-ask/internal/orchestrator"
	"pdf-ask/internal/summarizer"
)

type fakeSource struct {
	text  string
	calls atomic.Int32
	delay time.Duration
}

func (f *fakeSource) Extract(string) string {
	f.calls.Add(1)
	time.Sleep(f.delay)
	return f.text
}

func isChunkPrompt(p string) bool {
	return strings.HasPrefix(p, "PDF Chunk ")
}

func newTestAgent(src TextSource, client llm.Client, c cache.Cache) *Agent {
	return New(Options{
		DocumentPath: "data/test.pdf",
		ChunkSize:    10,
		Concurrency:  2,
		Model:        "test-model",
	}, src, client, c, logger.Discard())
}

func TestAsk(t *testing.T) {
	// 29 characters: two chunks of 10 and a tail of 9.
	doc := "Admission.Fee is 42Hostel ok."

	tests := []struct {
		name    string
		text    string
		setup   func(*llm.MockClient)
		want    string
		wantErr bool
	}{
		{
			name:  "empty document makes no llm calls",
			text:  "",
			setup: func(m *llm.MockClient) {},
			want:  NotFound,
		},
		{
			name:  "missing file makes no llm calls",
			text:  extractor.NotFound,
			setup: func(m *llm.MockClient) {},
			want:  NotFound,
		},
		{
			name: "no relevant chunk skips the summarizer",
			text: doc,
			setup: func(m *llm.MockClient) {
				m.On("Generate", mock.Anything, mock.MatchedBy(isChunkPrompt)).Return("   ", nil).Times(3)
			},
			want: NotFound,
		},
		{
			name: "single relevant chunk is summarized",
			text: doc,
			setup: func(m *llm.MockClient) {
				m.On("Generate", mock.Anything, orchestrator.ChunkPrompt(1, "Fee is 42H", "What is the fee?")).
					Return("Answer: 42", nil).Once()
				m.On("Generate", mock.Anything, mock.MatchedBy(isChunkPrompt)).Return("", nil).Twice()
				m.On("Generate", mock.Anything, summarizer.Prompt([]string{"Answer: 42"})).
					Return(" The fee is 42. ", nil).Once()
			},
			want: "The fee is 42.",
		},
		{
			name: "chunk failure aborts the request",
			text: doc,
			setup: func(m *llm.MockClient) {
				m.On("Generate", mock.Anything, mock.MatchedBy(isChunkPrompt)).
					Return("", errors.New("missing credential")).Maybe()
			},
			wantErr: true,
		},
		{
			name: "summarizer failure aborts the request",
			text: doc,
			setup: func(m *llm.MockClient) {
				m.On("Generate", mock.Anything, mock.MatchedBy(isChunkPrompt)).Return("part", nil).Times(3)
				m.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("rate limited")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(llm.MockClient)
			tt.setup(m)
			a := newTestAgent(&fakeSource{text: tt.text}, m, nil)

			got, err := a.Ask(context.Background(), "What is the fee?")

			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			m.AssertExpectations(t)
			if tt.text == "" || tt.text == extractor.NotFound {
				m.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAskIsIdempotent(t *testing.T) {
	m := new(llm.MockClient)
	m.On("Generate", mock.Anything, mock.MatchedBy(isChunkPrompt)).Return("fragment", nil)
	m.On("Generate", mock.Anything, mock.Anything).Return("final", nil)

	a := newTestAgent(&fakeSource{text: "0123456789abcdefghij"}, m, nil)

	first, err := a.Ask(context.Background(), "q")
	require.NoError(t, err)
	second, err := a.Ask(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, "final", first)
	assert.Equal(t, first, second)
}

func TestAskExtractsDocumentOnce(t *testing.T) {
	src := &fakeSource{text: "short doc", delay: 10 * time.Millisecond}
	m := new(llm.MockClient)
	m.On("Generate", mock.Anything, mock.Anything).Return("", nil)
	a := newTestAgent(src, m, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = a.Ask(context.Background(), "q")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestMissingDocumentIsNotCached(t *testing.T) {
	src := &fakeSource{text: extractor.NotFound}
	a := newTestAgent(src, new(llm.MockClient), nil)

	assert.Equal(t, extractor.NotFound, a.Document())
	assert.Equal(t, extractor.NotFound, a.Document())
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestReload(t *testing.T) {
	src := &fakeSource{text: "version one"}
	c := cache.NewMemoryCache(time.Minute)
	a := newTestAgent(src, new(llm.MockClient), c)
	ctx := context.Background()

	assert.Equal(t, "version one", a.Document())
	require.NoError(t, c.Set(ctx, "k", "stale", 0))

	src.text = "version two"
	assert.Equal(t, "version one", a.Document(), "text is cached until reload")

	require.NoError(t, a.Reload(ctx))

	assert.Equal(t, "version two", a.Document())
	_, found, _ := c.Get(ctx, "k")
	assert.False(t, found, "reload flushes cached answers")
}

// gatedLLM holds the first chunk call on the old document until released.
type gatedLLM struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	switch {
	case isChunkPrompt(prompt) && strings.Contains(prompt, "version 1"):
		g.once.Do(func() { close(g.started) })
		<-g.release
		return "old fragment", nil
	case isChunkPrompt(prompt):
		return "new fragment", nil
	case strings.Contains(prompt, "old fragment"):
		return "OLD ANSWER", nil
	default:
		return "NEW ANSWER", nil
	}
}

func TestReloadDuringAskDoesNotCacheStaleAnswer(t *testing.T) {
	src := &fakeSource{text: "version 1"}
	client := &gatedLLM{started: make(chan struct{}), release: make(chan struct{})}
	a := newTestAgent(src, client, cache.NewMemoryCache(time.Minute))
	ctx := context.Background()

	done := make(chan string)
	go func() {
		answer, err := a.Ask(ctx, "q")
		assert.NoError(t, err)
		done <- answer
	}()

	<-client.started
	src.text = "version 2"
	require.NoError(t, a.Reload(ctx))
	close(client.release)
	assert.Equal(t, "OLD ANSWER", <-done)

	got, err := a.Ask(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "NEW ANSWER", got)
}

func TestReloadFlushError(t *testing.T) {
	c := new(cache.MockCache)
	c.On("Flush", mock.Anything).Return(errors.New("redis down")).Once()
	a := newTestAgent(&fakeSource{}, new(llm.MockClient), c)

	assert.ErrorContains(t, a.Reload(context.Background()), "redis down")
}

func TestAskUsesAnswerCache(t *testing.T) {
	m := new(llm.MockClient)
	m.On("Generate", mock.Anything, mock.MatchedBy(isChunkPrompt)).Return("fragment", nil).Once()
	m.On("Generate", mock.Anything, mock.Anything).Return("final", nil).Once()

	a := newTestAgent(&fakeSource{text: "0123456789"}, m, cache.NewMemoryCache(time.Minute))

	first, err := a.Ask(context.Background(), "q")
	require.NoError(t, err)
	second, err := a.Ask(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, "final", first)
	assert.Equal(t, "final", second)
	m.AssertExpectations(t)
}

func TestAskIgnoresCacheFailures(t *testing.T) {
	c := new(cache.MockCache)
	c.On("Get", mock.Anything, mock.Anything).Return("", false, errors.New("redis down"))
	c.On("Set", mock.Anything, mock.Anything, NotFound, mock.Anything).Return(errors.New("redis down"))

	m := new(llm.MockClient)
	m.On("Generate", mock.Anything, mock.Anything).Return("", nil)

	a := newTestAgent(&fakeSource{text: "0123456789"}, m, c)
	got, err := a.Ask(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, NotFound, got)
	c.AssertExpectations(t)
}

func TestAskDoesNotCacheErrors(t *testing.T) {
	c := new(cache.MockCache)
	c.On("Get", mock.Anything, mock.Anything).Return("", false, nil)

	m := new(llm.MockClient)
	m.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("boom"))

	a := newTestAgent(&fakeSource{text: "0123456789"}, m, c)
	_, err := a.Ask(context.Background(), "q")

	require.Error(t, err)
	c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
