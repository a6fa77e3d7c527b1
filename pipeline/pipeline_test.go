package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/linkrank/ai"
	"github.com/poiesic/linkrank/ai/mock"
	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/dispatch"
	"github.com/poiesic/linkrank/query"
	"github.com/poiesic/linkrank/rank"
	"github.com/poiesic/linkrank/websearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu      sync.Mutex
	queries []string
	resp    *websearch.RawResponse
	err     error
}

func (f *fakeProvider) Search(ctx context.Context, creds websearch.Credentials, q string) (*websearch.RawResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.resp, f.err
}

func (f *fakeProvider) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type placementRecorder struct {
	mu         sync.Mutex
	placements []core.Placement
}

func (r *placementRecorder) Place(ctx context.Context, p core.Placement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placements = append(r.placements, p)
	return nil
}

func (r *placementRecorder) Links() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	links := make([]string, len(r.placements))
	for i, p := range r.placements {
		links[i] = p.Link
	}
	return links
}

type harness struct {
	pipeline   *Pipeline
	chat       *mock.MockChatModel
	embedder   *mock.MockEmbedder
	provider   *fakeProvider
	dispatcher *dispatch.Dispatcher
	sink       *placementRecorder
	notices    []error
}

var testCreds = websearch.Credentials{APIKey: "key", EngineID: "cx"}

func newHarness(t *testing.T, creds websearch.Credentials, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		chat:     mock.NewMockChatModel(),
		embedder: mock.NewMockEmbedder(),
		provider: &fakeProvider{},
		sink:     &placementRecorder{},
	}

	dispatcher, err := dispatch.NewDispatcher(h.sink, dispatch.WithPoolSize(1))
	require.NoError(t, err)
	h.dispatcher = dispatcher
	t.Cleanup(func() { _ = dispatcher.Close() })

	composer, err := query.NewComposer(h.chat, dispatcher)
	require.NoError(t, err)

	executor, err := websearch.NewExecutor(h.provider,
		websearch.WithCredentials(creds),
		websearch.WithNotifier(websearch.NotifierFunc(func(ctx context.Context, err error) {
			h.notices = append(h.notices, err)
		})))
	require.NoError(t, err)

	ranker, err := rank.NewRanker(h.embedder, rank.WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(ranker.Release)

	p, err := NewPipeline(composer, executor, ranker, dispatcher, opts...)
	require.NoError(t, err)
	h.pipeline = p
	return h
}

// useVectors makes the embedder return fixed vectors, falling back to
// the mock's deterministic vectors for unknown text.
func (h *harness) useVectors(vectors map[string][]float32) {
	fallback := mock.NewMockEmbedder()
	h.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if v, ok := vectors[text]; ok {
			return v, nil
		}
		return fallback.EmbedText(ctx, text)
	}
}

func rawResults(titles ...string) *websearch.RawResponse {
	resp := &websearch.RawResponse{}
	for _, title := range titles {
		resp.Items = append(resp.Items, websearch.RawSearchResult{
			Title:   title,
			Link:    "https://" + title + ".example",
			Snippet: title + " snippet",
		})
	}
	return resp
}

func TestNewPipeline(t *testing.T) {
	dispatcher, err := dispatch.NewDispatcher(dispatch.SinkFunc(func(context.Context, core.Placement) error { return nil }))
	require.NoError(t, err)
	defer dispatcher.Close()
	composer, err := query.NewComposer(mock.NewMockChatModel(), dispatcher)
	require.NoError(t, err)
	executor, err := websearch.NewExecutor(&fakeProvider{})
	require.NoError(t, err)
	ranker, err := rank.NewRanker(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer ranker.Release()

	tests := []struct {
		name string
		fn   func() (*Pipeline, error)
		want error
	}{
		{"nil composer", func() (*Pipeline, error) { return NewPipeline(nil, executor, ranker, dispatcher) }, ErrComposerRequired},
		{"nil executor", func() (*Pipeline, error) { return NewPipeline(composer, nil, ranker, dispatcher) }, ErrExecutorRequired},
		{"nil ranker", func() (*Pipeline, error) { return NewPipeline(composer, executor, nil, dispatcher) }, ErrRankerRequired},
		{"nil dispatcher", func() (*Pipeline, error) { return NewPipeline(composer, executor, ranker, nil) }, ErrDispatcherRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.fn()
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRun_SearchRankDispatch(t *testing.T) {
	h := newHarness(t, testCreds, WithTopN(2))
	h.chat.CompleteFunc = func(ctx context.Context, msgs []ai.Message, opts ai.CompletionOptions) (string, error) {
		return `"rust borrow checker"`, nil
	}
	h.provider.resp = rawResults("a", "b", "c")
	h.useVectors(map[string][]float32{
		"how does rust ownership work": {1, 0},
		"a a snippet":                  {0.8, 0.6},
		"b b snippet":                  {1, 0.05},
		"c c snippet":                  {0, 1},
	})

	outcome, err := h.pipeline.Run(context.Background(), "how does rust ownership work")
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, "rust borrow checker", outcome.Query)
	assert.False(t, outcome.Locator)
	assert.Len(t, outcome.Candidates, 3)
	require.Len(t, outcome.Ranked, 2)
	assert.Equal(t, "b", outcome.Ranked[0].Title)
	assert.Equal(t, "a", outcome.Ranked[1].Title)

	assert.Equal(t, []string{"rust borrow checker"}, h.provider.Queries())
	// Single-worker pool keeps placement order
	assert.Equal(t, []string{"https://b.example", "https://a.example"}, h.sink.Links())
}

func TestRun_Locator(t *testing.T) {
	h := newHarness(t, testCreds)

	outcome, err := h.pipeline.Run(context.Background(), "  https://example.com/page  ")
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.True(t, outcome.Locator)
	assert.Equal(t, "https://example.com/page", outcome.Query)
	assert.Equal(t, 0, h.chat.CallCount())
	assert.Empty(t, h.provider.Queries())
	assert.Equal(t, 0, h.embedder.CallCount())
	assert.Equal(t, []string{"https://example.com/page"}, h.sink.Links())
}

func TestRun_MissingCredentials(t *testing.T) {
	h := newHarness(t, websearch.Credentials{APIKey: "key"})

	_, err := h.pipeline.Run(context.Background(), "anything")
	h.dispatcher.Wait()

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Empty(t, h.provider.Queries())
	assert.Equal(t, 0, h.embedder.CallCount())
	assert.Empty(t, h.sink.Links())
	require.Len(t, h.notices, 1)
}

func TestRun_SearchUnavailable(t *testing.T) {
	h := newHarness(t, testCreds)
	h.provider.err = errors.New("connection refused")

	outcome, err := h.pipeline.Run(context.Background(), "anything")
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Empty(t, outcome.Candidates)
	assert.Empty(t, outcome.Ranked)
	assert.Equal(t, 0, h.embedder.CallCount())
	assert.Empty(t, h.sink.Links())
	require.Len(t, h.notices, 1)
	assert.ErrorIs(t, h.notices[0], core.ErrSearchUnavailable)
}

func TestRun_EmbeddingFailure(t *testing.T) {
	h := newHarness(t, testCreds)
	h.provider.resp = rawResults("a", "b")
	h.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	outcome, err := h.pipeline.Run(context.Background(), "anything")
	h.dispatcher.Wait()

	assert.ErrorIs(t, err, core.ErrEmbeddingFailure)
	assert.Len(t, outcome.Candidates, 2)
	assert.Empty(t, outcome.Ranked)
	assert.Empty(t, h.sink.Links())
}

func TestRun_ComposerDegradesToMessage(t *testing.T) {
	h := newHarness(t, testCreds)
	h.chat.CompleteFunc = func(ctx context.Context, msgs []ai.Message, opts ai.CompletionOptions) (string, error) {
		return "", errors.New("model offline")
	}
	h.provider.resp = rawResults("a")

	outcome, err := h.pipeline.Run(context.Background(), "raw message")
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, "raw message", outcome.Query)
	assert.Equal(t, []string{"raw message"}, h.provider.Queries())
	assert.Len(t, h.sink.Links(), 1)
}

func TestRun_PassesRequestOptions(t *testing.T) {
	h := newHarness(t, testCreds)
	var captured []ai.Message
	var target ai.NodeRef
	h.chat.CompleteFunc = func(ctx context.Context, msgs []ai.Message, opts ai.CompletionOptions) (string, error) {
		captured = msgs
		target = opts.Target
		return `"q"`, nil
	}
	h.provider.resp = rawResults()

	_, err := h.pipeline.Run(context.Background(), "msg",
		query.WithContext("earlier talk"),
		query.WithTarget(ai.NodeRef("node-1")))
	require.NoError(t, err)

	require.NotEmpty(t, captured)
	assert.Contains(t, captured[0].Content, "earlier talk")
	assert.Equal(t, ai.NodeRef("node-1"), target)
}

func TestRun_BlankMessage(t *testing.T) {
	for _, msg := range []string{"", "  \t "} {
		t.Run(fmt.Sprintf("%q", msg), func(t *testing.T) {
			h := newHarness(t, testCreds)
			h.provider.resp = rawResults("a")

			outcome, err := h.pipeline.Run(context.Background(), msg)
			require.NoError(t, err)
			h.dispatcher.Wait()

			assert.Equal(t, Outcome{}, outcome)
			assert.Equal(t, 0, h.chat.CallCount())
			assert.Empty(t, h.provider.Queries())
			assert.Equal(t, 0, h.embedder.CallCount())
			assert.Empty(t, h.sink.Links())
		})
	}
}

func TestHandleNaturalLanguageSearch(t *testing.T) {
	h := newHarness(t, testCreds)
	h.provider.resp = rawResults("a", "b")

	outcome, err := h.pipeline.HandleNaturalLanguageSearch(context.Background(), "go generics")
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, "go generics", outcome.Query)
	assert.Equal(t, 0, h.chat.CallCount(), "no query composition")
	assert.Equal(t, []string{"go generics"}, h.provider.Queries())
	assert.Contains(t, h.embedder.Texts(), "go generics")
	assert.Len(t, h.sink.Links(), 2)
}

func TestHandleNaturalLanguageSearch_Blank(t *testing.T) {
	h := newHarness(t, testCreds)

	outcome, err := h.pipeline.HandleNaturalLanguageSearch(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, outcome)
	assert.Empty(t, h.provider.Queries())
}

func TestProcessLinkInput(t *testing.T) {
	t.Run("locator", func(t *testing.T) {
		h := newHarness(t, testCreds)

		outcome, err := h.pipeline.ProcessLinkInput(context.Background(), "https://go.dev/doc")
		require.NoError(t, err)
		h.dispatcher.Wait()

		assert.True(t, outcome.Locator)
		assert.Equal(t, []string{"https://go.dev/doc"}, h.sink.Links())
		assert.Empty(t, h.provider.Queries())
	})

	t.Run("natural language", func(t *testing.T) {
		h := newHarness(t, testCreds)
		h.provider.resp = rawResults("a")

		outcome, err := h.pipeline.ProcessLinkInput(context.Background(), "go tutorials")
		require.NoError(t, err)
		h.dispatcher.Wait()

		assert.False(t, outcome.Locator)
		assert.Equal(t, 0, h.chat.CallCount())
		assert.Equal(t, []string{"go tutorials"}, h.provider.Queries())
		assert.Equal(t, []string{"https://a.example"}, h.sink.Links())
	})
}
