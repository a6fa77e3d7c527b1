package linkrank

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/poiesic/linkrank/ai"
	"github.com/poiesic/linkrank/ai/mock"
	"github.com/poiesic/linkrank/config"
	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/dispatch"
	"github.com/poiesic/linkrank/websearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearch struct {
	resp *websearch.RawResponse
	err  error
}

func (s *stubSearch) Search(ctx context.Context, creds websearch.Credentials, q string) (*websearch.RawResponse, error) {
	return s.resp, s.err
}

type collectingSink struct {
	mu         sync.Mutex
	placements []core.Placement
}

func (c *collectingSink) Place(ctx context.Context, p core.Placement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placements = append(c.placements, p)
	return nil
}

func (c *collectingSink) Placements() []core.Placement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Placement(nil), c.placements...)
}

func memoryConfig() config.Config {
	cfg := config.Default()
	cfg.Storage.InMemory = true
	cfg.Storage.Path = ""
	cfg.Search.APIKey = "key"
	cfg.Search.EngineID = "cx"
	return cfg
}

func newTestEngine(t *testing.T, cfg config.Config, search websearch.Provider) (*Engine, *collectingSink, *mock.MockChatModel) {
	t.Helper()
	sink := &collectingSink{}
	chat := mock.NewMockChatModel()
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), chat)

	e, err := NewEngine(cfg, sink, WithAIProvider(provider), WithSearchProvider(search))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, sink, chat
}

func TestNewEngine(t *testing.T) {
	t.Run("requires sink", func(t *testing.T) {
		e, err := NewEngine(memoryConfig(), nil)
		assert.ErrorIs(t, err, ErrSinkRequired)
		assert.Nil(t, e)
	})

	t.Run("on disk", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.Storage.InMemory = false
		cfg.Storage.Path = filepath.Join(t.TempDir(), "test_db")

		e, err := NewEngine(cfg, &collectingSink{}, WithAIProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, e)

		assert.NotNil(t, e.TurnRepository())
		assert.NotNil(t, e.EmbeddingCacheRepository())
		assert.NotNil(t, e.Pipeline())
		assert.NoError(t, e.Close())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

		cfg := memoryConfig()
		cfg.Storage.InMemory = false
		cfg.Storage.Path = tmpFile

		e, err := NewEngine(cfg, &collectingSink{}, WithAIProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, e)
	})

	t.Run("builds openai provider from config", func(t *testing.T) {
		e, err := NewEngine(memoryConfig(), &collectingSink{})
		require.NoError(t, err)
		assert.NoError(t, e.Close())
	})
}

func TestEngine_Search(t *testing.T) {
	search := &stubSearch{resp: &websearch.RawResponse{Items: []websearch.RawSearchResult{
		{Title: "Ownership", Link: "https://doc.rust-lang.org/book/ch04-01-what-is-ownership.html", Snippet: "Ownership is a set of rules."},
		{Title: "Borrowing", Link: "https://doc.rust-lang.org/book/ch04-02-references-and-borrowing.html", Snippet: "References and borrowing."},
	}}}
	e, sink, chat := newTestEngine(t, memoryConfig(), search)
	chat.CompleteFunc = func(ctx context.Context, msgs []ai.Message, opts ai.CompletionOptions) (string, error) {
		return `"rust ownership rules"`, nil
	}

	outcome, err := e.Search(context.Background(), "how does rust ownership work")
	require.NoError(t, err)
	e.Wait()

	assert.Equal(t, "rust ownership rules", outcome.Query)
	assert.Len(t, outcome.Ranked, 2)
	assert.Len(t, sink.Placements(), 2)

	// Candidate and message embeddings land in the cache
	count, err := e.EmbeddingCacheRepository().CountEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestEngine_SearchMissingCredentials(t *testing.T) {
	cfg := memoryConfig()
	cfg.Search.APIKey = ""

	var notices []error
	sink := &collectingSink{}
	e, err := NewEngine(cfg, sink,
		WithAIProvider(mock.NewMockProvider()),
		WithSearchProvider(&stubSearch{}),
		WithNotifier(websearch.NotifierFunc(func(ctx context.Context, err error) {
			notices = append(notices, err)
		})))
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, core.ErrConfiguration)
	require.Len(t, notices, 1)

	e.SetCredentials(websearch.Credentials{APIKey: "key", EngineID: "cx"})
	_, err = e.Search(context.Background(), "anything")
	assert.NoError(t, err)
}

func TestEngine_ProcessLinkInput(t *testing.T) {
	e, sink, chat := newTestEngine(t, memoryConfig(), &stubSearch{err: errors.New("unused")})

	outcome, err := e.ProcessLinkInput(context.Background(), "https://go.dev")
	require.NoError(t, err)
	e.Wait()

	assert.True(t, outcome.Locator)
	assert.Equal(t, 0, chat.CallCount())
	require.Len(t, sink.Placements(), 1)
	assert.Equal(t, core.Placement{Link: "https://go.dev", Label: "https://go.dev"}, sink.Placements()[0])
}

func TestEngine_HistoryFeedsKeywords(t *testing.T) {
	e, _, chat := newTestEngine(t, memoryConfig(), &stubSearch{})
	ctx := context.Background()

	// No history: heuristic, no model call
	got := e.ExtractKeywords(ctx, "a bb ccc", 2)
	assert.Equal(t, []string{"ccc", "bb"}, got)
	assert.Equal(t, 0, chat.CallCount())

	_, err := e.Remember(ctx, "tell me about badger", "badger is an embeddable key-value store")
	require.NoError(t, err)

	snapshot, err := e.Snapshot(ctx, 2, 150)
	require.NoError(t, err)
	assert.Contains(t, snapshot, "Prompt: tell me about badger")

	var systemPrompt string
	chat.CompleteFunc = func(ctx context.Context, msgs []ai.Message, opts ai.CompletionOptions) (string, error) {
		systemPrompt = msgs[0].Content
		return `"badger", "storage", "go"`, nil
	}

	got = e.ExtractKeywords(ctx, "what else is there", 3)
	assert.Equal(t, []string{"badger", "storage", "go"}, got)
	assert.Contains(t, systemPrompt, "badger is an embeddable key-value store")
}

func TestEngine_Close(t *testing.T) {
	e, err := NewEngine(memoryConfig(), dispatch.SinkFunc(func(context.Context, core.Placement) error { return nil }),
		WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.NoError(t, e.Close())
}
