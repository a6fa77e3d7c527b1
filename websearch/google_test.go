package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/linkrank/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{APIKey: "secret-key", EngineID: "engine-1"}

func TestGoogleSearch(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"key": r.URL.Query().Get("key"),
			"cx":  r.URL.Query().Get("cx"),
			"q":   r.URL.Query().Get("q"),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"kind": "customsearch#search",
			"items": []map[string]string{
				{"title": "The Rust Book: Ownership", "link": "https://doc.rust-lang.org/book/ch04-00.html", "snippet": "Ownership is Rust's most unique feature"},
				{"title": "Rust by Example", "link": "https://doc.rust-lang.org/rust-by-example/", "snippet": "A collection of runnable examples"},
			},
		})
	}))
	defer server.Close()

	provider := NewGoogleProvider(WithBaseURL(server.URL))
	resp, err := provider.Search(context.Background(), testCreds, "rust ownership & borrowing")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"key": "secret-key", "cx": "engine-1", "q": "rust ownership & borrowing"}, gotQuery)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, RawSearchResult{
		Title:   "The Rust Book: Ownership",
		Link:    "https://doc.rust-lang.org/book/ch04-00.html",
		Snippet: "Ownership is Rust's most unique feature",
	}, resp.Items[0])
}

func TestGoogleSearch_MissingItems(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"kind":"customsearch#search","searchInformation":{"totalResults":"0"}}`))
	}))
	defer server.Close()

	resp, err := NewGoogleProvider(WithBaseURL(server.URL)).Search(context.Background(), testCreds, "zzzz")
	require.NoError(t, err)
	assert.Nil(t, resp.Items)
}

func TestGoogleSearch_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		body          string
		wantMalformed bool
	}{
		{"forbidden", http.StatusForbidden, `{"error":{"code":403}}`, false},
		{"server error", http.StatusInternalServerError, "", false},
		{"not json", http.StatusOK, "<html>", true},
		{"wrong shape", http.StatusOK, `{"items":"nope"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewGoogleProvider(WithBaseURL(server.URL)).Search(context.Background(), testCreds, "q")
			require.Error(t, err)
			assert.Equal(t, tt.wantMalformed, errors.Is(err, core.ErrMalformedPayload))
		})
	}
}

func TestGoogleSearch_TransportErrorRedactsKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewGoogleProvider(WithBaseURL(url)).Search(context.Background(), testCreds, "q")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
	assert.Contains(t, err.Error(), redacted)
}

func TestGoogleProvider_Defaults(t *testing.T) {
	p := NewGoogleProvider(WithBaseURL("  "), WithHTTPClient(nil))
	assert.Equal(t, defaultGoogleURL, p.apiURL)
	assert.Equal(t, defaultGoogleTimeout, p.client.Timeout)
	assert.Equal(t, "google", p.Name())
}
