package websearch

import "context"

// Provider defines the interface for web search providers.
type Provider interface {
	// Search issues one request for query. Transport failures and non-2xx
	// statuses are returned as errors; an undecodable body is returned as
	// core.ErrMalformedPayload.
	Search(ctx context.Context, creds Credentials, query string) (*RawResponse, error)
}

// RawResponse is the provider payload. Items is nil when the provider
// omitted it.
type RawResponse struct {
	Items []RawSearchResult `json:"items"`
}

// RawSearchResult is a single provider record.
type RawSearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// namer is implemented by providers that report a metrics label.
type namer interface {
	Name() string
}

func providerName(p Provider) string {
	if n, ok := p.(namer); ok {
		return n.Name()
	}
	return "custom"
}
