package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/linkrank/core"
)

const (
	defaultGoogleURL     = "https://www.googleapis.com/customsearch/v1"
	defaultGoogleTimeout = 15 * time.Second
	redacted             = "REDACTED"
)

// GoogleProvider implements the Google Custom Search JSON API.
type GoogleProvider struct {
	apiURL string
	client *http.Client
}

var _ Provider = (*GoogleProvider)(nil)

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(apiURL string) GoogleOption {
	return func(p *GoogleProvider) {
		if strings.TrimSpace(apiURL) != "" {
			p.apiURL = apiURL
		}
	}
}

// WithHTTPClient sets the HTTP client.
// Default has a 15 second timeout.
func WithHTTPClient(client *http.Client) GoogleOption {
	return func(p *GoogleProvider) {
		if client != nil {
			p.client = client
		}
	}
}

// NewGoogleProvider creates a Google Custom Search provider.
func NewGoogleProvider(opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		apiURL: defaultGoogleURL,
		client: &http.Client{Timeout: defaultGoogleTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the metrics label for this provider.
func (p *GoogleProvider) Name() string {
	return "google"
}

// Search executes a query against the Custom Search API.
func (p *GoogleProvider) Search(ctx context.Context, creds Credentials, query string) (*RawResponse, error) {
	endpoint, err := url.Parse(p.apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse google url: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", creds.APIKey)
	q.Set("cx", creds.EngineID)
	q.Set("q", query)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create google request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google request failed: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("google request failed with status %d", resp.StatusCode)
	}

	var decoded RawResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMalformedPayload, err)
	}

	return &decoded, nil
}

// redactURLError strips the API key from the request URL carried by
// net/http errors.
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	u, parseErr := url.Parse(urlErr.URL)
	if parseErr != nil {
		return &url.Error{Op: urlErr.Op, URL: redacted, Err: urlErr.Err}
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", redacted)
		u.RawQuery = q.Encode()
	}
	return &url.Error{Op: urlErr.Op, URL: u.String(), Err: urlErr.Err}
}
