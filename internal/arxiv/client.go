// Package arxiv is a small client for the arXiv export API. It proposes
// papers for expansion when a topic has no cached neighbours.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aigraph/aigraph/internal/enrich"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the arXiv export API query endpoint.
	BaseURL = "http://export.arxiv.org/api/query"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RequestInterval is the minimum spacing between requests asked for by
	// the arXiv API terms of use.
	RequestInterval = 3 * time.Second

	// DefaultMaxResults is used when a non-positive count is requested.
	DefaultMaxResults = 5
)

// Client is a rate-limited HTTP client for the arXiv export API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

var _ enrich.PaperSource = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithRateLimit overrides the request rate.
func WithRateLimit(limit rate.Limit) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, 1)
	}
}

// NewClient creates a new arXiv client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(RequestInterval), 1),
		baseURL:    BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RelatedPapers searches all fields for query, newest submissions first.
// Failures are wrapped with enrich.ErrUnavailable.
func (c *Client) RelatedPapers(ctx context.Context, query string, count int) ([]enrich.PaperCandidate, error) {
	papers, err := c.Search(ctx, query, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", enrich.ErrUnavailable, err)
	}
	return papers, nil
}

// Search runs a query against the export API.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]enrich.PaperCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	body, err := c.get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var f feed
	if err := xml.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	out := make([]enrich.PaperCandidate, 0, len(f.Entries))
	for _, e := range f.Entries {
		p := toCandidate(e)
		if p.ExternalID == "" || p.Title == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}
	return body, nil
}

var (
	versionSuffix = regexp.MustCompile(`v\d+$`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// ExternalID extracts the bare arXiv identifier from an abs URL, dropping
// the version suffix: "http://arxiv.org/abs/1706.03762v7" -> "1706.03762".
func ExternalID(absURL string) string {
	id := strings.TrimSpace(absURL)
	if i := strings.Index(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	return versionSuffix.ReplaceAllString(id, "")
}

func toCandidate(e entry) enrich.PaperCandidate {
	names := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if n := strings.TrimSpace(a.Name); n != "" {
			names = append(names, n)
		}
	}

	link := strings.TrimSpace(e.ID)
	for _, l := range e.Links {
		if l.Rel == "alternate" && l.Href != "" {
			link = l.Href
			break
		}
	}

	published := strings.TrimSpace(e.Published)
	if len(published) >= len("2006-01-02") {
		published = published[:len("2006-01-02")]
	}

	return enrich.PaperCandidate{
		ExternalID:    ExternalID(e.ID),
		Title:         collapse(e.Title),
		Authors:       strings.Join(names, ", "),
		Summary:       collapse(e.Summary),
		PublishedDate: published,
		URL:           link,
	}
}

// collapse folds the hard-wrapped whitespace arXiv puts in titles and abstracts.
func collapse(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
