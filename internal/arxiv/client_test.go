package arxiv

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aigraph/aigraph/internal/enrich"
	"golang.org/x/time/rate"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">
  <title type="html">ArXiv Query</title>
  <opensearch:totalResults>2</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <published>2017-06-12T17:57:34Z</published>
    <title>Attention Is All
      You Need</title>
    <summary>  The dominant sequence transduction models are based on
      complex recurrent or convolutional neural networks.
    </summary>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <link href="http://arxiv.org/abs/1706.03762v7" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v7" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id></id>
    <title>Broken entry</title>
  </entry>
</feed>`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL), WithRateLimit(rate.Inf))
}

func TestSearch(t *testing.T) {
	var gotQuery, gotSort string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		gotSort = r.URL.Query().Get("sortBy")
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	})

	papers, err := c.Search(context.Background(), "Transformers", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotQuery != "all:Transformers" {
		t.Errorf("search_query = %q, want all:Transformers", gotQuery)
	}
	if gotSort != "submittedDate" {
		t.Errorf("sortBy = %q, want submittedDate", gotSort)
	}
	if len(papers) != 1 {
		t.Fatalf("len(papers) = %d, want 1", len(papers))
	}

	p := papers[0]
	if p.ExternalID != "1706.03762" {
		t.Errorf("ExternalID = %q", p.ExternalID)
	}
	if p.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Authors != "Ashish Vaswani, Noam Shazeer" {
		t.Errorf("Authors = %q", p.Authors)
	}
	if p.PublishedDate != "2017-06-12" {
		t.Errorf("PublishedDate = %q", p.PublishedDate)
	}
	if p.URL != "http://arxiv.org/abs/1706.03762v7" {
		t.Errorf("URL = %q", p.URL)
	}
	want := "The dominant sequence transduction models are based on complex recurrent or convolutional neural networks."
	if p.Summary != want {
		t.Errorf("Summary = %q", p.Summary)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	papers, err := c.Search(context.Background(), "  ", 3)
	if err != nil || papers != nil {
		t.Errorf("Search(blank) = %v, %v; want nil, nil", papers, err)
	}
	if called {
		t.Error("blank query should not hit the API")
	}
}

func TestRelatedPapers_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, "", IsRateLimited},
		{"unavailable", http.StatusServiceUnavailable, "", IsRateLimited},
		{"bad xml", http.StatusOK, "<feed", func(err error) bool { return errors.Is(err, ErrInvalidResponse) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.RelatedPapers(context.Background(), "graphs", 2)
			if !errors.Is(err, enrich.ErrUnavailable) {
				t.Errorf("error %v does not wrap ErrUnavailable", err)
			}
			if !tt.check(err) {
				t.Errorf("error %v failed classification", err)
			}
		})
	}
}

func TestExternalID(t *testing.T) {
	tests := map[string]string{
		"http://arxiv.org/abs/1706.03762v7":    "1706.03762",
		"https://arxiv.org/abs/cs/9901001v1":   "cs/9901001",
		"1810.04805":                           "1810.04805",
		" http://arxiv.org/abs/2401.00001v12 ": "2401.00001",
	}
	for in, want := range tests {
		if got := ExternalID(in); got != want {
			t.Errorf("ExternalID(%q) = %q, want %q", in, got, want)
		}
	}
}
