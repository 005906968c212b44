package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aigraph/aigraph/internal/enrich"
	"github.com/aigraph/aigraph/internal/logger"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves chat completions. Requests with a response_format get
// listReply; plain requests are veracity ratings and get rateReply.
type fakeAPI struct {
	listReply string
	rateReply string
	failLists bool
	listCalls atomic.Int32
	rateCalls atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	content := f.rateReply
	if _, structured := req["response_format"]; structured {
		f.listCalls.Add(1)
		if f.failLists {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
			return
		}
		content = f.listReply
	} else {
		f.rateCalls.Add(1)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 0,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	})
}

func newTestClient(t *testing.T, api *fakeAPI, verify bool) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		APIKey:       "test-key",
		BaseURL:      srv.URL + "/",
		Model:        "test-model",
		RateLimit:    1000,
		VerifyScores: verify,
	}, logger.Discard(), option.WithMaxRetries(0))
	require.NoError(t, err)
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestRelatedTopics_ScoresOnlyUnscored(t *testing.T) {
	api := &fakeAPI{
		listReply: `{"topics":[
			{"name":"Deep Learning","description":"Neural networks with many layers","score":0.9},
			{"name":"Attention","description":"Weighting inputs"}
		]}`,
		rateReply: "0.7",
	}
	c := newTestClient(t, api, false)

	got, err := c.RelatedTopics(context.Background(), "Topic: Transformers\n", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Deep Learning", got[0].Name)
	assert.InDelta(t, 0.9, got[0].Score, 1e-9)
	assert.Equal(t, "Attention", got[1].Name)
	assert.InDelta(t, 0.7, got[1].Score, 1e-9)
	assert.Equal(t, int32(1), api.listCalls.Load())
	assert.Equal(t, int32(1), api.rateCalls.Load())
}

func TestRelatedTopics_VerifyScores(t *testing.T) {
	api := &fakeAPI{
		listReply: `{"topics":[{"name":"A","description":"a","score":0.9},{"name":"B","description":"b","score":0.8},{"name":"C","description":"c","score":0.1}]}`,
		rateReply: "not a number",
	}
	c := newTestClient(t, api, true)

	got, err := c.RelatedTopics(context.Background(), "Topic: X\n", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, cand := range got {
		assert.InDelta(t, enrich.DefaultScore, cand.Score, 1e-9, cand.Name)
	}
	assert.Equal(t, int32(3), api.rateCalls.Load())
}

func TestRelatedTools(t *testing.T) {
	api := &fakeAPI{
		listReply: "```json\n" + `{"tools":[{"name":"PyTorch","description":"Tensors","category":"Machine Learning Framework","url":"https://pytorch.org","score":0.95}]}` + "\n```",
	}
	c := newTestClient(t, api, false)

	got, err := c.RelatedTools(context.Background(), "Topic: Deep Learning\n", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "PyTorch", got[0].Name)
	assert.Equal(t, "Machine Learning Framework", got[0].Category)
	assert.Equal(t, "https://pytorch.org", got[0].URL)
	assert.InDelta(t, 0.95, got[0].Score, 1e-9)
	assert.Zero(t, api.rateCalls.Load())
}

func TestRelatedTopics_Unavailable(t *testing.T) {
	api := &fakeAPI{failLists: true}
	c := newTestClient(t, api, false)

	_, err := c.RelatedTopics(context.Background(), "Topic: X\n", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, enrich.ErrUnavailable))
}

func TestRelatedTopics_EmptyReply(t *testing.T) {
	api := &fakeAPI{listReply: "   "}
	c := newTestClient(t, api, false)

	_, err := c.RelatedTopics(context.Background(), "Topic: X\n", 3)
	assert.ErrorIs(t, err, enrich.ErrUnavailable)
}

func TestGenerateSchema(t *testing.T) {
	raw, err := json.Marshal(generateSchema(topicsResponse{}))
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, `"topics"`)
	assert.Contains(t, s, `"additionalProperties":false`)
	assert.NotContains(t, s, `"$ref"`)
}
