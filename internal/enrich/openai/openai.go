// Package openai implements an enrichment source backed by an
// OpenAI-compatible chat completion API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/aigraph/aigraph/internal/enrich"
	"github.com/aigraph/aigraph/internal/logger"
	"github.com/charmbracelet/log"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "gpt-4o-mini"

	// DefaultRateLimit is requests per second across all calls of a Client.
	DefaultRateLimit = 2.0

	// DefaultScoreConcurrency bounds parallel veracity ratings.
	DefaultScoreConcurrency = 4

	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 60 * time.Second
)

// ErrNoAPIKey is returned by New when no API key is configured.
var ErrNoAPIKey = errors.New("OpenAI API key not configured")

// Config configures a Client.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	Temperature      float64
	RateLimit        float64 // requests per second
	ScoreConcurrency int
	// VerifyScores rates every candidate with a separate veracity prompt.
	// When false only candidates returned without a score are rated.
	VerifyScores bool
	Timeout      time.Duration
}

// Client is a rate-limited enrichment source.
type Client struct {
	chat             openai.Client
	model            string
	temperature      float64
	limiter          *rate.Limiter
	scoreConcurrency int
	verifyScores     bool
	timeout          time.Duration
	log              *log.Logger
}

var _ enrich.Source = (*Client)(nil)

// New creates a client. Extra request options are appended after the ones
// derived from cfg.
func New(cfg Config, l *log.Logger, opts ...option.RequestOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	options := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	options = append(options, opts...)

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.ScoreConcurrency <= 0 {
		cfg.ScoreConcurrency = DefaultScoreConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if l == nil {
		l = logger.With("openai")
	}

	return &Client{
		chat:             openai.NewClient(options...),
		model:            cfg.Model,
		temperature:      cfg.Temperature,
		limiter:          rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		scoreConcurrency: cfg.ScoreConcurrency,
		verifyScores:     cfg.VerifyScores,
		timeout:          cfg.Timeout,
		log:              l,
	}, nil
}

// topicItem and toolItem define the structured output schema.
type topicItem struct {
	Name        string  `json:"name" jsonschema:"description=Short name of the related topic"`
	Description string  `json:"description" jsonschema:"description=One or two sentence explanation"`
	Score       float64 `json:"score" jsonschema:"description=Plausibility that the topic is real and related, from 0 to 1"`
}

type topicsResponse struct {
	Topics []topicItem `json:"topics"`
}

type toolItem struct {
	Name        string  `json:"name" jsonschema:"description=Name of the tool, library or framework"`
	Description string  `json:"description" jsonschema:"description=One or two sentence explanation"`
	Category    string  `json:"category" jsonschema:"description=Kind of tool, e.g. Machine Learning Framework"`
	URL         string  `json:"url" jsonschema:"description=Official website, empty if unknown"`
	Score       float64 `json:"score" jsonschema:"description=Plausibility that the tool exists and is related, from 0 to 1"`
}

type toolsResponse struct {
	Tools []toolItem `json:"tools"`
}

const systemPrompt = `You are an expert in artificial intelligence research and practice.
You only name topics and tools that genuinely exist. Answer in JSON.`

// RelatedTopics asks the model for count topics related to prompt.
func (c *Client) RelatedTopics(ctx context.Context, prompt string, count int) ([]enrich.TopicCandidate, error) {
	user := fmt.Sprintf(`List %d artificial intelligence topics closely related to the following entity.
For each give a name, a short description and a plausibility score between 0 and 1.

%s`, count, prompt)

	content, err := c.complete(ctx, systemPrompt, user, "related_topics", "Topics related to an AI entity", topicsResponse{})
	if err != nil {
		return nil, err
	}
	cands, err := enrich.NormalizeTopics(content)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cands))
	scores := make([]float64, len(cands))
	for i, cand := range cands {
		names[i], scores[i] = cand.Name, cand.Score
	}
	c.rate(ctx, prompt, "topic", names, scores)
	for i := range cands {
		cands[i].Score = scores[i]
	}
	return cands, nil
}

// RelatedTools asks the model for count tools related to prompt.
func (c *Client) RelatedTools(ctx context.Context, prompt string, count int) ([]enrich.ToolCandidate, error) {
	user := fmt.Sprintf(`List %d software tools, libraries or frameworks used to work with the following entity.
For each give a name, a short description, a category, the official URL and a plausibility score between 0 and 1.

%s`, count, prompt)

	content, err := c.complete(ctx, systemPrompt, user, "related_tools", "Tools related to an AI entity", toolsResponse{})
	if err != nil {
		return nil, err
	}
	cands, err := enrich.NormalizeTools(content)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cands))
	scores := make([]float64, len(cands))
	for i, cand := range cands {
		names[i], scores[i] = cand.Name, cand.Score
	}
	c.rate(ctx, prompt, "tool", names, scores)
	for i := range cands {
		cands[i].Score = scores[i]
	}
	return cands, nil
}

// rate fills scores[i] with a veracity rating for names[i]. Entries already
// scored are kept unless verifyScores is set. Failed ratings give
// enrich.DefaultScore.
func (c *Client) rate(ctx context.Context, subject, kind string, names []string, scores []float64) {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.scoreConcurrency)
	for i := range names {
		if !c.verifyScores && scores[i] >= 0 {
			continue
		}
		eg.Go(func() error {
			scores[i] = c.Veracity(gctx, kind, names[i], subject)
			return nil
		})
	}
	_ = eg.Wait()
}

// Veracity asks the model how plausible it is that name is a real AI
// topic or tool related to context. It never fails.
func (c *Client) Veracity(ctx context.Context, kind, name, subject string) float64 {
	user := fmt.Sprintf(`On a scale from 0 to 1, how confident are you that %q is a real, established AI %s related to the entity below?
Output only the number.

%s`, name, kind, subject)

	content, err := c.complete(ctx, systemPrompt, user, "", "", nil)
	if err != nil {
		c.log.Debug("veracity rating failed", "name", name, "err", err)
		return enrich.DefaultScore
	}
	return enrich.ParseScore(content)
}

// complete runs one chat completion. A non-nil schema requests structured
// output shaped like schema.
func (c *Client) complete(ctx context.Context, system, user, schemaName, schemaDesc string, schema any) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", enrich.ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
	}
	if schema != nil {
		body.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        schemaName,
					Description: openai.String(schemaDesc),
					Schema:      generateSchema(schema),
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	start := time.Now()
	resp, err := c.chat.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", enrich.ErrUnavailable, err)
	}
	c.log.Debug("completion finished",
		"model", c.model, "duration", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", enrich.ErrUnavailable)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", enrich.ErrUnavailable)
	}
	return content, nil
}

// generateSchema reflects a JSON schema for structured output.
func generateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return reflector.Reflect(reflect.New(t).Interface())
}
