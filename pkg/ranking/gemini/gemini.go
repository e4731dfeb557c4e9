// Package gemini ranks vanity candidates with a Gemini model using structured
// JSON output.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/vanityserve/vanityserve/pkg/ranking"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Options configure the collaborator.
type Options struct {
	Model     string
	APIKeyEnv string
	APIKey    string
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Ranker is a ranking.Collaborator backed by the Gemini API.
type Ranker struct {
	model    string
	generate generateFunc
}

// New creates a Gemini client. The key comes from APIKeyEnv (default
// GEMINI_API_KEY) when set, otherwise from APIKey.
func New(ctx context.Context, opts Options) (*Ranker, error) {
	if opts.APIKeyEnv == "" {
		opts.APIKeyEnv = "GEMINI_API_KEY"
	}
	key := os.Getenv(opts.APIKeyEnv)
	if key == "" {
		key = opts.APIKey
	}
	if key == "" {
		return nil, fmt.Errorf("gemini: missing api key (set %s)", opts.APIKeyEnv)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newRanker(opts.Model, client.Models.GenerateContent), nil
}

func newRanker(model string, generate generateFunc) *Ranker {
	if model == "" {
		model = DefaultModel
	}
	return &Ranker{model: model, generate: generate}
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"results": {
			Type:        genai.TypeArray,
			Description: "Chosen candidates, best first",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id":         {Type: genai.TypeString, Description: "Candidate id exactly as given"},
					"rank":       {Type: genai.TypeInteger, Description: "1 for the best candidate"},
					"score":      {Type: genai.TypeNumber, Description: "Desirability between 0 and 1"},
					"speechText": {Type: genai.TypeString, Description: "How to read the number aloud"},
				},
				Required: []string{"id", "rank", "score"},
			},
		},
	},
	Required: []string{"results"},
}

func buildPrompt(req ranking.Request) string {
	var b strings.Builder
	b.WriteString("Given a list of vanity phone numbers, rank them based on their desirability. ")
	b.WriteString("Consider memorability, how easily the words are said aloud and how common they are. ")
	fmt.Fprintf(&b, "Return at most %d candidates, best first, referring to each by its id. ", req.MaxResults)
	b.WriteString("Do not invent candidates. For speechText, keep every letter and digit of the candidate in order.\n\n")
	fmt.Fprintf(&b, "Phone number: %s\n", req.OriginalDigits)
	for _, c := range req.Candidates {
		fmt.Fprintf(&b, "id=%s candidate=%s letters=%g\n", c.ID, c.DisplayForm, c.CoverageScore)
	}
	return b.String()
}

// Rank implements ranking.Collaborator.
func (r *Ranker) Rank(ctx context.Context, req ranking.Request) (ranking.Response, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	}
	resp, err := r.generate(ctx, r.model, genai.Text(buildPrompt(req)), config)
	if err != nil {
		return ranking.Response{}, classifyAPIError(ctx, err)
	}
	if resp == nil {
		return ranking.Response{}, fmt.Errorf("%w: empty response", ranking.ErrMalformed)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return ranking.Response{}, fmt.Errorf("%w: empty response", ranking.ErrMalformed)
	}
	var out ranking.Response
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return ranking.Response{}, fmt.Errorf("%w: %v", ranking.ErrMalformed, err)
	}
	if len(out.Results) > req.MaxResults && req.MaxResults > 0 {
		out.Results = out.Results[:req.MaxResults]
	}
	return out, nil
}

func classifyAPIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ranking.ErrRateLimited, apiErr.Message)
		case apiErr.Code == http.StatusRequestTimeout || apiErr.Code == http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %s", ranking.ErrTimeout, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: %w", ranking.ErrTransport, err)
}
