package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiOptions selects the backend. An API key uses the Gemini API; otherwise
// Project and Location select Vertex AI.
type GeminiOptions struct {
	APIKey   string
	Project  string
	Location string
	Model    string
}

// GeminiGenerator implements TextGenerator over the Google GenAI SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGeminiGenerator(ctx context.Context, opts GeminiOptions) (*GeminiGenerator, error) {
	if opts.Model == "" {
		return nil, errors.New("gemini: model name is required")
	}

	cc := &genai.ClientConfig{}
	switch {
	case opts.APIKey != "":
		cc.APIKey = opts.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case opts.Project != "":
		cc.Project = opts.Project
		cc.Location = opts.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, errors.New("gemini: API key or Google Cloud project is required")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		model:  opts.Model,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.1),
			TopP:            genai.Ptr[float32](0.8),
			MaxOutputTokens: 256,
		},
	}, nil
}

func (g *GeminiGenerator) Model() string {
	return g.model
}

// WithModel returns a generator sharing the same client but targeting model.
func (g *GeminiGenerator) WithModel(model string) *GeminiGenerator {
	clone := *g
	clone.model = model
	return &clone
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}
