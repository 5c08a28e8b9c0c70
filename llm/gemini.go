package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiLanguageModel completes prompts with the generativelanguage API.
type GeminiLanguageModel struct {
	client *genai.Client
	model  string
}

func NewGeminiLanguageModel(ctx context.Context, apiKey string) (*GeminiLanguageModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiLanguageModel{
		client: client,
		model:  "gemini-2.0-flash",
	}, nil
}

func (g *GeminiLanguageModel) Complete(
	ctx context.Context,
	prompt string,
	maxTokens int,
) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.GenerationConfig.SetMaxOutputTokens(int32(maxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	return responseText(resp), nil
}

func (g *GeminiLanguageModel) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
