package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

const analyzerSystemPrompt = `You are an expert DevOps engineer analyzing container image updates for a Kubernetes cluster.
Your job is to review changelogs and identify:
1. Breaking changes that could break the application
2. Security updates or vulnerabilities fixed
3. Notable features or improvements
4. Deployment recommendations

Respond in JSON format with these fields:
{
    "breaking_changes": ["list of breaking changes"],
    "security_updates": ["list of security updates"],
    "notable_changes": ["list of notable changes"],
    "recommendations": ["list of recommendations for deployment"],
    "summary": "brief 2-3 sentence summary"
}

If the changelog is not available or unclear, provide a basic analysis based on version numbers.`

// OpenAIAnalyzer implements Analyzer over the OpenAI chat completions
// API with a JSON-object response format.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnalyzer builds an analyzer for the given API key and model.
func NewOpenAIAnalyzer(apiKey, model string) (*OpenAIAnalyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key not configured")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	slog.Info("initializing narrative analyzer", "model", model)
	return &OpenAIAnalyzer{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Analyze submits the context text and decodes the structured findings.
// Any transport, API, or decoding failure is returned as an error so
// the assessor falls back to the heuristic tier.
func (o *OpenAIAnalyzer) Analyze(ctx context.Context, contextText string) (*Findings, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: contextText},
		},
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	var findings Findings
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &findings); err != nil {
		return nil, fmt.Errorf("decoding analyzer response: %w", err)
	}
	slog.Debug("narrative analysis completed", "breaking_changes", len(findings.BreakingChanges))
	return &findings, nil
}
