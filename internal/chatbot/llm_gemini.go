package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements LLMClient using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("chatbot: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("chatbot: failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelID: modelID}, nil
}

func (c *GeminiClient) Provider() string { return "gemini" }

func (c *GeminiClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	ctx, span := llmTracer.Start(ctx, "chatbot.gemini")
	defer span.End()

	if len(req.Messages) == 0 {
		return LLMResponse{}, errors.New("chatbot: gemini requires at least one message")
	}

	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	cs := model.StartChat()
	cs.History = geminiHistory(req.Messages[:len(req.Messages)-1])

	last := req.Messages[len(req.Messages)-1]
	resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		span.RecordError(err)
		return LLMResponse{}, fmt.Errorf("chatbot: gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return LLMResponse{}, errors.New("chatbot: gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return LLMResponse{}, errors.New("chatbot: gemini returned empty content")
	}
	return LLMResponse{Text: text, StopReason: candidate.FinishReason.String()}, nil
}

func geminiHistory(msgs []ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		content := strings.TrimSpace(msg.Content)
		if content == "" || msg.Role == RoleSystem {
			continue
		}
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(content)}})
	}
	return out
}

// Close releases the underlying client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
