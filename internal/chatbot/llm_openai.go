package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var llmTracer = otel.Tracer("academy.internal.chatbot.llm")

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements LLMClient with the chat completions API.
type OpenAIClient struct {
	client  chatClient
	model   string
	timeout time.Duration
}

// NewOpenAIClient builds a client from an API key.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("chatbot: openai api key is required")
	}
	return newOpenAIClient(openai.NewClient(apiKey), model), nil
}

func newOpenAIClient(client chatClient, model string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{client: client, model: model, timeout: 20 * time.Second}
}

func (c *OpenAIClient) Provider() string { return "openai" }

func (c *OpenAIClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	ctx, span := llmTracer.Start(ctx, "chatbot.openai")
	defer span.End()

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, msg := range req.Messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int(req.MaxTokens),
		Temperature: req.Temperature,
	})
	if err != nil {
		span.RecordError(err)
		return LLMResponse{}, fmt.Errorf("chatbot: openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		err := errors.New("chatbot: openai returned no choices")
		span.RecordError(err)
		return LLMResponse{}, err
	}
	if span.IsRecording() {
		span.SetAttributes(attribute.Int("academy.openai.total_tokens", resp.Usage.TotalTokens))
	}
	return LLMResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		StopReason: string(resp.Choices[0].FinishReason),
	}, nil
}
