package openai

import (
	"context"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ZhanWeiKai/eatwhat/internal/config"
)

// Client adapts the OpenAI-compatible chat completion API (the upstream
// model endpoint speaks the same protocol) to contracts.Completer.
type Client struct {
	client     *openai.Client
	model      string
	basePrompt string
}

func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		client:     openai.NewClient(cfg.APIKey),
		model:      cfg.Model,
		basePrompt: cfg.BasePrompt,
	}
}

func (c *Client) messages(userMessage string) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if c.basePrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.basePrompt,
		})
	}
	return append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})
}

func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: c.messages(message),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) ChatStream(ctx context.Context, message string, onToken func(token string) error) (string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: c.messages(message),
		Stream:   true,
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return full.String(), err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		token := resp.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		full.WriteString(token)
		if err := onToken(token); err != nil {
			return full.String(), err
		}
	}
	return full.String(), nil
}
