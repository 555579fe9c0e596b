package ai

import (
	"context"

	"dcia/internal/errors"
	"github.com/sashabaranov/go-openai"
)

// Client wraps the OpenAI API for chat completions and text embeddings.
type Client struct {
	client *openai.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		client: openai.NewClient(apiKey),
	}
}

const MaxTokens = 4096

// Complete runs a single chat completion with a system prompt and a user
// message and returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, system string, user string) (string, error) {
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     openai.GPT3Dot5Turbo1106,
			MaxTokens: MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	response, err := c.client.CreateEmbeddings(
		ctx,
		openai.EmbeddingRequest{ //nolint:exhaustruct // this is better for readability
			Model: openai.AdaEmbeddingV2,
			Input: []string{text},
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "create embeddings")
	}
	if len(response.Data) == 0 {
		return nil, errors.New("embedding response contained no data")
	}
	return response.Data[0].Embedding, nil
}
