// Package ai wraps the OpenAI chat-completion API behind the single call
// the enrichment engine needs: content in, text out.
package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"tagassist/internal/logger"
)

// Request describes one completion. Exactly one of ImageDataURL and XMLData
// is set for vision and text input respectively; both empty sends the prompt
// alone.
type Request struct {
	Prompt       string
	ImageDataURL string
	XMLData      string
	Model        string
}

// Client talks to the OpenAI API.
type Client struct {
	api *openai.Client
	log zerolog.Logger
}

// NewClient creates a client for the given API key.
func NewClient(apiKey string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = &http.Client{
		Timeout: 120 * time.Second,
	}
	return &Client{
		api: openai.NewClientWithConfig(config),
		log: logger.WithComponent("ai"),
	}
}

// Complete sends the request and returns the first choice's text. An empty
// model response yields an empty string and a nil error; a rejected API key
// yields ErrAuthentication.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	parts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: req.Prompt,
		},
	}

	maxTokens := 100
	var temperature float32

	switch {
	case req.ImageDataURL != "":
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: req.ImageDataURL,
			},
		})
	case req.XMLData != "":
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: fmt.Sprintf("```xml\n%s\n```", req.XMLData),
		})
		// For XML nearly every character is a token; raise the ceiling
		// and remove randomness. The client omits a plain zero from the
		// request, so send the smallest value that still serializes.
		maxTokens = 2000
		temperature = math.SmallestNonzeroFloat32
	}

	c.log.Debug().
		Str("model", req.Model).
		Int("prompt_chars", len(req.Prompt)).
		Bool("has_image", req.ImageDataURL != "").
		Bool("has_xml", req.XMLData != "").
		Msg("Sending completion request")

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// classify separates authentication failures from everything else.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Op: "Complete", Err: ErrAuthentication, Details: apiErr.Message}
		}
	}
	return &Error{Op: "Complete", Err: ErrRequestFailed, Details: err.Error()}
}
