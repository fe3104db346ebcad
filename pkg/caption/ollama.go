package caption

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/maskcrop/pkg/imageio"
)

// sendMaxDim caps the long side of the JPEG sent to the model.
const (
	sendMaxDim  = 1536
	sendQuality = 85
)

// OllamaClient captions images through a local Ollama server.
type OllamaClient struct {
	client *api.Client
}

// NewOllamaClient creates a client for the given server URL; any path
// component is dropped.
func NewOllamaClient(serverURL string) (*OllamaClient, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &OllamaClient{client: api.NewClient(base, http.DefaultClient)}, nil
}

// Describe sends the image with the caption prompt and returns the cleaned
// single-line response.
func (c *OllamaClient) Describe(ctx context.Context, model string, img image.Image) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second) // CPU inference can be slow
		defer cancel()
	}

	data, err := imageio.EncodeJPEG(img, sendMaxDim, sendQuality)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %v", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: DefaultPrompt,
				Images:  []api.ImageData{api.ImageData(data)},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %v", err)
	}

	caption := sanitize(responseContent)
	if caption == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return caption, nil
}
