package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/resilience"
)

// Client talks to a local Ollama server with a vision-capable model.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New builds a client. executor may be nil to call Ollama unguarded.
func New(baseURL, model string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Caption sends the image inline as base64 to /api/generate and returns the
// raw model reply.
func (c *Client) Caption(ctx context.Context, req domain.CaptionRequest) (string, error) {
	if len(req.Content) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "ollama caption", fmt.Errorf("empty image"))
	}

	body := generateRequest{
		Model:   c.model,
		Prompt:  req.Prompt,
		Images:  []string{base64.StdEncoding.EncodeToString(req.Content)},
		Stream:  false,
		Options: map[string]any{"temperature": 0.2},
	}

	var response generateResponse
	err := c.guarded(ctx, "generate", func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", body, &response, "generate")
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(response.Response)
	if text == "" {
		return "", domain.WrapError(domain.ErrUpstream, "ollama caption", fmt.Errorf("model %s returned an empty reply", c.model))
	}
	return text, nil
}
