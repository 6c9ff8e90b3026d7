package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"

	endpointPath = "/v1beta/models/{model}:generateContent"
)

type Options struct {
	BaseURL string
	Model   string
	APIKey  string
	// APIKeyInHeader sends the key as x-goog-api-key instead of the key query parameter.
	APIKeyInHeader bool
	Timeout        time.Duration
}

// Client captions images through the Generative Language generateContent API.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	inHeader   bool
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(opts Options, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	path := strings.ReplaceAll(endpointPath, "{model}", url.PathEscape(opts.Model))
	return &Client{
		endpoint:   strings.TrimRight(opts.BaseURL, "/") + path,
		model:      opts.Model,
		apiKey:     opts.APIKey,
		inHeader:   opts.APIKeyInHeader,
		httpClient: &http.Client{Timeout: opts.Timeout},
		executor:   executor,
	}, nil
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *Client) Caption(ctx context.Context, req domain.CaptionRequest) (string, error) {
	if len(req.Content) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "gemini caption", fmt.Errorf("empty image"))
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	body := generateRequest{Contents: []content{{
		Role: "user",
		Parts: []part{
			{Text: req.Prompt},
			{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(req.Content)}},
		},
	}}}

	var response generateResponse
	call := func(callCtx context.Context) error {
		return c.post(callCtx, body, &response)
	}

	var err error
	if c.executor == nil {
		err = call(ctx)
	} else {
		err = c.executor.Execute(ctx, "gemini.generate_content", call, resilience.ClassifyHTTPError)
	}
	if err != nil {
		return "", resilience.WrapTemporaryIfNeeded("gemini generate_content", err)
	}

	var text strings.Builder
	if len(response.Candidates) > 0 {
		for _, p := range response.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", domain.WrapError(domain.ErrUpstream, "gemini caption", fmt.Errorf("model %s returned no text", c.model))
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, payload generateRequest, out *generateResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal generate_content request: %w", err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("parse gemini endpoint: %w", err)
	}
	if !c.inHeader {
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create generate_content request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.inHeader {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini generate_content request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &resilience.HTTPStatusError{
			Upstream:   "gemini",
			Operation:  "generate_content",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(slurp),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode generate_content response: %w", err)
	}
	return nil
}
