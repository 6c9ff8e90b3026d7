// Package renameapi calls a naming endpoint over HTTP: one multipart upload
// per image, one generated name back.
package renameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/resilience"
)

const renamePath = "/api/rename"

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New builds a client for the endpoint rooted at baseURL. executor may be nil.
func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type renameResponse struct {
	OriginalName string `json:"originalName"`
	NewName      string `json:"newName"`
	Error        string `json:"error"`
}

// RequestName uploads the image with the style hint and returns the name the
// endpoint generated. The caller normalizes it.
func (c *Client) RequestName(ctx context.Context, req domain.NameRequest) (string, error) {
	body, contentType, err := encodeForm(req)
	if err != nil {
		return "", fmt.Errorf("encode rename form: %w", err)
	}

	var out renameResponse
	call := func(callCtx context.Context) error {
		return c.post(callCtx, body, contentType, &out)
	}
	if c.executor == nil {
		err = call(ctx)
	} else {
		err = c.executor.Execute(ctx, "renameapi.rename", call, resilience.ClassifyHTTPError)
	}
	if err != nil {
		return "", resilience.WrapTemporaryIfNeeded("rename request", err)
	}
	if strings.TrimSpace(out.NewName) == "" {
		return "", fmt.Errorf("rename response has no newName")
	}
	return out.NewName, nil
}

func (c *Client) post(ctx context.Context, body []byte, contentType string, out *renameResponse) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+renamePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rename request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("rename request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.HTTPStatusError{
			Upstream:   "renameapi",
			Operation:  "rename",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       errorMessage(raw),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rename response: %w", err)
	}
	return nil
}

func encodeForm(req domain.NameRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = mimetype.Detect(req.Content).String()
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, uploadFilename(req, mimeType)))
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Content); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("style", req.Style); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func uploadFilename(req domain.NameRequest, mimeType string) string {
	if name := strings.TrimSpace(req.OriginalName); name != "" {
		return name
	}
	if mt := mimetype.Lookup(mimeType); mt != nil {
		return "image" + mt.Extension()
	}
	return "image"
}

// errorMessage extracts {"error": "..."} bodies and falls back to raw text.
func errorMessage(raw []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return string(raw)
}
