// Package apiclient talks HTTP+JSON to the listings backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"estate-web/pkg/apierror"
)

const (
	apiPrefix       = "/api/v1"
	maxErrorBodyLen = 64 << 10
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) doJSON(ctx context.Context, method string, path string, token string, in any, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	return c.do(ctx, method, c.endpoint(path, nil), token, body, contentType, out)
}

// do executes one request. Non-2xx responses are turned into *apierror.APIError
// carrying the backend's message; out may be nil for empty responses.
func (c *Client) do(ctx context.Context, method string, rawURL string, token string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		slog.WarnContext(ctx, "backend request failed", "method", method, "url", rawURL, "error", err)
		return apierror.Network(err)
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "backend request", "method", method, "url", rawURL,
		"status", resp.StatusCode, "duration_ms", time.Since(started).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		code := apierror.CodeHTTP
		if resp.StatusCode == http.StatusUnauthorized {
			code = apierror.CodeUnauthorized
		}
		return apierror.New(code, ExtractErrorMessage(raw, resp.StatusCode), "", resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apierror.New(apierror.CodeHTTP, "unexpected response from the listings service", err.Error(), http.StatusBadGateway)
	}

	return nil
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message *string         `json:"message"`
}

type detailItem struct {
	Msg string `json:"msg"`
}

// ExtractErrorMessage picks the user-facing text out of an error body. The
// first matching shape wins: a string "detail", a list of {"msg"} objects
// under "detail", a string "message", then a plain-text body.
func ExtractErrorMessage(body []byte, status int) string {
	trimmed := bytes.TrimSpace(body)

	var parsed errorBody
	if len(trimmed) > 0 && json.Unmarshal(trimmed, &parsed) == nil {
		if msg := detailMessage(parsed.Detail); msg != "" {
			return msg
		}
		if parsed.Message != nil && strings.TrimSpace(*parsed.Message) != "" {
			return strings.TrimSpace(*parsed.Message)
		}
		return fallbackMessage(status)
	}

	if len(trimmed) > 0 && !json.Valid(trimmed) {
		return string(trimmed)
	}

	return fallbackMessage(status)
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if json.Unmarshal(raw, &text) == nil {
		return strings.TrimSpace(text)
	}

	var items []detailItem
	if json.Unmarshal(raw, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if m := strings.TrimSpace(item.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, ", ")
	}

	return ""
}

func fallbackMessage(status int) string {
	return fmt.Sprintf("request failed with status %d", status)
}
