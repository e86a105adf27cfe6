// Package api wraps every remote call to the Pawtrait backend with bearer
// authentication and uniform error unwrapping. Calls are single-attempt: no
// retry, no backoff; callers surface failures to the user.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pawtrait/pawtrait-client/internal/config"
	"github.com/pawtrait/pawtrait-client/internal/models"
)

const genericErrMessage = "API call failed"

// TokenSource supplies the current bearer credential. An empty string means
// no credential, and the authorization header is omitted entirely.
type TokenSource interface {
	Token() string
}

// APIError is a non-success HTTP response, with the message taken from the
// server's "detail" field when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsAuthFailure reports whether the error is a definitive credential
// rejection, as opposed to a connectivity failure or server fault.
func (e *APIError) IsAuthFailure() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg config.Config, tokens TokenSource, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		log: log,
	}
}

// Me validates the current credential and returns the identity it belongs to.
func (c *Client) Me(ctx context.Context) (*models.Identity, error) {
	var identity models.Identity
	if err := c.getJSON(ctx, "/auth/me", &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Login exchanges credentials for a bearer token and identity.
func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

// Register creates an account and returns a bearer token and identity.
func (c *Client) Register(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	return c.authenticate(ctx, "/auth/register", email, password)
}

func (c *Client) authenticate(ctx context.Context, endpoint, email, password string) (*models.TokenResponse, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}
	var token models.TokenResponse
	if err := c.postJSON(ctx, endpoint, payload, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Generate submits the pet photo and resolved style-or-prompt string as a
// multipart payload and returns the rendered artwork.
func (c *Client) Generate(ctx context.Context, filename string, image []byte, style string) (*models.GenerationResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("imageFile", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.WriteField("style", style); err != nil {
		return nil, fmt.Errorf("write style field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generate", &body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result models.GenerationResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListGenerations fetches the server-owned generation history, newest first.
func (c *Client) ListGenerations(ctx context.Context, limit int) ([]models.GenerationRecord, error) {
	endpoint := "/user/generations?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	var records []models.GenerationRecord
	if err := c.getJSON(ctx, endpoint, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// AvailableStyles fetches the server-computed style availability for the
// current user.
func (c *Client) AvailableStyles(ctx context.Context) (*models.AvailableStylesResponse, error) {
	var styles models.AvailableStylesResponse
	if err := c.getJSON(ctx, "/styles/available", &styles); err != nil {
		return nil, err
	}
	return &styles, nil
}

// CreateCheckout requests a hosted checkout session for the given tier.
func (c *Client) CreateCheckout(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	var checkout models.CheckoutResponse
	if err := c.postJSON(ctx, "/payments/create-checkout", req, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if c.log != nil {
		c.log.Debug("api call", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "elapsed", time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: extractDetail(rawBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rawBody, out); err != nil {
		return fmt.Errorf("decode response: %w (body=%s)", err, truncateBody(rawBody))
	}
	return nil
}

// extractDetail pulls the conventional "detail" field out of an error body,
// falling back to a generic message when absent or unparseable.
func extractDetail(body []byte) string {
	var errBody struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &errBody); err != nil || errBody.Detail == "" {
		return genericErrMessage
	}
	return errBody.Detail
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
