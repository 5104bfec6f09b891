// Package llm calls a Gemini text and image model through the genai SDK.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"google.golang.org/genai"
)

const (
	defaultTimeout = 90 * time.Second
	apiVersion     = "v1beta"
)

var (
	// ErrEmptyResponse means the model answered 2xx without usable output.
	ErrEmptyResponse = errors.New("llm returned no content")
	// ErrUpstream wraps every transport or non-2xx failure.
	ErrUpstream      = errors.New("llm upstream error")
	ErrNotConfigured = errors.New("llm is not configured")
)

// Config holds endpoint, credentials and model ids.
type Config struct {
	BaseURL    string
	APIKey     string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

// Client represents the model client. A Client without an API key is valid
// and answers every call with ErrNotConfigured.
type Client struct {
	cfg    Config
	models *genai.Models
}

// NewClient creates a new model client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	c := &Client{cfg: cfg}
	if cfg.APIKey == "" {
		return c, nil
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	httpOpts := genai.HTTPOptions{APIVersion: apiVersion}
	if cfg.BaseURL != "" {
		httpOpts.BaseURL = cfg.BaseURL + "/"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.models = client.Models
	return c, nil
}

// GenerateText returns the concatenated text parts of the first candidate.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generate(ctx, c.textModel(), prompt, nil)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil && !p.Thought {
				b.WriteString(p.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GenerateImage returns the first inline image of the response.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	resp, err := c.generate(ctx, c.imageModel(), prompt, &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
	})
	if err != nil {
		return nil, "", err
	}

	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			return p.InlineData.Data, p.InlineData.MIMEType, nil
		}
	}
	return nil, "", ErrEmptyResponse
}

func (c *Client) textModel() string {
	if c == nil {
		return ""
	}
	return c.cfg.TextModel
}

func (c *Client) imageModel() string {
	if c == nil {
		return ""
	}
	return c.cfg.ImageModel
}

func (c *Client) generate(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if c == nil || c.models == nil {
		return nil, ErrNotConfigured
	}
	if model == "" {
		return nil, fmt.Errorf("%w: model id is empty", ErrNotConfigured)
	}

	resp, err := c.models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked: %s", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}

func classifyError(ctx context.Context, err error) error {
	if apiErr, ok := asAPIError(err); ok {
		return fmt.Errorf("%w: status=%d %s: %s", ErrUpstream, apiErr.Code, apiErr.Status, truncate(apiErr.Message, 512))
	}
	return classifyRequestError(ctx, err)
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func classifyRequestError(ctx context.Context, err error) error {
	if isTimeoutError(ctx, err) {
		return fmt.Errorf("%w: timeout: %v", ErrUpstream, err)
	}
	if isNetworkError(err) {
		return fmt.Errorf("%w: network error: %v", ErrUpstream, err)
	}
	return fmt.Errorf("%w: request error: %v", ErrUpstream, err)
}

func isTimeoutError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}
