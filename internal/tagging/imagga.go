package tagging

import (
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

	"github.com/ironsheep/sketchpad/internal/canvas"
)

const (
	// DefaultImaggaURL is the Imagga v2 tagging endpoint.
	DefaultImaggaURL = "https://api.imagga.com/v2/tags"

	// DefaultTimeout bounds a single tagging call.
	DefaultTimeout = 10 * time.Second
)

// ErrNoCredentials is reported when no API key/secret pair is configured.
var ErrNoCredentials = errors.New("tagging credentials not configured")

// ImaggaConfig configures an ImaggaClient.
type ImaggaConfig struct {
	APIKey    string
	APISecret string

	// Endpoint overrides DefaultImaggaURL.
	Endpoint string

	// Timeout overrides DefaultTimeout.
	Timeout time.Duration

	// HTTPClient is used for requests when set.
	HTTPClient *http.Client
}

// ImaggaClient tags images with the Imagga v2 API.
type ImaggaClient struct {
	apiKey    string
	apiSecret string
	endpoint  string
	timeout   time.Duration
	client    *http.Client
	logger    *slog.Logger
}

// NewImaggaClient creates a client. Missing credentials do not fail
// construction; every call then returns Failed(ErrNoCredentials).
func NewImaggaClient(cfg ImaggaConfig, logger *slog.Logger) *ImaggaClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &ImaggaClient{
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		endpoint:  cfg.Endpoint,
		timeout:   cfg.Timeout,
		client:    cfg.HTTPClient,
		logger:    logger,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultImaggaURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.client == nil {
		c.client = &http.Client{}
	}
	return c
}

type imaggaResponse struct {
	Result struct {
		Tags []struct {
			Confidence float64 `json:"confidence"`
			Tag        struct {
				En string `json:"en"`
			} `json:"tag"`
		} `json:"tags"`
	} `json:"result"`
	Status struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"status"`
}

// Tag sends the base64 PNG to Imagga and returns the English tag names in
// the order the service ranked them.
func (c *ImaggaClient) Tag(ctx context.Context, img *canvas.EncodedImage) Outcome {
	if c.apiKey == "" || c.apiSecret == "" {
		return Failed(ErrNoCredentials)
	}
	if img == nil || img.ImageBase64 == "" {
		return Failed(errors.New("no image to tag"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("image_base64", img.ImageBase64)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Failed(fmt.Errorf("failed to create tagging request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return Failed(fmt.Errorf("tagging request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Failed(fmt.Errorf("tagging request failed: status code: %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed imaggaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Failed(fmt.Errorf("failed to decode tagging response: %w", err))
	}
	if parsed.Status.Type == "error" {
		return Failed(fmt.Errorf("tagging service error: %s", parsed.Status.Text))
	}

	tags := make([]string, 0, len(parsed.Result.Tags))
	for _, t := range parsed.Result.Tags {
		if name := strings.TrimSpace(t.Tag.En); name != "" {
			tags = append(tags, name)
		}
	}
	c.logger.Debug("tagging response", "tags", len(tags))
	return Succeeded(tags)
}
