// Package advisor asks Gemini for short, read-only commentary on carbon projects
// and the wider market. Nothing it returns is written back to the catalog.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

var (
	// ErrDisabled is returned when no API key is configured.
	ErrDisabled   = errors.New("AI advisor is not configured")
	ErrEmptyInput = errors.New("description is required")
	ErrNoAnswer   = errors.New("AI advisor returned no text")
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-3-flash-preview"
	maxDescription = 4000
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// PerMinute caps outbound calls; zero means unlimited.
	PerMinute  int
	HTTPClient *http.Client
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
	limiter *rate.Limiter
	http    *http.Client
}

func New(cfg Config) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(rate.Inf, 0),
		http:    cfg.HTTPClient,
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if cfg.PerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), cfg.PerMinute)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

// SummarizeProject gives a brief impact and risk summary of a project description.
func (c *Client) SummarizeProject(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", ErrEmptyInput
	}
	if r := []rune(description); len(r) > maxDescription {
		description = string(r[:maxDescription])
	}
	prompt := "As an environmental expert, analyze the following carbon credit project description " +
		"and provide a brief summary of its impact and potential risks: " + description
	return c.generate(ctx, prompt, 0.7)
}

// MarketTrends gives a three point summary of global carbon market trends.
func (c *Client) MarketTrends(ctx context.Context) (string, error) {
	return c.generate(ctx, "Provide a brief 3-point summary of current global carbon market trends for a B2B audience.", 0.5)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

func (c *Client) generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("advisor rate limit: %w", err)
	}

	var body generateRequest
	body.Contents = []content{{Parts: []part{{Text: prompt}}}}
	body.GenerationConfig.Temperature = temperature
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini read: %w", err)
	}
	result := gjson.ParseBytes(respBody)
	if resp.StatusCode >= 300 {
		msg := result.Get("error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("gemini error (%d): %s", resp.StatusCode, msg)
	}

	var sb strings.Builder
	result.Get("candidates.0.content.parts.#.text").ForEach(func(_, v gjson.Result) bool {
		sb.WriteString(v.String())
		return true
	})
	text := strings.TrimSpace(sb.String())
	log.Debug().Str("model", c.model).Dur("latency", time.Since(start)).Int("chars", len(text)).Msg("advisor: generated")
	if text == "" {
		return "", ErrNoAnswer
	}
	return text, nil
}
