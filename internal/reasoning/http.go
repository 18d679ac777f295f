package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dealflow-labs/dealflow-go/internal/fragment"
	"github.com/dealflow-labs/dealflow-go/internal/platform/env"
)

type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	HTTPTimeout time.Duration
}

func ConfigFromEnv() (Config, error) {
	temperature, err := env.Float("DEALFLOW_REASONING_TEMPERATURE", 0.2)
	if err != nil {
		return Config{}, err
	}
	httpTimeout, err := env.Duration("DEALFLOW_REASONING_HTTP_TIMEOUT", 2*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:    env.String("DEALFLOW_REASONING_ENDPOINT", "https://generativelanguage.googleapis.com"),
		APIKey:      env.String("DEALFLOW_REASONING_API_KEY", ""),
		Model:       env.String("DEALFLOW_REASONING_MODEL", "gemini-1.5-pro-latest"),
		Temperature: temperature,
		HTTPTimeout: httpTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("DEALFLOW_REASONING_API_KEY is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("temperature must be in [0, 2]")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("http timeout must be positive")
	}
	return nil
}

// HTTPClient talks to a Gemini-style structured-output REST endpoint.
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64         `json:"temperature"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *HTTPClient) Invoke(ctx context.Context, req Request) (fragment.Fragment, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.Model
	}
	temperature := c.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			ResponseMimeType: "application/json",
			ResponseSchema:   req.Schema,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fragment.Fragment{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.Endpoint, "/"), model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fragment.Fragment{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fragment.Fragment{}, fmt.Errorf("reasoning request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fragment.Fragment{}, fmt.Errorf("read response: %w", err)
	}

	if err := classifyStatus(resp, raw); err != nil {
		return fragment.Fragment{}, err
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fragment.Fragment{}, &InvalidResponseError{Reason: "response is not JSON"}
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return fragment.Fragment{}, &InvalidResponseError{Reason: "empty candidates"}
	}

	text := strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text)
	frag, err := fragment.FromJSON([]byte(text))
	if err != nil {
		return fragment.Fragment{}, &InvalidResponseError{Reason: "candidate text is not valid JSON"}
	}
	return frag, nil
}

func classifyStatus(resp *http.Response, raw []byte) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return &PermanentError{StatusCode: resp.StatusCode, Reason: errorReason(raw)}
	default:
		return fmt.Errorf("reasoning service: unexpected status %d", resp.StatusCode)
	}
}

func retryAfter(resp *http.Response) time.Duration {
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func errorReason(raw []byte) string {
	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error != nil {
		if msg := strings.TrimSpace(decoded.Error.Message); msg != "" {
			return msg
		}
	}
	return "request rejected"
}
