package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"weddingplanner/internal/infra"
	"weddingplanner/internal/schema"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin facade over the Gemini REST API. It performs exactly one
// HTTP exchange per method call and never retries.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// APIError is returned for every HTTP status >= 400 from the provider.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gemini status %d", e.StatusCode)
	if e.Status != "" {
		b.WriteString(": ")
		b.WriteString(e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// ErrMissingAPIKey indicates a privileged call was attempted without a key.
var ErrMissingAPIKey = errors.New("gemini: api key is required")

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("gemini: invalid base url: %w", err)
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
	}, nil
}

// WithAPIKey returns a shallow copy that authenticates with key. It is how a
// user-selected credential is applied to privileged calls.
func (c *Client) WithAPIKey(key string) *Client {
	clone := *c
	clone.apiKey = strings.TrimSpace(key)
	return &clone
}

// HasCredentials reports whether the client carries an API key.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// APIKey returns the key the client authenticates with.
func (c *Client) APIKey() string {
	return c.apiKey
}

// ImageConfig is forwarded as generationConfig.imageConfig.
type ImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

// ContentRequest is a single-turn generateContent call.
type ContentRequest struct {
	Prompt         string
	ResponseSchema *schema.Schema
	ThinkingBudget *int
	ImageConfig    *ImageConfig
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string                `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema.Schema        `json:"responseSchema,omitempty"`
	ThinkingConfig   *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
	ImageConfig      *ImageConfig          `json:"imageConfig,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

// ContentResponse is the decoded generateContent response.
type ContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

// InlineData is binary output returned inside a candidate.
type InlineData struct {
	MimeType string
	Data     string
}

// Text concatenates the text parts of the first candidate. It returns "" when
// the provider sent no text.
func (r *ContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// FirstInline returns the first inline binary part of the first candidate.
func (r *ContentResponse) FirstInline() (InlineData, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return InlineData{}, false
	}
	for _, part := range r.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			return InlineData{MimeType: part.InlineData.MimeType, Data: part.InlineData.Data}, true
		}
	}
	return InlineData{}, false
}

// GenerateContent calls models/{model}:generateContent once.
func (c *Client) GenerateContent(ctx context.Context, model string, req ContentRequest) (*ContentResponse, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
	}
	cfg := &geminiGenerationConfig{ImageConfig: req.ImageConfig}
	if req.ResponseSchema != nil {
		cfg.ResponseMimeType = "application/json"
		cfg.ResponseSchema = req.ResponseSchema
	}
	if req.ThinkingBudget != nil {
		cfg.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: *req.ThinkingBudget}
	}
	if cfg.ResponseMimeType != "" || cfg.ThinkingConfig != nil || cfg.ImageConfig != nil {
		payload.GenerationConfig = cfg
	}

	var response ContentResponse
	if err := c.invoke(ctx, http.MethodPost, modelPath(model, "generateContent"), payload, &response); err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("model", model).
		Int("candidates", len(response.Candidates)).
		Msg("genai: content generated")
	return &response, nil
}

// VideoConfig is forwarded as the predictLongRunning parameters.
type VideoConfig struct {
	NumberOfVideos int    `json:"sampleCount,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
}

type videoInstance struct {
	Prompt string `json:"prompt"`
}

type videoRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters *VideoConfig    `json:"parameters,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type generatedSample struct {
	Video struct {
		URI string `json:"uri"`
	} `json:"video"`
}

type operationResponse struct {
	GenerateVideoResponse struct {
		GeneratedSamples []generatedSample `json:"generatedSamples"`
	} `json:"generateVideoResponse"`
}

// Operation is a provider long-running operation.
type Operation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *operationError    `json:"error,omitempty"`
	Response *operationResponse `json:"response,omitempty"`
}

// Failure returns the server-side failure of a finished operation, if any.
func (o *Operation) Failure() error {
	if o == nil || o.Error == nil {
		return nil
	}
	return &APIError{StatusCode: o.Error.Code, Status: o.Error.Status, Message: o.Error.Message}
}

// VideoURI returns the first generated video locator, if any.
func (o *Operation) VideoURI() string {
	if o == nil || o.Response == nil {
		return ""
	}
	for _, sample := range o.Response.GenerateVideoResponse.GeneratedSamples {
		if uri := strings.TrimSpace(sample.Video.URI); uri != "" {
			return uri
		}
	}
	return ""
}

// SubmitVideo starts an asynchronous video synthesis and returns the
// operation handle.
func (c *Client) SubmitVideo(ctx context.Context, model, prompt string, cfg VideoConfig) (*Operation, error) {
	payload := videoRequest{
		Instances:  []videoInstance{{Prompt: prompt}},
		Parameters: &cfg,
	}
	var op Operation
	if err := c.invoke(ctx, http.MethodPost, modelPath(model, "predictLongRunning"), payload, &op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(op.Name) == "" {
		return nil, errors.New("gemini: operation handle missing from response")
	}
	c.logger.Debug().Str("model", model).Str("operation", op.Name).Msg("genai: video operation submitted")
	return &op, nil
}

// GetOperation fetches the current state of a long-running operation.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return nil, errors.New("gemini: operation name is required")
	}
	var op Operation
	if err := c.invoke(ctx, http.MethodGet, "/"+name, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// AppendKey adds key as the "key" query parameter of uri. Provider artifact
// locators are not fetchable without it.
func AppendKey(uri, key string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(uri))
	if err != nil || parsed.Scheme == "" {
		return "", fmt.Errorf("gemini: invalid artifact uri %q", uri)
	}
	if key = strings.TrimSpace(key); key != "" {
		q := parsed.Query()
		q.Set("key", key)
		parsed.RawQuery = q.Encode()
	}
	return parsed.String(), nil
}

// OpenArtifact issues a GET for a fetchable artifact URL, one that already
// carries its key parameter. The caller must close the returned body.
func (c *Client) OpenArtifact(ctx context.Context, fetchURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download artifact: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, "", decodeAPIError(resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	endpoint := c.baseURL + path
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var detail geminiErrorResponse
	if err := json.Unmarshal(data, &detail); err == nil && detail.Error.Message != "" {
		apiErr.Status = detail.Error.Status
		apiErr.Message = detail.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}

func modelPath(model, method string) string {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	return fmt.Sprintf("/models/%s:%s", url.PathEscape(model), method)
}
