// Package generation issues schema-constrained requests to the text model
// and turns the raw payload into typed values.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"weddingplanner/internal/domain"
	"weddingplanner/internal/infra"
	"weddingplanner/internal/providers/genai"
	"weddingplanner/internal/schema"
)

// ContentGenerator is the slice of the provider client this package needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, req genai.ContentRequest) (*genai.ContentResponse, error)
}

// Request is one structured generation call.
type Request struct {
	Model          string
	Prompt         string
	Schema         *schema.Schema
	ThinkingBudget *int
}

// Client wraps a ContentGenerator with decoding and error classification.
type Client struct {
	gen    ContentGenerator
	logger *infra.Logger
}

// NewClient builds a Client. logger may be nil.
func NewClient(gen ContentGenerator, logger *infra.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{gen: gen, logger: logger}
}

// Generate sends req and decodes the response into T.
//
// An empty payload for an array-shaped schema yields the zero-length value
// of T instead of an error; every other shape treats it as malformed output.
func Generate[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T
	op := "generate " + req.Model
	if strings.TrimSpace(req.Prompt) == "" {
		return zero, domain.InvalidRequest("prompt is required")
	}
	if err := req.Schema.Validate(); err != nil {
		return zero, domain.InvalidRequest(err.Error())
	}

	resp, err := c.gen.GenerateContent(ctx, req.Model, genai.ContentRequest{
		Prompt:         req.Prompt,
		ResponseSchema: req.Schema,
		ThinkingBudget: req.ThinkingBudget,
	})
	if err != nil {
		return zero, providerError(op, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		if req.Schema.IsArray() {
			c.logger.Warn().Str("model", req.Model).Msg("generation: empty payload, returning empty collection")
			return emptyCollection[T]()
		}
		return zero, domain.NewError(domain.KindMalformedOutput, op, "empty payload", nil)
	}

	fragment := extractJSONFragment(text)
	dec := json.NewDecoder(strings.NewReader(fragment))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return zero, domain.NewError(domain.KindMalformedOutput, op, "payload is not valid JSON", err)
	}
	if err := req.Schema.Check(raw); err != nil {
		return zero, domain.NewError(domain.KindMalformedOutput, op, err.Error(), err)
	}
	var out T
	if err := json.Unmarshal([]byte(fragment), &out); err != nil {
		return zero, domain.NewError(domain.KindMalformedOutput, op, "payload does not fit the declared type", err)
	}
	return out, nil
}

// Text sends an unconstrained prompt and returns the text payload, which may
// be empty.
func Text(ctx context.Context, c *Client, model, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", domain.InvalidRequest("prompt is required")
	}
	resp, err := c.gen.GenerateContent(ctx, model, genai.ContentRequest{Prompt: prompt})
	if err != nil {
		return "", providerError("text "+model, err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func providerError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	e := domain.NewError(domain.KindProvider, op, err.Error(), err)
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		e.Status = apiErr.StatusCode
	}
	return e
}

func emptyCollection[T any]() (T, error) {
	var out T
	if err := json.Unmarshal([]byte("[]"), &out); err != nil {
		var zero T
		return zero, domain.InvalidRequest(fmt.Sprintf("array schema used with non-slice type %T: %v", zero, err))
	}
	return out, nil
}

// extractJSONFragment returns the payload as is when it already parses, and
// otherwise the span from the first opening bracket to the last closing one.
func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(trimCodeFence(strings.TrimSpace(raw)))
	if json.Valid([]byte(text)) {
		return text
	}
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
