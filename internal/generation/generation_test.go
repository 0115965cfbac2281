package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"weddingplanner/internal/domain"
	"weddingplanner/internal/providers/genai"
	"weddingplanner/internal/schema"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func textCandidate(t *testing.T, text string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
		}},
	})
	if err != nil {
		t.Fatalf("marshal candidate: %v", err)
	}
	return string(raw)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	gen, err := genai.NewClient(genai.Options{
		APIKey:     "test-key",
		BaseURL:    "https://gemini.test/v1beta",
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("new genai client: %v", err)
	}
	return NewClient(gen, nil)
}

type task struct {
	Title    string `json:"title"`
	Month    string `json:"month"`
	Category string `json:"category"`
}

var taskSchema = schema.Array(schema.Object([]schema.Property{
	schema.Prop("title", schema.String()),
	schema.Prop("month", schema.String()),
	schema.Prop("category", schema.String("legal", "vendor", "fashion", "beauty", "ceremony", "party")),
}, "title", "month", "category"))

func TestGenerateDecodesTasks(t *testing.T) {
	var items []string
	for i := 1; i <= 10; i++ {
		items = append(items, fmt.Sprintf(`{"title":"Tarefa %d","month":"Mês %d","category":"vendor"}`, i, i))
	}
	payload := "[" + strings.Join(items, ",") + "]"

	var captured map[string]any
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1beta/models/gemini-3-pro-preview:generateContent" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Fatalf("api key header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		return jsonResponse(http.StatusOK, textCandidate(t, payload)), nil
	})

	got, err := Generate[[]task](context.Background(), client, Request{
		Model:  "gemini-3-pro-preview",
		Prompt: "Crie um checklist",
		Schema: taskSchema,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 tasks, got %d", len(got))
	}
	for _, item := range got {
		if item.Category != "vendor" || item.Title == "" || item.Month == "" {
			t.Fatalf("unexpected task %+v", item)
		}
	}

	cfg, ok := captured["generationConfig"].(map[string]any)
	if !ok {
		t.Fatalf("generationConfig missing: %v", captured)
	}
	if cfg["responseMimeType"] != "application/json" {
		t.Fatalf("responseMimeType = %v", cfg["responseMimeType"])
	}
	declared, ok := cfg["responseSchema"].(map[string]any)
	if !ok || declared["type"] != "ARRAY" {
		t.Fatalf("responseSchema = %v", cfg["responseSchema"])
	}
	if _, ok := cfg["thinkingConfig"]; ok {
		t.Fatalf("thinkingConfig should be omitted without a budget")
	}
}

func TestGenerateForwardsThinkingBudget(t *testing.T) {
	budget := 2048
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		var body struct {
			GenerationConfig struct {
				ThinkingConfig struct {
					ThinkingBudget int `json:"thinkingBudget"`
				} `json:"thinkingConfig"`
			} `json:"generationConfig"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.GenerationConfig.ThinkingConfig.ThinkingBudget != budget {
			t.Fatalf("thinkingBudget = %d", body.GenerationConfig.ThinkingConfig.ThinkingBudget)
		}
		return jsonResponse(http.StatusOK, textCandidate(t, "[]")), nil
	})

	got, err := Generate[[]task](context.Background(), client, Request{
		Model:          "gemini-3-pro-preview",
		Prompt:         "organize",
		Schema:         taskSchema,
		ThinkingBudget: &budget,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

type stubGenerator struct {
	resp  *genai.ContentResponse
	err   error
	calls int
}

func (s *stubGenerator) GenerateContent(context.Context, string, genai.ContentRequest) (*genai.ContentResponse, error) {
	s.calls++
	return s.resp, s.err
}

func stubText(text string) *genai.ContentResponse {
	var resp genai.ContentResponse
	raw := fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		panic(err)
	}
	return &resp
}

func TestGenerateEmptyPayload(t *testing.T) {
	gen := &stubGenerator{resp: stubText("  ")}
	client := NewClient(gen, nil)

	tasks, err := Generate[[]task](context.Background(), client, Request{Model: "m", Prompt: "p", Schema: taskSchema})
	if err != nil {
		t.Fatalf("array schema should tolerate empty payload: %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", tasks)
	}

	objectSchema := schema.Object([]schema.Property{schema.Prop("title", schema.String())}, "title")
	_, err = Generate[task](context.Background(), client, Request{Model: "m", Prompt: "p", Schema: objectSchema})
	if !errors.Is(err, domain.ErrMalformedOutput) {
		t.Fatalf("expected malformed output, got %v", err)
	}
}

func TestGenerateMalformedOutput(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "Desculpe, não consigo ajudar."},
		{"truncated", `[{"title":"a","month":"b"`},
		{"missing required", `[{"title":"a","month":"b"}]`},
		{"enum violation", `[{"title":"a","month":"b","category":"honeymoon"}]`},
		{"wrong shape", `{"title":"a","month":"b","category":"legal"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := NewClient(&stubGenerator{resp: stubText(tc.payload)}, nil)
			_, err := Generate[[]task](context.Background(), client, Request{Model: "m", Prompt: "p", Schema: taskSchema})
			if !errors.Is(err, domain.ErrMalformedOutput) {
				t.Fatalf("expected malformed output, got %v", err)
			}
		})
	}
}

func TestGenerateAcceptsFencedPayload(t *testing.T) {
	payload := "```json\n[{\"title\":\"a\",\"month\":\"b\",\"category\":\"legal\"}]\n```"
	client := NewClient(&stubGenerator{resp: stubText(payload)}, nil)
	got, err := Generate[[]task](context.Background(), client, Request{Model: "m", Prompt: "p", Schema: taskSchema})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 1 || got[0].Category != "legal" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestGenerateKeepsBracketsInsideScalars(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    string
	}{
		{"plain", `"Plan [B]: call {vendor}"`, "Plan [B]: call {vendor}"},
		{"fenced", "```json\n\"Plan [B]: call {vendor}\"\n```", "Plan [B]: call {vendor}"},
		{"only brackets", `"[]"`, "[]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := NewClient(&stubGenerator{resp: stubText(tc.payload)}, nil)
			got, err := Generate[string](context.Background(), client, Request{Model: "m", Prompt: "p", Schema: schema.String()})
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGenerateExtractsFragmentFromProse(t *testing.T) {
	payload := `Here is the plan: [{"title":"a","month":"b","category":"legal"}] Good luck!`
	client := NewClient(&stubGenerator{resp: stubText(payload)}, nil)
	got, err := Generate[[]task](context.Background(), client, Request{Model: "m", Prompt: "p", Schema: taskSchema})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestGenerateArraySchemaWithScalarType(t *testing.T) {
	client := NewClient(&stubGenerator{resp: stubText("")}, nil)
	_, err := Generate[task](context.Background(), client, Request{Model: "m", Prompt: "p", Schema: taskSchema})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestGenerateProviderError(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`), nil
	})
	_, err := Generate[[]task](context.Background(), client, Request{Model: "m", Prompt: "p", Schema: taskSchema})
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	var classified *domain.Error
	if !errors.As(err, &classified) || classified.Status != http.StatusForbidden {
		t.Fatalf("expected status 403 on classified error, got %#v", err)
	}
	var apiErr *genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != "PERMISSION_DENIED" {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	gen := &stubGenerator{resp: stubText("[]")}
	client := NewClient(gen, nil)

	if _, err := Generate[[]task](context.Background(), client, Request{Model: "m", Prompt: " ", Schema: taskSchema}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request for blank prompt, got %v", err)
	}
	bad := schema.Object(nil, "ghost")
	if _, err := Generate[[]task](context.Background(), client, Request{Model: "m", Prompt: "p", Schema: bad}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request for bad schema, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("provider must not be called for invalid requests, got %d calls", gen.calls)
	}
}

func TestGenerateKeepsCancellation(t *testing.T) {
	client := NewClient(&stubGenerator{err: fmt.Errorf("invoke gemini: %w", context.Canceled)}, nil)
	_, err := Generate[[]task](context.Background(), client, Request{Model: "m", Prompt: "p", Schema: taskSchema})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if domain.KindOf(err) != "" {
		t.Fatalf("cancellation should stay unclassified, got %s", domain.KindOf(err))
	}
}

func TestText(t *testing.T) {
	client := NewClient(&stubGenerator{resp: stubText("  - Respire.\n")}, nil)
	got, err := Text(context.Background(), client, "m", "socorro")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "- Respire." {
		t.Fatalf("Text = %q", got)
	}

	client = NewClient(&stubGenerator{err: errors.New("boom")}, nil)
	if _, err := Text(context.Background(), client, "m", "socorro"); !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
