package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"weddingplanner/internal/infra"
	"weddingplanner/internal/planner"
	"weddingplanner/internal/providers/genai"
	"weddingplanner/internal/reliability"
	"weddingplanner/internal/videojob"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// trackedBody reports whether the download was closed.
type trackedBody struct {
	io.Reader
	closed *atomic.Bool
}

func (b trackedBody) Close() error {
	b.closed.Store(true)
	return nil
}

func newTestService(t *testing.T, rt roundTripFunc) *planner.Service {
	t.Helper()
	client, err := genai.NewClient(genai.Options{
		APIKey:     "env-key",
		BaseURL:    "https://gemini.test/v1beta",
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("genai client: %v", err)
	}
	svc, err := planner.NewService(planner.Options{
		Client: client,
		Config: planner.Config{
			Models: infra.Models{Plan: "plan", Budget: "budget", Seating: "seating", Advice: "advice", Image: "image", Video: "veo"},
			Poll:   reliability.PollPolicy{Interval: time.Millisecond, MaxAttempts: 3},
		},
		JobOptions: []videojob.Option{videojob.WithSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRunRejectsBadInput(t *testing.T) {
	svc := newTestService(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request %s", r.URL)
		return nil, nil
	})
	cases := []struct {
		name string
		opts options
		want string
	}{
		{"unknown action", options{action: "honeymoon"}, "unsupported action"},
		{"seating without guests", options{action: "seating"}, "-guests is required"},
		{"missing guests file", options{action: "seating", guestsFile: filepath.Join(t.TempDir(), "none.json")}, "read guests"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := run(context.Background(), svc, tc.opts, io.Discard, io.Discard)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRunPlanPrintsTasks(t *testing.T) {
	payload := `[{"id":"t1","title":"Reservar igreja","month":"12 meses antes","category":"ceremony","completed":false}]`
	svc := newTestService(t, func(*http.Request) (*http.Response, error) {
		body := `{"candidates":[{"content":{"parts":[{"text":` + strconv.Quote(payload) + `}]}}]}`
		return respond(http.StatusOK, body), nil
	})
	var out bytes.Buffer
	if err := run(context.Background(), svc, options{action: "plan", names: "Ana & Leo"}, &out, io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Reservar igreja") {
		t.Fatalf("unexpected output %s", out.String())
	}
}

func TestRunVideoWritesFileAndClosesDownload(t *testing.T) {
	const videoURI = "https://gemini.test/v1beta/files/vid:download?alt=media"
	var closed atomic.Bool
	svc := newTestService(t, func(r *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(r.URL.Path, ":predictLongRunning"):
			return respond(http.StatusOK, `{"name":"models/veo/operations/op-1"}`), nil
		case r.URL.Path == "/v1beta/models/veo/operations/op-1":
			return respond(http.StatusOK, `{"name":"models/veo/operations/op-1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"`+videoURI+`"}}]}}}`), nil
		case strings.HasSuffix(r.URL.Path, "/files/vid:download"):
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"video/mp4"}},
				Body:       trackedBody{Reader: strings.NewReader("MP4"), closed: &closed},
			}, nil
		default:
			t.Fatalf("unexpected request %s", r.URL)
			return nil, nil
		}
	})

	dir := t.TempDir()
	var logs bytes.Buffer
	if err := run(context.Background(), svc, options{action: "video", prompt: "primeira dança", out: dir}, io.Discard, &logs); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !closed.Load() {
		t.Fatal("download body was not closed")
	}
	matches, err := filepath.Glob(filepath.Join(dir, "videos", "*.mp4"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one video file, got %v (%v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil || string(data) != "MP4" {
		t.Fatalf("unexpected file content %q (%v)", data, err)
	}
	if !strings.Contains(logs.String(), "video written to") {
		t.Fatalf("unexpected log %q", logs.String())
	}
}
