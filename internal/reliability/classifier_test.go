package reliability

import (
	"errors"
	"fmt"
	"testing"

	"weddingplanner/internal/domain"
	"weddingplanner/internal/providers/genai"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, Generic},
		{"empty text", errors.New(""), Generic},
		{"plain failure", errors.New("connection reset by peer"), Generic},
		{"rate limited", &genai.APIError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED"}, Generic},
		{"server error", &genai.APIError{StatusCode: 500, Message: "internal"}, Generic},
		{"forbidden status", &genai.APIError{StatusCode: 403}, Authorization},
		{"unauthorized status", &genai.APIError{StatusCode: 401}, Authorization},
		{"model not found", &genai.APIError{StatusCode: 404, Message: "models/veo is not found"}, Authorization},
		{"operation permission status", &genai.APIError{StatusCode: 7, Status: "PERMISSION_DENIED"}, Authorization},
		{"wrapped api error", fmt.Errorf("submit: %w", &genai.APIError{StatusCode: 403}), Authorization},
		{"text marker", errors.New("Error: PERMISSION_DENIED for project"), Authorization},
		{"text forbidden", errors.New("Forbidden"), Authorization},
		{"text invalid key", errors.New("API key not valid. Please pass a valid API key."), Authorization},
		{"classified authorization", domain.NewError(domain.KindAuthorization, "image", "", nil), Authorization},
		{"missing key", fmt.Errorf("plan: %w", genai.ErrMissingAPIKey), Authorization},
		{"classified provider", domain.NewError(domain.KindProvider, "plan", "timeout", nil), Generic},
		{"server error with digits", &genai.APIError{StatusCode: 500, Status: "INTERNAL", Message: "internal error, trace 84017"}, Generic},
		{"quota with digits", &genai.APIError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota of 4030 requests exceeded"}, Generic},
		{"server error text", errors.New("gemini status 500: INTERNAL: internal error, trace 84017"), Generic},
		{"quota text", errors.New("gemini status 429: RESOURCE_EXHAUSTED: quota of 4030 requests exceeded"), Generic},
		{"timed out with digits", domain.NewError(domain.KindTimedOut, "video wait", "no result after 401 polls", nil), Generic},
		{"timed out text", errors.New("video wait: timed_out: no result after 401 polls"), Generic},
		{"abandoned", domain.NewError(domain.KindAbandoned, "image", "selection abandoned", nil), Generic},
		{"port number", errors.New("dial tcp 10.0.0.4:4031: connection refused"), Generic},
		{"status text 403", errors.New("upstream returned status 403"), Authorization},
		{"http text 401", errors.New("HTTP 401 from gateway"), Authorization},
		{"provider kind keeps status", domain.NewError(domain.KindProvider, "plan", "quota 403 reached", &genai.APIError{StatusCode: 429}), Generic},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	errs := []error{
		errors.New("gemini status 403: PERMISSION_DENIED"),
		errors.New("deadline exceeded"),
		&genai.APIError{StatusCode: 404},
	}
	for _, err := range errs {
		first := Classify(err)
		for i := 0; i < 5; i++ {
			if got := Classify(err); got != first {
				t.Fatalf("Classify(%v) changed from %v to %v", err, first, got)
			}
		}
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{403, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		if got := IsRetryableHTTPStatus(tc.code); got != tc.want {
			t.Fatalf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestPollPolicyNormalize(t *testing.T) {
	p := PollPolicy{}.Normalize()
	if p.Interval != DefaultPollInterval {
		t.Fatalf("Interval = %s, want %s", p.Interval, DefaultPollInterval)
	}
	if !p.Bounded() {
		t.Fatal("normalized policy must be bounded")
	}
	custom := PollPolicy{Interval: 1, MaxAttempts: 3}.Normalize()
	if custom.MaxAttempts != 3 || custom.Timeout != 0 {
		t.Fatalf("explicit bounds were overwritten: %+v", custom)
	}
}
