package reliability

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"weddingplanner/internal/domain"
	"weddingplanner/internal/providers/genai"
)

// Class is the outcome of classifying a failure.
type Class int

const (
	// Generic failures are shown to the user as they are.
	Generic Class = iota
	// Authorization failures mean the active credential is missing, rejected
	// or lacks access to the model; the caller should re-select a credential.
	Authorization
)

func (c Class) String() string {
	if c == Authorization {
		return "authorization"
	}
	return "generic"
}

// authorizationMarkers are matched case-insensitively against the text of
// errors that carry no status. "not found" is included on purpose: the
// provider answers 404 for models the key's project cannot use.
var authorizationMarkers = []string{
	"permission_denied",
	"permission denied",
	"forbidden",
	"not found",
	"not_found",
	"unauthenticated",
	"api key not valid",
	"api_key_invalid",
}

// authorizationCode matches a 401 or 403 only where it reads as a status,
// e.g. "status 403" or "HTTP 401", never inside a longer number.
var authorizationCode = regexp.MustCompile(`(?i)\b(?:status|code|http|error)(?:\s+code)?[\s:=]*40[13]\b`)

// Classify decides whether err denotes an authorization problem. It has no
// side effects and depends only on err.
func Classify(err error) Class {
	if err == nil {
		return Generic
	}
	if errors.Is(err, genai.ErrMissingAPIKey) {
		return Authorization
	}
	switch domain.KindOf(err) {
	case domain.KindAuthorization:
		return Authorization
	case domain.KindTimedOut, domain.KindAbandoned, domain.KindMalformedOutput:
		return Generic
	}
	if errors.Is(err, domain.ErrInvalidRequest) {
		return Generic
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode > 0 || apiErr.Status != "") {
		return classifyStatus(apiErr.StatusCode, apiErr.Status)
	}
	var de *domain.Error
	if errors.As(err, &de) && de.Status > 0 {
		return classifyStatus(de.Status, "")
	}

	text := strings.ToLower(err.Error())
	for _, marker := range authorizationMarkers {
		if strings.Contains(text, marker) {
			return Authorization
		}
	}
	if authorizationCode.MatchString(text) {
		return Authorization
	}
	return Generic
}

// classifyStatus decides from an HTTP status code and the provider's status
// name alone. Operation errors carry RPC codes, so the name is checked too.
func classifyStatus(code int, status string) Class {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return Authorization
	}
	switch strings.ToUpper(status) {
	case "PERMISSION_DENIED", "UNAUTHENTICATED", "NOT_FOUND":
		return Authorization
	}
	return Generic
}

// IsRetryableHTTPStatus classifies transient provider status codes. It is
// reported in metrics only; the core never retries on its own.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
