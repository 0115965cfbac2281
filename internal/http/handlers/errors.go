package handlers

import (
	"context"
	"errors"
	"net/http"

	"weddingplanner/internal/domain"
)

// fail writes the response for a failed planner call.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, errCode := statusFor(err)
	var be *BindError
	if errors.As(err, &be) {
		a.json(w, code, errorBody{Error: errCode, Message: be.Message, Field: be.Field})
		return
	}
	ev := a.log(r).Warn()
	if code >= http.StatusInternalServerError {
		ev = a.log(r).Error()
	}
	ev.Err(err).Int("status", code).Str("error_code", errCode).Msg("planner request failed")
	a.error(w, code, errCode, publicMessage(err, code))
}

// publicMessage is the part of err safe to show to clients.
func publicMessage(err error, code int) string {
	if code == http.StatusInternalServerError {
		return "internal error"
	}
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

func statusFor(err error) (int, string) {
	var be *BindError
	switch {
	case errors.As(err, &be):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timed_out"
	case errors.Is(err, context.Canceled):
		return 499, "canceled"
	}
	switch domain.KindOf(err) {
	case domain.KindAuthorization:
		return http.StatusUnauthorized, "credential_required"
	case domain.KindAbandoned:
		return http.StatusPreconditionRequired, "credential_selection_required"
	case domain.KindTimedOut:
		return http.StatusGatewayTimeout, "timed_out"
	case domain.KindMalformedOutput:
		return http.StatusBadGateway, "malformed_output"
	case domain.KindProvider:
		return http.StatusBadGateway, "provider_error"
	}
	return http.StatusInternalServerError, "internal"
}
