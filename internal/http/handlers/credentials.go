package handlers

import (
	"net/http"
	"strings"

	"weddingplanner/internal/credential"
	"weddingplanner/internal/middleware"
)

type credentialRequest struct {
	APIKey string `json:"apiKey" validate:"required,min=8,max=256"`
}

type credentialStatus struct {
	Active      bool   `json:"active"`
	Source      string `json:"source,omitempty"`
	Interactive bool   `json:"interactive"`
	BillingURL  string `json:"billingUrl"`
}

func (a *App) credentialStatus() credentialStatus {
	gate := a.Planner.Gate()
	cred, active := gate.State().Active()
	return credentialStatus{
		Active:      active,
		Source:      cred.Source,
		Interactive: gate.Interactive(),
		BillingURL:  credential.BillingURL,
	}
}

// CredentialStatus tells the front-end whether it must open the key dialog.
// The key itself is never returned.
func (a *App) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.credentialStatus())
}

// CredentialSelect applies the key the user picked in the front-end dialog.
func (a *App) CredentialSelect(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[credentialRequest](a.Binder, r, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if a.Store != nil {
		if err := a.Store.SetGeminiAPIKey(r.Context(), key, "ui"); err != nil {
			a.log(r).Error().Err(err).Msg("persist selected credential")
			a.error(w, http.StatusInternalServerError, "internal", "failed to store credential")
			return
		}
	}
	a.Planner.Gate().State().Set(credential.Credential{APIKey: key, Source: "ui"})
	a.log(r).Info().Msg("credential selected from ui")
	a.json(w, http.StatusOK, a.credentialStatus())
}

// CredentialClear forgets the selected key so the next privileged action
// needs a new selection.
func (a *App) CredentialClear(w http.ResponseWriter, r *http.Request) {
	if a.Store != nil {
		if err := a.Store.ClearGeminiAPIKey(r.Context()); err != nil {
			a.log(r).Error().Err(err).Msg("clear selected credential")
			a.error(w, http.StatusInternalServerError, "internal", "failed to clear credential")
			return
		}
	}
	a.Planner.Gate().Invalidate()
	a.json(w, http.StatusOK, a.credentialStatus())
}
