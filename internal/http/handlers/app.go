package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"weddingplanner/internal/infra"
	"weddingplanner/internal/planner"
)

// CredentialStore persists the key chosen in the front-end selection dialog.
type CredentialStore interface {
	SetGeminiAPIKey(ctx context.Context, key, source string) error
	ClearGeminiAPIKey(ctx context.Context) error
}

// App carries the dependencies shared by every handler.
type App struct {
	Planner *planner.Service
	Store   CredentialStore
	Videos  *VideoTracker
	Binder  *Binder
	Logger  *infra.Logger
	Now     func() time.Time
}

// NewApp wires an App. store may be nil when no database is configured.
func NewApp(svc *planner.Service, store CredentialStore, logger *infra.Logger) *App {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &App{
		Planner: svc,
		Store:   store,
		Videos:  NewVideoTracker(svc.GenerateVideo, 30*time.Minute, logger),
		Binder:  NewBinder(),
		Logger:  logger,
		Now:     time.Now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorBody{Error: errCode, Message: message})
}

// log returns the request-scoped logger when the logging middleware ran.
func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return a.Logger
}
