package handlers

import (
	"net/http"
	"time"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"time":        a.Now().UTC().Format(time.RFC3339),
		"credential":  a.Planner.Gate().Interactive() || !a.Planner.Gate().State().Current().Empty(),
		"videos_busy": a.Videos.Running(),
	})
}
