package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"weddingplanner/internal/domain"
	"weddingplanner/internal/middleware"
)

type imageRequest struct {
	Prompt      string `json:"prompt" validate:"required,max=2000"`
	AspectRatio string `json:"aspectRatio" validate:"omitempty,oneof=1:1 3:4 4:3 9:16 16:9"`
}

// MoodboardImage renders one inspiration image. item is null when the model
// answered without an image.
func (a *App) MoodboardImage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[imageRequest](a.Binder, r, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	url, err := a.Planner.GenerateMoodboardImage(r.Context(), req.Prompt, req.AspectRatio)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var item *domain.MoodboardItem
	if url != "" {
		item = &domain.MoodboardItem{
			ID:     uuid.NewString(),
			Type:   domain.MoodboardImage,
			URL:    url,
			Prompt: req.Prompt,
		}
	}
	a.json(w, http.StatusOK, map[string]any{"item": item})
}
