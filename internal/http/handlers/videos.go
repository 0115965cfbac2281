package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"weddingplanner/internal/middleware"
)

type videoRequest struct {
	Prompt string `json:"prompt" validate:"required,max=2000"`
}

type videoStatus struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Prompt     string     `json:"prompt"`
	Polls      int        `json:"polls,omitempty"`
	ContentURL string     `json:"contentUrl,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func (a *App) videoStatus(job VideoJob) videoStatus {
	out := videoStatus{
		ID:        job.ID,
		Status:    job.Status,
		Prompt:    job.Prompt,
		Polls:     job.Video.Polls,
		CreatedAt: job.Created.UTC(),
	}
	if !job.Finished.IsZero() {
		finished := job.Finished.UTC()
		out.FinishedAt = &finished
	}
	switch job.Status {
	case VideoDone:
		out.ContentURL = "/v1/moodboard/videos/" + job.ID + "/content"
	case VideoFailed:
		status, code := statusFor(job.Err)
		out.Error = &errorBody{Error: code, Message: publicMessage(job.Err, status)}
	}
	return out
}

// VideosGenerate queues a video generation and answers 202 with its id.
func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[videoRequest](a.Binder, r, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	job, err := a.Videos.Start(middleware.ClientIP(r), req.Prompt)
	if errors.Is(err, ErrVideoInFlight) {
		a.json(w, http.StatusConflict, map[string]any{
			"error":   "video_in_flight",
			"message": err.Error(),
			"job":     a.videoStatus(job),
		})
		return
	}
	if err != nil {
		a.error(w, http.StatusServiceUnavailable, "shutting_down", "video generation is unavailable")
		return
	}
	w.Header().Set("Location", "/v1/moodboard/videos/"+job.ID)
	a.json(w, http.StatusAccepted, a.videoStatus(job))
}

// VideoStatus reports the state of a queued video.
func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := a.Videos.Get(chi.URLParam(r, "job_id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, a.videoStatus(job))
}

// VideoContent streams a finished video through the server so the credential
// never reaches the client.
func (a *App) VideoContent(w http.ResponseWriter, r *http.Request) {
	job, ok := a.Videos.Get(chi.URLParam(r, "job_id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	if job.Status != VideoDone {
		a.error(w, http.StatusConflict, "not_ready", "video is not ready")
		return
	}
	body, contentType, err := a.Planner.OpenVideo(r.Context(), job.Video.Locator)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		a.log(r).Warn().Err(err).Str("job_id", job.ID).Msg("video stream interrupted")
	}
}
