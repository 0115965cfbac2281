package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"weddingplanner/internal/infra"
	"weddingplanner/internal/planner"
)

// VideoRunner generates one video and blocks until it is ready.
type VideoRunner func(ctx context.Context, prompt string) (planner.Video, error)

// Video job statuses reported to clients.
const (
	VideoRunning = "RUNNING"
	VideoDone    = "DONE"
	VideoFailed  = "FAILED"
)

// ErrVideoInFlight is returned when a client already has a running job.
var ErrVideoInFlight = errors.New("a video is already being generated for this client")

// VideoJob is the tracker's view of one generation.
type VideoJob struct {
	ID       string
	Client   string
	Prompt   string
	Status   string
	Video    planner.Video
	Err      error
	Created  time.Time
	Finished time.Time
}

// VideoTracker runs video generations in the background so HTTP requests do
// not hold a connection for the whole poll. Finished jobs are kept for ttl.
type VideoTracker struct {
	run    VideoRunner
	ttl    time.Duration
	logger *infra.Logger
	now    func() time.Time

	mu   sync.Mutex
	jobs map[string]*VideoJob

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewVideoTracker builds a tracker around run.
func NewVideoTracker(run VideoRunner, ttl time.Duration, logger *infra.Logger) *VideoTracker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &VideoTracker{
		run:    run,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		jobs:   make(map[string]*VideoJob),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches a generation for client. A client may run one job at a time.
func (t *VideoTracker) Start(client, prompt string) (VideoJob, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ctx.Err(); err != nil {
		return VideoJob{}, err
	}
	t.evictLocked()
	for _, j := range t.jobs {
		if j.Client == client && j.Status == VideoRunning {
			return *j, ErrVideoInFlight
		}
	}
	job := &VideoJob{
		ID:      uuid.NewString(),
		Client:  client,
		Prompt:  prompt,
		Status:  VideoRunning,
		Created: t.now(),
	}
	t.jobs[job.ID] = job
	t.wg.Add(1)
	go t.execute(job.ID, prompt)
	return *job, nil
}

func (t *VideoTracker) execute(id, prompt string) {
	defer t.wg.Done()
	video, err := t.run(t.ctx, prompt)

	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Finished = t.now()
	if err != nil {
		job.Status = VideoFailed
		job.Err = err
		t.logger.Warn().Err(err).Str("job_id", id).Msg("video job failed")
		return
	}
	job.Status = VideoDone
	job.Video = video
	t.logger.Info().Str("job_id", id).Int("polls", video.Polls).Msg("video job done")
}

// Get returns a copy of the job with id.
func (t *VideoTracker) Get(id string) (VideoJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictLocked()
	job, ok := t.jobs[id]
	if !ok {
		return VideoJob{}, false
	}
	return *job, true
}

// Running counts jobs still generating.
func (t *VideoTracker) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, j := range t.jobs {
		if j.Status == VideoRunning {
			n++
		}
	}
	return n
}

// Shutdown cancels running jobs and waits for them until ctx ends.
func (t *VideoTracker) Shutdown(ctx context.Context) error {
	t.cancel()
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *VideoTracker) evictLocked() {
	if t.ttl <= 0 {
		return
	}
	cutoff := t.now().Add(-t.ttl)
	for id, j := range t.jobs {
		if j.Status != VideoRunning && j.Finished.Before(cutoff) {
			delete(t.jobs, id)
		}
	}
}
