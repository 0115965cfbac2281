// Package videojob drives a provider long-running video operation from
// submission to a downloadable locator.
package videojob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"weddingplanner/internal/domain"
	"weddingplanner/internal/infra"
	"weddingplanner/internal/providers/genai"
	"weddingplanner/internal/reliability"
)

// Submitter starts a video operation.
type Submitter interface {
	SubmitVideo(ctx context.Context, model, prompt string, cfg genai.VideoConfig) (*genai.Operation, error)
}

// Poller reads the state of an operation.
type Poller interface {
	GetOperation(ctx context.Context, name string) (*genai.Operation, error)
}

// Provider is what a job needs from the model client.
type Provider interface {
	Submitter
	Poller
}

// State is the lifecycle stage of a job.
type State string

const (
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
	StateAbandoned State = "abandoned"
)

// Terminal reports whether no further polling can change the state.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateFailed, StateTimedOut, StateAbandoned:
		return true
	default:
		return false
	}
}

// Config selects the model and output shape of a video.
type Config struct {
	Model          string
	NumberOfVideos int
	Resolution     string
	AspectRatio    string
}

// DefaultConfig renders one 720p landscape clip.
func DefaultConfig(model string) Config {
	return Config{Model: model, NumberOfVideos: 1, Resolution: "720p", AspectRatio: "16:9"}
}

// Locator identifies a generated artifact. It is not fetchable on its own.
type Locator string

// FetchURL returns the locator with the credential attached as the "key"
// query parameter.
func (l Locator) FetchURL(apiKey string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", errors.New("videojob: a credential is required to fetch the artifact")
	}
	return genai.AppendKey(string(l), apiKey)
}

// Snapshot is a point-in-time view of a job.
type Snapshot struct {
	Name    string
	State   State
	Done    bool
	Locator Locator
	Polls   int
	Err     error
}

// Option customises a job.
type Option func(*Job)

// WithSleeper replaces the real-time delay used by Wait.
func WithSleeper(s reliability.Sleeper) Option {
	return func(j *Job) { j.sleep = s }
}

// WithClock replaces time.Now for Timeout accounting.
func WithClock(now func() time.Time) Option {
	return func(j *Job) { j.now = now }
}

// WithLogger attaches a logger.
func WithLogger(l *infra.Logger) Option {
	return func(j *Job) {
		if l != nil {
			j.logger = l
		}
	}
}

// Job tracks one submitted operation. It is safe for concurrent use, though
// only one goroutine is expected to poll.
type Job struct {
	poller Poller
	name   string
	sleep  reliability.Sleeper
	now    func() time.Time
	logger *infra.Logger

	mu      sync.Mutex
	state   State
	locator Locator
	polls   int
	err     error
}

// Submit starts the operation and returns a job in the Submitted state.
func Submit(ctx context.Context, p Provider, prompt string, cfg Config, opts ...Option) (*Job, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.InvalidRequest("prompt is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, domain.InvalidRequest("video model is required")
	}
	op, err := p.SubmitVideo(ctx, cfg.Model, prompt, genai.VideoConfig{
		NumberOfVideos: cfg.NumberOfVideos,
		Resolution:     cfg.Resolution,
		AspectRatio:    cfg.AspectRatio,
	})
	if err != nil {
		return nil, classify("video submit", err)
	}
	job := Resume(p, op.Name, opts...)
	job.logger.Info().Str("operation", op.Name).Str("model", cfg.Model).Msg("videojob: submitted")
	return job, nil
}

// Resume attaches to an operation submitted earlier.
func Resume(p Poller, name string, opts ...Option) *Job {
	nop := zerolog.Nop()
	j := &Job{
		poller: p,
		name:   name,
		sleep:  reliability.Sleep,
		now:    time.Now,
		logger: &nop,
		state:  StateSubmitted,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name is the provider operation handle.
func (j *Job) Name() string {
	return j.name
}

// Snapshot returns the current view without contacting the provider.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() Snapshot {
	return Snapshot{
		Name:    j.name,
		State:   j.state,
		Done:    j.state == StateDone,
		Locator: j.locator,
		Polls:   j.polls,
		Err:     j.err,
	}
}

// Poll fetches the operation once. A locator is only ever reported together
// with Done. Polling a job in a terminal state returns its snapshot without a
// provider call.
func (j *Job) Poll(ctx context.Context) (Snapshot, error) {
	j.mu.Lock()
	if j.state.Terminal() {
		snap := j.snapshotLocked()
		j.mu.Unlock()
		return snap, snap.Err
	}
	j.mu.Unlock()

	op, err := j.poller.GetOperation(ctx, j.name)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.polls++
	if err != nil {
		if ctx.Err() != nil {
			return j.finishLocked(StateAbandoned, ctx.Err())
		}
		return j.finishLocked(StateFailed, classify("video poll", err))
	}
	if !op.Done {
		j.state = StatePolling
		j.logger.Debug().Str("operation", j.name).Int("polls", j.polls).Msg("videojob: still running")
		return j.snapshotLocked(), nil
	}
	if failure := op.Failure(); failure != nil {
		return j.finishLocked(StateFailed, classify("video operation", failure))
	}
	uri := op.VideoURI()
	if uri == "" {
		return j.finishLocked(StateFailed, domain.NewError(domain.KindProvider, "video operation", "operation finished without a video", nil))
	}
	j.state = StateDone
	j.locator = Locator(uri)
	j.logger.Info().Str("operation", j.name).Int("polls", j.polls).Msg("videojob: done")
	return j.snapshotLocked(), nil
}

func (j *Job) finishLocked(state State, err error) (Snapshot, error) {
	j.state = state
	j.err = err
	j.logger.Warn().Err(err).Str("operation", j.name).Str("state", string(state)).Msg("videojob: finished without a video")
	return j.snapshotLocked(), err
}

// Wait alternates delay and poll at the policy interval until the job is done,
// fails, or exceeds the policy bounds. Cancelling ctx stops local polling and
// leaves the remote operation running.
func (j *Job) Wait(ctx context.Context, policy reliability.PollPolicy) (Locator, error) {
	policy = policy.Normalize()
	start := j.now()
	for attempt := 1; ; attempt++ {
		if err := j.sleep(ctx, policy.Interval); err != nil {
			j.mu.Lock()
			_, err = j.finishLocked(StateAbandoned, err)
			j.mu.Unlock()
			return "", err
		}
		if policy.Timeout > 0 && j.now().Sub(start) > policy.Timeout {
			return "", j.timeout(fmt.Sprintf("no result after %s", policy.Timeout))
		}
		snap, err := j.Poll(ctx)
		if err != nil {
			return "", err
		}
		if snap.Done {
			return snap.Locator, nil
		}
		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			return "", j.timeout(fmt.Sprintf("no result after %d polls", attempt))
		}
	}
}

func (j *Job) timeout(msg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := j.finishLocked(StateTimedOut, domain.NewError(domain.KindTimedOut, "video wait", msg, nil))
	return err
}

func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	e := domain.NewError(domain.KindProvider, op, err.Error(), err)
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 100 {
		e.Status = apiErr.StatusCode
	}
	return e
}
