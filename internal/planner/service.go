// Package planner is the set of actions the wedding planner front-ends call:
// checklist, budget, seating, emergency advice, moodboard images and videos.
package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"weddingplanner/internal/credential"
	"weddingplanner/internal/domain"
	"weddingplanner/internal/generation"
	"weddingplanner/internal/infra"
	"weddingplanner/internal/observability"
	"weddingplanner/internal/providers/genai"
	"weddingplanner/internal/reliability"
	"weddingplanner/internal/videojob"
)

// DefaultAspectRatio is used when an image request names none.
const DefaultAspectRatio = "3:4"

// AspectRatios lists the image aspect ratios the image model accepts.
var AspectRatios = []string{"1:1", "3:4", "4:3", "9:16", "16:9"}

// Config carries the per-action model choices and generation limits.
type Config struct {
	Models          infra.Models
	SeatingThinking int
	ImageSize       string
	Video           videojob.Config
	Poll            reliability.PollPolicy
}

// ConfigFrom derives the planner configuration from the service config.
func ConfigFrom(cfg *infra.Config) Config {
	return Config{
		Models:          cfg.Models,
		SeatingThinking: cfg.SeatingThinking,
		ImageSize:       "1K",
		Video:           videojob.DefaultConfig(cfg.Models.Video),
		Poll: reliability.PollPolicy{
			Interval:    cfg.VideoPollInterval,
			MaxAttempts: cfg.VideoPollAttempts,
			Timeout:     cfg.VideoPollTimeout,
		},
	}
}

// Options wires a Service.
type Options struct {
	Client  *genai.Client
	Gate    *credential.Gate
	Config  Config
	Metrics *observability.Metrics
	Logger  *infra.Logger
	// JobOptions are applied to every video job, for example a fake sleeper
	// in tests.
	JobOptions []videojob.Option
}

// Service implements the planner actions on top of the model client.
type Service struct {
	client  *genai.Client
	gate    *credential.Gate
	cfg     Config
	metrics *observability.Metrics
	logger  *infra.Logger
	jobOpts []videojob.Option
}

// NewService validates opts and builds a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Client == nil {
		return nil, errors.New("planner: model client is required")
	}
	gate := opts.Gate
	if gate == nil {
		gate = credential.NewGate(credential.NewState(credential.Credential{APIKey: opts.Client.APIKey(), Source: "env"}), nil, opts.Logger)
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	cfg := opts.Config
	if cfg.ImageSize == "" {
		cfg.ImageSize = "1K"
	}
	if cfg.Video.Model == "" {
		cfg.Video = videojob.DefaultConfig(cfg.Models.Video)
	}
	cfg.Poll = cfg.Poll.Normalize()
	jobOpts := append([]videojob.Option{videojob.WithLogger(logger)}, opts.JobOptions...)
	return &Service{
		client:  opts.Client,
		gate:    gate,
		cfg:     cfg,
		metrics: opts.Metrics,
		logger:  logger,
		jobOpts: jobOpts,
	}, nil
}

// Gate exposes the credential gate so hosts can apply a selection.
func (s *Service) Gate() *credential.Gate {
	return s.gate
}

// GeneratePlan asks for ten checklist tasks tailored to the profile.
func (s *Service) GeneratePlan(ctx context.Context, profile domain.WeddingProfile) ([]domain.Task, error) {
	start := time.Now()
	tasks, err := generation.Generate[[]domain.Task](ctx, s.textClient(), generation.Request{
		Model:  s.cfg.Models.Plan,
		Prompt: buildPlanPrompt(profile),
		Schema: planSchema,
	})
	err = textFailure(err)
	s.observe("plan", start, err)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if strings.TrimSpace(tasks[i].ID) == "" {
			tasks[i].ID = uuid.NewString()
		}
	}
	return tasks, nil
}

// GenerateBudget splits total into five to eight spending categories.
func (s *Service) GenerateBudget(ctx context.Context, total float64, style string) ([]domain.BudgetItem, error) {
	if total <= 0 {
		return nil, domain.InvalidRequest("total budget must be positive")
	}
	start := time.Now()
	items, err := generation.Generate[[]domain.BudgetItem](ctx, s.textClient(), generation.Request{
		Model:  s.cfg.Models.Budget,
		Prompt: buildBudgetPrompt(total, style),
		Schema: budgetSchema,
	})
	err = textFailure(err)
	s.observe("budget", start, err)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if strings.TrimSpace(items[i].ID) == "" {
			items[i].ID = uuid.NewString()
		}
	}
	return items, nil
}

// OrganizeSeating asks the model to group guests into tables while keeping
// conflicting guests apart. The returned layout is the model's; conflicts it
// failed to avoid are left in place.
func (s *Service) OrganizeSeating(ctx context.Context, guests []domain.Guest) ([]domain.Table, error) {
	if len(guests) == 0 {
		return []domain.Table{}, nil
	}
	prompt, err := buildSeatingPrompt(guests)
	if err != nil {
		return nil, err
	}
	req := generation.Request{
		Model:  s.cfg.Models.Seating,
		Prompt: prompt,
		Schema: seatingSchema,
	}
	if s.cfg.SeatingThinking > 0 {
		budget := s.cfg.SeatingThinking
		req.ThinkingBudget = &budget
	}
	start := time.Now()
	tables, err := generation.Generate[[]domain.Table](ctx, s.textClient(), req)
	err = textFailure(err)
	s.observe("seating", start, err)
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// Advice is the emergency advice shown to the user.
type Advice struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// EmergencyAdvice returns a short Plan B in the language of tag. It never
// fails: provider errors and empty answers are replaced with a reassuring
// message.
func (s *Service) EmergencyAdvice(ctx context.Context, problem string, tag language.Tag) Advice {
	lang := matchAdviceLanguage(tag)
	fallback := fallbackFor(lang)
	start := time.Now()
	text, err := generation.Text(ctx, s.textClient(), s.cfg.Models.Advice, buildAdvicePrompt(problem, lang))
	s.observe("advice", start, err)
	if err != nil {
		s.logger.Warn().Err(err).Msg("planner: emergency advice failed, using fallback")
		return Advice{Text: fallback.offline, Fallback: true}
	}
	if text == "" {
		return Advice{Text: fallback.calm, Fallback: true}
	}
	return Advice{Text: text}
}

// GenerateMoodboardImage renders one image and returns it as a data URL. An
// empty string with a nil error means the model produced no image.
func (s *Service) GenerateMoodboardImage(ctx context.Context, prompt, aspectRatio string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", domain.InvalidRequest("prompt is required")
	}
	if aspectRatio == "" {
		aspectRatio = DefaultAspectRatio
	}
	if !validAspectRatio(aspectRatio) {
		return "", domain.InvalidRequest(fmt.Sprintf("aspect ratio must be one of %s", strings.Join(AspectRatios, ", ")))
	}

	var locator string
	start := time.Now()
	err := s.privileged(ctx, "image", func(ctx context.Context, client *genai.Client) error {
		resp, err := client.GenerateContent(ctx, s.cfg.Models.Image, genai.ContentRequest{
			Prompt:      prompt,
			ImageConfig: &genai.ImageConfig{AspectRatio: aspectRatio, ImageSize: s.cfg.ImageSize},
		})
		if err != nil {
			return err
		}
		if inline, ok := resp.FirstInline(); ok {
			mime := inline.MimeType
			if mime == "" {
				mime = "image/png"
			}
			locator = "data:" + mime + ";base64," + inline.Data
		}
		return nil
	})
	s.observe("image", start, err)
	if err != nil {
		return "", err
	}
	if locator == "" {
		s.logger.Warn().Str("model", s.cfg.Models.Image).Msg("planner: model returned no image")
	}
	return locator, nil
}

// Video is a finished video generation.
type Video struct {
	Operation string           `json:"operation"`
	Locator   videojob.Locator `json:"locator"`
	Polls     int              `json:"polls"`
}

// GenerateVideo submits a video job and waits for it under the configured
// poll policy. The locator must be passed through OpenVideo or
// Locator.FetchURL before it can be downloaded.
func (s *Service) GenerateVideo(ctx context.Context, prompt string) (Video, error) {
	if strings.TrimSpace(prompt) == "" {
		return Video{}, domain.InvalidRequest("prompt is required")
	}
	var out Video
	start := time.Now()
	s.metrics.VideoJobStarted()
	defer s.metrics.VideoJobFinished()
	err := s.privileged(ctx, "video", func(ctx context.Context, client *genai.Client) error {
		job, err := videojob.Submit(ctx, client, prompt, s.cfg.Video, s.jobOpts...)
		if err != nil {
			return err
		}
		loc, err := job.Wait(ctx, s.cfg.Poll)
		snap := job.Snapshot()
		s.metrics.ObserveVideoPolls(snap.Polls)
		if err != nil {
			return err
		}
		out = Video{Operation: job.Name(), Locator: loc, Polls: snap.Polls}
		return nil
	})
	s.observe("video", start, err)
	if err != nil {
		return Video{}, err
	}
	return out, nil
}

// OpenVideo downloads a finished video with the active credential.
func (s *Service) OpenVideo(ctx context.Context, loc videojob.Locator) (io.ReadCloser, string, error) {
	cred, err := s.gate.Ensure(ctx)
	if err != nil {
		return nil, "", err
	}
	key := cred.APIKey
	if key == "" {
		key = s.client.APIKey()
	}
	fetchURL, err := loc.FetchURL(key)
	if err != nil {
		return nil, "", domain.NewError(domain.KindAuthorization, "video download", "no credential to fetch the video with", err)
	}
	body, contentType, err := s.client.OpenArtifact(ctx, fetchURL)
	if err != nil {
		return nil, "", s.finalize("video download", err)
	}
	if contentType == "" {
		contentType = "video/mp4"
	}
	return body, contentType, nil
}

// privileged runs call with the gated credential. When the provider rejects
// the credential, the user is asked once for another one and call runs once
// more; that second outcome is returned as is.
func (s *Service) privileged(ctx context.Context, action string, call func(context.Context, *genai.Client) error) error {
	cred, err := s.gate.Ensure(ctx)
	if err != nil {
		s.metrics.ObserveCredentialPrompt(promptOutcome(err))
		return err
	}
	err = call(ctx, s.clientFor(cred))
	if err == nil || reliability.Classify(err) != reliability.Authorization || !s.gate.Interactive() {
		return s.finalize(action, err)
	}

	s.logger.Warn().Err(err).Str("action", action).Msg("planner: credential rejected, asking for another")
	s.gate.Invalidate()
	cred, err = s.gate.Reselect(ctx)
	s.metrics.ObserveCredentialPrompt(promptOutcome(err))
	if err != nil {
		return err
	}
	s.metrics.ObserveAuthorizationRetry(action)
	return s.finalize(action, call(ctx, s.clientFor(cred)))
}

// finalize gives every failure a kind: credential problems become
// authorization errors, anything unclassified a provider error.
func (s *Service) finalize(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrInvalidRequest) {
		return err
	}
	status := 0
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 100 {
		status = apiErr.StatusCode
	}
	var out *domain.Error
	switch {
	case reliability.Classify(err) == reliability.Authorization:
		out = domain.Reclassify(err, domain.KindAuthorization)
	case domain.KindOf(err) != "":
		return err
	default:
		out = domain.NewError(domain.KindProvider, op, err.Error(), err)
	}
	if out.Op == "" {
		out.Op = op
	}
	if out.Status == 0 {
		out.Status = status
	}
	return out
}

func (s *Service) clientFor(cred credential.Credential) *genai.Client {
	if cred.Empty() {
		return s.client
	}
	return s.client.WithAPIKey(cred.APIKey)
}

// textClient serves the unprivileged actions. They run with the configured
// key and borrow the last selected one when none is configured.
func (s *Service) textClient() *generation.Client {
	client := s.client
	if !client.HasCredentials() {
		client = s.clientFor(s.gate.State().Current())
	}
	return generation.NewClient(client, s.logger)
}

func (s *Service) observe(action string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	s.metrics.ObserveGeneration(action, outcome, time.Since(start))
}

// textFailure marks a missing key on an unprivileged call as an authorization
// problem; other failures keep the kind generation gave them.
func textFailure(err error) error {
	if err != nil && errors.Is(err, genai.ErrMissingAPIKey) {
		return domain.Reclassify(err, domain.KindAuthorization)
	}
	return err
}

func promptOutcome(err error) string {
	switch {
	case err == nil:
		return "selected"
	case errors.Is(err, domain.ErrAbandoned):
		return "abandoned"
	default:
		return "error"
	}
}

func validAspectRatio(v string) bool {
	for _, r := range AspectRatios {
		if r == v {
			return true
		}
	}
	return false
}
