package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"weddingplanner/internal/credential"
	"weddingplanner/internal/domain"
	"weddingplanner/internal/infra"
	"weddingplanner/internal/planner"
	"weddingplanner/internal/providers/genai"
	"weddingplanner/internal/seating"
	"weddingplanner/internal/storage"
)

type options struct {
	action     string
	names      string
	date       string
	style      string
	budget     float64
	guestCount int
	location   string
	guestsFile string
	prompt     string
	aspect     string
	locale     string
	out        string
}

func main() {
	infra.LoadDotEnv()

	var opts options
	flag.StringVar(&opts.action, "action", "plan", "action to run (plan, budget, seating, sos, image, video)")
	flag.StringVar(&opts.names, "names", "", "couple names")
	flag.StringVar(&opts.date, "date", "", "wedding date (YYYY-MM-DD)")
	flag.StringVar(&opts.style, "style", "Clássico", "wedding style")
	flag.Float64Var(&opts.budget, "budget", 0, "total budget")
	flag.IntVar(&opts.guestCount, "guest-count", 0, "expected number of guests")
	flag.StringVar(&opts.location, "location", "", "wedding location")
	flag.StringVar(&opts.guestsFile, "guests", "", "JSON file with the guest list (seating)")
	flag.StringVar(&opts.prompt, "prompt", "", "problem (sos) or description (image, video)")
	flag.StringVar(&opts.aspect, "aspect", planner.DefaultAspectRatio, "image aspect ratio")
	flag.StringVar(&opts.locale, "locale", "pt-BR", "language for emergency advice")
	flag.StringVar(&opts.out, "out", "", "directory to save the image or video in")
	flag.Parse()

	if err := execute(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute wires the planner from the environment and runs one action.
func execute(opts options) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "planner").Str("action", opts.action).Logger()

	client, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		return err
	}
	gate := credential.NewGate(
		credential.NewState(credential.Credential{APIKey: cfg.GeminiAPIKey, Source: "env"}),
		credential.NewTerminalSelector(os.Stdin, os.Stderr),
		&logger,
	)
	svc, err := planner.NewService(planner.Options{
		Client: client,
		Gate:   gate,
		Config: planner.ConfigFrom(cfg),
		Logger: &logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, svc, opts, os.Stdout, os.Stderr)
}

func run(ctx context.Context, svc *planner.Service, opts options, stdout, stderr io.Writer) error {
	profile := domain.WeddingProfile{
		Names:      opts.names,
		Date:       opts.date,
		Budget:     opts.budget,
		Style:      opts.style,
		GuestCount: opts.guestCount,
		Location:   opts.location,
	}

	switch strings.ToLower(strings.TrimSpace(opts.action)) {
	case "plan":
		tasks, err := svc.GeneratePlan(ctx, profile)
		if err != nil {
			return err
		}
		return printJSON(stdout, map[string]any{"tasks": tasks})
	case "budget":
		items, err := svc.GenerateBudget(ctx, opts.budget, opts.style)
		if err != nil {
			return err
		}
		return printJSON(stdout, map[string]any{"items": items})
	case "seating":
		guests, err := readGuests(opts.guestsFile)
		if err != nil {
			return err
		}
		tables, err := svc.OrganizeSeating(ctx, guests)
		if err != nil {
			return err
		}
		return printJSON(stdout, map[string]any{
			"tables":   tables,
			"warnings": seating.FindConflicts(tables, guests),
			"unseated": seating.Unseated(tables, guests),
		})
	case "sos":
		tag, err := language.Parse(opts.locale)
		if err != nil {
			tag = language.BrazilianPortuguese
		}
		return printJSON(stdout, svc.EmergencyAdvice(ctx, opts.prompt, tag))
	case "image":
		dataURL, err := svc.GenerateMoodboardImage(ctx, opts.prompt, opts.aspect)
		if err != nil {
			return err
		}
		if dataURL == "" {
			return errors.New("the model returned no image")
		}
		if opts.out == "" {
			_, err := fmt.Fprintln(stdout, dataURL)
			return err
		}
		store, err := storage.NewFileStore(opts.out)
		if err != nil {
			return err
		}
		path, err := store.WriteDataURL(ctx, "images/"+uuid.NewString(), dataURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "image written to %s\n", path)
		return nil
	case "video":
		video, err := svc.GenerateVideo(ctx, opts.prompt)
		if err != nil {
			return err
		}
		if opts.out == "" {
			return printJSON(stdout, video)
		}
		store, err := storage.NewFileStore(opts.out)
		if err != nil {
			return err
		}
		body, contentType, err := svc.OpenVideo(ctx, video.Locator)
		if err != nil {
			return err
		}
		defer body.Close()
		path, err := store.WriteFrom(ctx, "videos/"+uuid.NewString()+storage.ExtensionFor(contentType), body)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "video written to %s after %d polls\n", path, video.Polls)
		return nil
	default:
		return fmt.Errorf("unsupported action %q", opts.action)
	}
}

func readGuests(path string) ([]domain.Guest, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("-guests is required for seating")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read guests: %w", err)
	}
	var guests []domain.Guest
	if err := json.Unmarshal(raw, &guests); err != nil {
		return nil, fmt.Errorf("decode guests: %w", err)
	}
	return guests, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
