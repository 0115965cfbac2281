package credential

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// BillingURL explains why privileged actions need a key from a paid project.
const BillingURL = "https://ai.google.dev/gemini-api/docs/billing"

// KeyStore is the persisted selection read by StoreSelector.
type KeyStore interface {
	GeminiAPIKey(ctx context.Context) (string, error)
}

// StoreSelector serves hosts whose selection dialog lives elsewhere, such as
// a web front-end that writes the chosen key through the API. It can report
// an existing selection but cannot prompt, so Select always abandons.
type StoreSelector struct {
	Store KeyStore
}

func (s StoreSelector) HasSelected(ctx context.Context) (Credential, bool, error) {
	if s.Store == nil {
		return Credential{}, false, nil
	}
	key, err := s.Store.GeminiAPIKey(ctx)
	if err != nil {
		return Credential{}, false, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Credential{}, false, nil
	}
	return Credential{APIKey: key, Source: "store"}, true, nil
}

func (s StoreSelector) Select(context.Context) (Credential, error) {
	return Credential{}, fmt.Errorf("%w: a key must be selected through the credentials endpoint", ErrAbandoned)
}

// TerminalSelector prompts for a key on an interactive terminal. An empty
// line or end of input abandons the selection.
type TerminalSelector struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer
}

// NewTerminalSelector reads answers from in and writes prompts to out.
func NewTerminalSelector(in io.Reader, out io.Writer) *TerminalSelector {
	if out == nil {
		out = io.Discard
	}
	return &TerminalSelector{reader: bufio.NewReader(in), out: out}
}

func (t *TerminalSelector) HasSelected(context.Context) (Credential, bool, error) {
	return Credential{}, false, nil
}

func (t *TerminalSelector) Select(ctx context.Context) (Credential, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out, "Video and image generation need a Gemini API key from a paid Google Cloud project.")
	fmt.Fprintln(t.out, "Billing details: "+BillingURL)
	fmt.Fprint(t.out, "Paste the API key (empty line to cancel): ")

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := t.reader.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case a := <-ch:
		key := strings.TrimSpace(a.line)
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return Credential{}, fmt.Errorf("read api key: %w", a.err)
		}
		if key == "" {
			return Credential{}, ErrAbandoned
		}
		return Credential{APIKey: key, Source: "terminal"}, nil
	}
}

// StaticSelector answers from fixed values. Selected is reported by
// HasSelected; each Select call pops the next entry of Choices and abandons
// once they run out.
type StaticSelector struct {
	mu       sync.Mutex
	Selected Credential
	Choices  []Credential
	Err      error

	hasSelectedCalls int
	selectCalls      int
}

func (s *StaticSelector) HasSelected(context.Context) (Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasSelectedCalls++
	if s.Err != nil {
		return Credential{}, false, s.Err
	}
	return s.Selected, !s.Selected.Empty(), nil
}

func (s *StaticSelector) Select(context.Context) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectCalls++
	if len(s.Choices) == 0 {
		return Credential{}, ErrAbandoned
	}
	next := s.Choices[0]
	s.Choices = s.Choices[1:]
	return next, nil
}

// Calls returns how many times each method ran.
func (s *StaticSelector) Calls() (hasSelected, selectCalls int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSelectedCalls, s.selectCalls
}
