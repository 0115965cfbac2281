// Package credential decides which API key privileged model calls run with
// and drives the user-facing selection when none is active.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"weddingplanner/internal/domain"
	"weddingplanner/internal/infra"
)

// ErrAbandoned is returned by selectors when the user dismisses the selection.
var ErrAbandoned = errors.New("credential selection abandoned")

// Credential is an API key plus where it came from.
type Credential struct {
	APIKey string
	Source string
}

// Empty reports whether no key is set.
func (c Credential) Empty() bool {
	return strings.TrimSpace(c.APIKey) == ""
}

// State holds the process-wide active credential. A State must be created with
// NewState and shared by pointer.
type State struct {
	mu     sync.RWMutex
	cred   Credential
	active bool
}

// NewState seeds the state with a statically configured credential. A
// non-empty initial credential starts active.
func NewState(initial Credential) *State {
	return &State{cred: initial, active: !initial.Empty()}
}

// Active returns the credential when one is active.
func (s *State) Active() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, s.active
}

// Current returns the last known credential whether or not it is active.
func (s *State) Current() Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred
}

// Set activates c.
func (s *State) Set(c Credential) {
	s.mu.Lock()
	s.cred = c
	s.active = !c.Empty()
	s.mu.Unlock()
}

// Invalidate marks the current credential as no longer usable.
func (s *State) Invalidate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// Selector talks to whatever lets the user pick a credential.
type Selector interface {
	// HasSelected returns a credential the user already picked, if any.
	HasSelected(ctx context.Context) (Credential, bool, error)
	// Select runs the selection and blocks until it completes. It returns
	// ErrAbandoned when the user dismisses it.
	Select(ctx context.Context) (Credential, error)
}

// Gate makes sure a usable credential is active before privileged calls.
type Gate struct {
	state    *State
	selector Selector
	group    singleflight.Group
	logger   *infra.Logger
}

// NewGate builds a gate over state. selector may be nil, in which case the gate
// never prompts and callers run with the statically configured credential.
func NewGate(state *State, selector Selector, logger *infra.Logger) *Gate {
	if state == nil {
		state = NewState(Credential{})
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Gate{state: state, selector: selector, logger: logger}
}

// State exposes the gate's credential state.
func (g *Gate) State() *State {
	return g.state
}

// Interactive reports whether the gate can ask the user for a credential.
func (g *Gate) Interactive() bool {
	return g.selector != nil
}

// Ensure returns the active credential, running a selection when none is
// active. Concurrent callers share a single selection.
func (g *Gate) Ensure(ctx context.Context) (Credential, error) {
	if cred, ok := g.state.Active(); ok {
		return cred, nil
	}
	if g.selector == nil {
		return g.state.Current(), nil
	}
	return g.do(ctx, "ensure", func(ctx context.Context) (Credential, error) {
		if cred, ok := g.state.Active(); ok {
			return cred, nil
		}
		cred, ok, err := g.selector.HasSelected(ctx)
		if err != nil {
			return Credential{}, fmt.Errorf("credential: check selection: %w", err)
		}
		if ok && !cred.Empty() {
			g.state.Set(cred)
			return cred, nil
		}
		return g.selectNow(ctx)
	})
}

// Invalidate clears the active flag after the provider rejected the credential.
func (g *Gate) Invalidate() {
	g.state.Invalidate()
	g.logger.Info().Msg("credential: active credential invalidated")
}

// Reselect forces one selection regardless of what was picked before.
func (g *Gate) Reselect(ctx context.Context) (Credential, error) {
	if g.selector == nil {
		return Credential{}, domain.NewError(domain.KindAbandoned, "credential reselect", "no credential selector configured", nil)
	}
	return g.do(ctx, "reselect", g.selectNow)
}

func (g *Gate) selectNow(ctx context.Context) (Credential, error) {
	g.logger.Info().Msg("credential: waiting for selection")
	cred, err := g.selector.Select(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Credential{}, ctxErr
		}
		if errors.Is(err, ErrAbandoned) {
			return Credential{}, domain.NewError(domain.KindAbandoned, "credential select", "selection was dismissed", err)
		}
		return Credential{}, fmt.Errorf("credential: select: %w", err)
	}
	if cred.Empty() {
		return Credential{}, domain.NewError(domain.KindAbandoned, "credential select", "no key was chosen", nil)
	}
	g.state.Set(cred)
	g.logger.Info().Str("source", cred.Source).Msg("credential: selection completed")
	return cred, nil
}

// do collapses concurrent selections under key. Each caller stops waiting
// when its own context ends; the shared selection runs detached from any
// single caller's cancellation.
func (g *Gate) do(ctx context.Context, key string, fn func(context.Context) (Credential, error)) (Credential, error) {
	shared := context.WithoutCancel(ctx)
	ch := g.group.DoChan(key, func() (any, error) {
		return fn(shared)
	})
	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		return res.Val.(Credential), nil
	}
}
