// Package contextprov supplies the situational context merged into every
// prompt: who is asking, the domain enumerations, known users, the user's
// projects and the distribution of their tasks by status.
package contextprov

import (
	"context"
	"fmt"
	"time"

	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/rs/zerolog"
)

// Provider contributes one named fragment. Provide must not write and must
// return a usable empty fragment for a user with no data.
type Provider interface {
	Key() string
	Provide(ctx context.Context, user workspace.User) (any, error)
}

// Directory is the read-only view of the workspace the providers need.
type Directory interface {
	ListUsers(ctx context.Context) ([]workspace.User, error)
	ProjectOverviews(ctx context.Context, user workspace.User) ([]workspace.ProjectOverview, error)
	StatusCounts(ctx context.Context, user workspace.User) ([]workspace.StatusCount, error)
}

// Context is the merged result of all providers, keyed by provider key.
type Context map[string]any

// Set is an immutable collection of providers with disjoint keys.
type Set struct {
	providers []Provider
	logger    zerolog.Logger
}

// NewSet returns a Set. Two providers sharing a key is a wiring defect.
func NewSet(logger zerolog.Logger, providers ...Provider) (*Set, error) {
	seen := make(map[string]bool, len(providers))
	for _, p := range providers {
		k := p.Key()
		if k == "" {
			return nil, fmt.Errorf("contextprov: provider %T has an empty key", p)
		}
		if seen[k] {
			return nil, fmt.Errorf("contextprov: duplicate provider key %q", k)
		}
		seen[k] = true
	}
	return &Set{providers: providers, logger: logger}, nil
}

// Default returns the standard providers backed by dir.
func Default(logger zerolog.Logger, dir Directory, now func() time.Time) (*Set, error) {
	if now == nil {
		now = time.Now
	}
	return NewSet(logger,
		CurrentUser{},
		Constants{Now: now},
		Users{Dir: dir},
		Projects{Dir: dir},
		Statuses{Dir: dir},
	)
}

// Keys returns provider keys in registration order.
func (s *Set) Keys() []string {
	out := make([]string, len(s.providers))
	for i, p := range s.providers {
		out[i] = p.Key()
	}
	return out
}

// Gather runs every provider in order and merges the fragments. A failing
// provider is logged and contributes an empty fragment.
func (s *Set) Gather(ctx context.Context, user workspace.User) Context {
	out := make(Context, len(s.providers))
	for _, p := range s.providers {
		frag, err := p.Provide(ctx, user)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("provider", p.Key()).
				Int64("user_id", user.ID).
				Msg("context provider failed, using empty fragment")
			frag = map[string]any{}
		}
		out[p.Key()] = frag
	}
	return out
}
