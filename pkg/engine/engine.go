// Package engine implements content curation: quality and compatibility scoring,
// classification, per-source decisions and batch runs producing change-sets.
// All functions are pure, they depend only on the inputs, the rules and the clock.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/rules"
)

// engine errors
var (
	ErrUnknownProfile    = errors.New("unknown compatibility profile")
	ErrUnknownCollection = errors.New("unknown archive collection")
)

// Engine evaluates records against rules
type Engine struct {
	rules *rules.Rules
	now   func() time.Time
}

// Option configures Engine
type Option func(*Engine)

// WithClock sets the clock used for age checks
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New makes Engine for the given rules
func New(r *rules.Rules, opts ...Option) *Engine {
	res := &Engine{rules: r, now: time.Now}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Rules returns rules the engine works with
func (e *Engine) Rules() *rules.Rules {
	return e.rules
}

// checkPolicy validates the policy and its references to profiles and collections
func (e *Engine) checkPolicy(p domain.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	switch p.EffectivePath() {
	case domain.PathCompatibility:
		if _, ok := e.rules.Profile(p.Profile); !ok {
			return fmt.Errorf("policy %q: %w: %q", p.Name, ErrUnknownProfile, p.Profile)
		}
	case domain.PathArchive:
		if _, ok := e.rules.Collection(p.Collection); !ok {
			return fmt.Errorf("policy %q: %w: %q", p.Name, ErrUnknownCollection, p.Collection)
		}
	}
	return nil
}
