package domain

import (
	"errors"
	"fmt"
)

// policy configuration errors
var (
	ErrEmptyPolicy           = errors.New("empty policy")
	ErrUnknownAggressiveness = errors.New("unknown aggressiveness")
	ErrUnknownPath           = errors.New("unknown decision path")
)

// Aggressiveness defines the fallback of the cleanup path when no rule matched
type Aggressiveness string

// aggressiveness levels
const (
	AggressivenessLight      Aggressiveness = "light"
	AggressivenessModerate   Aggressiveness = "moderate"
	AggressivenessAggressive Aggressiveness = "aggressive"
)

// DecisionPath selects how decisions are made for the records of a policy
type DecisionPath string

// decision paths
const (
	PathCleanup       DecisionPath = "cleanup"       // threshold and keyword rules, five-way action
	PathCompatibility DecisionPath = "compatibility" // composite of compatibility and quality, review queue
	PathArchive       DecisionPath = "archive"       // weighted archive sub-scores
)

// Policy is a per-source configuration of curation rules
type Policy struct {
	Name           string         `yaml:"name" json:"name"`
	Description    string         `yaml:"description" json:"description,omitempty"`
	Path           DecisionPath   `yaml:"path" json:"path,omitempty"`
	MinUpvotes     int            `yaml:"min_upvotes" json:"min_upvotes"`
	MaxAgeDays     int            `yaml:"max_age_days" json:"max_age_days"`
	RemoveKeywords []string       `yaml:"remove_keywords" json:"remove_keywords,omitempty"`
	KeepKeywords   []string       `yaml:"keep_keywords" json:"keep_keywords,omitempty"`
	Aggressiveness Aggressiveness `yaml:"aggressiveness" json:"aggressiveness,omitempty"`

	// DeleteRemovals turns removal outcomes into deletes instead of deactivation
	DeleteRemovals bool `yaml:"delete_removals" json:"delete_removals,omitempty"`
	// Reactivate turns keep outcomes on non-active records into activation
	Reactivate bool `yaml:"reactivate" json:"reactivate,omitempty"`
	// InactiveStatus is the status set on deactivation, inactive if empty
	InactiveStatus Status `yaml:"inactive_status" json:"inactive_status,omitempty"`

	// compatibility path
	Profile      string `yaml:"profile" json:"profile,omitempty"`
	AutoActivate bool   `yaml:"auto_activate" json:"auto_activate,omitempty"`

	// archive path
	Collection string `yaml:"collection" json:"collection,omitempty"`
}

// IsZero reports whether the policy carries no rules at all
func (p Policy) IsZero() bool {
	return p.Path == "" && p.MinUpvotes == 0 && p.MaxAgeDays == 0 && len(p.RemoveKeywords) == 0 &&
		len(p.KeepKeywords) == 0 && p.Aggressiveness == "" && p.Profile == "" && p.Collection == ""
}

// EffectivePath returns the decision path, cleanup if not set
func (p Policy) EffectivePath() DecisionPath {
	if p.Path == "" {
		return PathCleanup
	}
	return p.Path
}

// EffectiveAggressiveness returns aggressiveness, light if not set
func (p Policy) EffectiveAggressiveness() Aggressiveness {
	if p.Aggressiveness == "" {
		return AggressivenessLight
	}
	return p.Aggressiveness
}

// DeactivatedStatus returns the status applied on deactivation
func (p Policy) DeactivatedStatus() Status {
	if p.InactiveStatus == "" {
		return StatusInactive
	}
	return p.InactiveStatus
}

// Validate checks the policy is usable, it doesn't check references to profiles and collections
func (p Policy) Validate() error {
	if p.IsZero() {
		return ErrEmptyPolicy
	}
	switch p.EffectiveAggressiveness() {
	case AggressivenessLight, AggressivenessModerate, AggressivenessAggressive:
	default:
		return fmt.Errorf("policy %q: %w: %q", p.Name, ErrUnknownAggressiveness, p.Aggressiveness)
	}
	switch p.EffectivePath() {
	case PathCleanup:
	case PathCompatibility:
		if p.Profile == "" {
			return fmt.Errorf("policy %q: compatibility path requires a profile", p.Name)
		}
	case PathArchive:
		if p.Collection == "" {
			return fmt.Errorf("policy %q: archive path requires a collection", p.Name)
		}
	default:
		return fmt.Errorf("policy %q: %w: %q", p.Name, ErrUnknownPath, p.Path)
	}
	if p.MinUpvotes < 0 || p.MaxAgeDays < 0 {
		return fmt.Errorf("policy %q: thresholds must be non-negative", p.Name)
	}
	if p.InactiveStatus != "" && !p.InactiveStatus.Valid() {
		return fmt.Errorf("policy %q: %w: %q", p.Name, ErrInvalidStatus, p.InactiveStatus)
	}
	return nil
}
