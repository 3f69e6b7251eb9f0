// Package rubric loads role-family rubrics that drive the video evaluation prompt
// and provide display metadata for evaluated dimensions.
package rubric

import (
	"context"
	"errors"
	"strings"
)

// DefaultRoleFamily is used whenever the requested role family cannot be loaded.
const DefaultRoleFamily = "software_engineer"

// ErrNotFound is returned when no rubric exists for a role family.
var ErrNotFound = errors.New("rubric not found")

// Dimension describes one scored behavior area of a rubric.
type Dimension struct {
	Slug         string            `mapstructure:"slug"`
	Name         string            `mapstructure:"name"`
	Description  string            `mapstructure:"description"`
	GreenFlags   []string          `mapstructure:"green-flags"`
	RedFlags     []string          `mapstructure:"red-flags"`
	ScoringGuide map[string]string `mapstructure:"scoring-guide"`
}

// Rubric is a versioned, data-driven set of dimensions for one role family.
type Rubric struct {
	RoleFamily string      `mapstructure:"role-family"`
	Name       string      `mapstructure:"name"`
	Version    string      `mapstructure:"version"`
	Dimensions []Dimension `mapstructure:"dimensions"`
}

// Loader returns the rubric of a role family.
type Loader interface {
	Load(ctx context.Context, roleFamily string) (*Rubric, error)
}

// NormalizeSlug lowercases a dimension slug so v2 enum keys (COMMUNICATION) and
// v3 slugs (communication) address the same dimension.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// Lookup indexes the rubric dimensions by normalized slug.
func (r *Rubric) Lookup() map[string]Dimension {
	if r == nil {
		return map[string]Dimension{}
	}
	out := make(map[string]Dimension, len(r.Dimensions))
	for _, d := range r.Dimensions {
		out[NormalizeSlug(d.Slug)] = d
	}
	return out
}

// Slugs returns the dimension slugs in rubric order.
func (r *Rubric) Slugs() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Dimensions))
	for _, d := range r.Dimensions {
		out = append(out, d.Slug)
	}
	return out
}
