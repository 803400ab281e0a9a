package router

import (
	"fmt"
	"sort"

	"github.com/sverreng/dtss/internal/repository"
)

// Registry is the fixed scheme-to-repository mapping the router routes
// with. It is built once at startup and never mutated afterwards, so
// lookups need no locking even under concurrent requests.
type Registry struct {
	repos   map[string]repository.Repository
	schemes []string
}

// NewRegistry builds a registry from the given repositories, keyed by
// each repository's scheme name. Two repositories claiming the same
// scheme is a ConfigurationError: it is reported here, at startup,
// rather than at query time.
func NewRegistry(repos ...repository.Repository) (*Registry, error) {
	byScheme := make(map[string]repository.Repository, len(repos))
	for _, repo := range repos {
		name := repo.Name()
		if name == "" {
			return nil, &ConfigurationError{Reason: "repository with empty scheme name"}
		}
		if _, ok := byScheme[name]; ok {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate repository scheme %q", name)}
		}
		byScheme[name] = repo
	}

	schemes := make([]string, 0, len(byScheme))
	for scheme := range byScheme {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)

	return &Registry{repos: byScheme, schemes: schemes}, nil
}

// Lookup resolves a scheme to its owning repository.
func (r *Registry) Lookup(scheme string) (repository.Repository, error) {
	repo, ok := r.repos[scheme]
	if !ok {
		return nil, &UnknownSchemeError{Scheme: scheme, Known: r.schemes}
	}
	return repo, nil
}

// Schemes returns the registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	out := make([]string, len(r.schemes))
	copy(out, r.schemes)
	return out
}
