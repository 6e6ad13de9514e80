package providers

import (
	"strings"

	"shop-service/internal/apperr"
)

// Registry is the closed set of configured gateways, keyed on lowercase
// provider name. New gateways are added here, never by branching on name
// inside shared logic.
type Registry struct {
	byName map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.byName[strings.ToLower(p.Name())] = p
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, apperr.Newf(apperr.KindValidation, "unsupported provider: %s", name)
	}
	return p, nil
}
