package tracking

import (
	"sort"

	"github.com/ignite/site-tracking/internal/domain"
)

// IdentitySet remembers which integration identities a page load has
// already injected. Not safe for concurrent use: a page is mutated by the
// single goroutine serving it.
type IdentitySet struct {
	ids map[string]struct{}
}

func NewIdentitySet() *IdentitySet {
	return &IdentitySet{ids: make(map[string]struct{})}
}

func (s *IdentitySet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *IdentitySet) Add(id string) {
	s.ids[id] = struct{}{}
}

func (s *IdentitySet) Len() int { return len(s.ids) }

// Registry maps vendors to the handles their injection made available.
// The emitter fans out by presence in the registry, never by configuration.
type Registry struct {
	handles map[domain.IntegrationType]Handle
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[domain.IntegrationType]Handle)}
}

// Register adds h for t. A vendor has one global per page, so the first
// registration wins and later ones report false.
func (r *Registry) Register(t domain.IntegrationType, h Handle) bool {
	if _, ok := r.handles[t]; ok {
		return false
	}
	r.handles[t] = h
	return true
}

func (r *Registry) Lookup(t domain.IntegrationType) (Handle, bool) {
	if r == nil {
		return nil, false
	}
	h, ok := r.handles[t]
	return h, ok
}

// Vendors returns the registered vendor types in name order.
func (r *Registry) Vendors() []domain.IntegrationType {
	if r == nil {
		return nil
	}
	out := make([]domain.IntegrationType, 0, len(r.handles))
	for t := range r.handles {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
