package platform

import (
	"fmt"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

// Registry binds every supported platform kind to its adapter at construction
// time. The binding is fixed; there is no runtime registration.
type Registry struct {
	adapters map[Kind]Adapter
}

func NewRegistry(cfg config.PlatformSettings) *Registry {
	return &Registry{
		adapters: map[Kind]Adapter{
			KindLinkedIn:  NewLinkedInAdapter(cfg.LinkedIn),
			KindTwitter:   NewTwitterAdapter(cfg.Twitter),
			KindReddit:    NewRedditAdapter(cfg.Reddit),
			KindFacebook:  NewFacebookAdapter(cfg.Facebook),
			KindInstagram: NewInstagramAdapter(cfg.Instagram),
		},
	}
}

// NewRegistryWith builds a registry from explicit adapters. Tests use it to
// substitute fakes; unknown kinds stay impossible because the key is a Kind.
func NewRegistryWith(adapters ...Adapter) *Registry {
	m := make(map[Kind]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Kind()] = a
	}
	return &Registry{adapters: m}
}

// Adapter resolves a platform name to its adapter. Unknown or unbound names
// are errors.
func (r *Registry) Adapter(name string) (Adapter, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	adapter, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("platform %s has no bound adapter", kind)
	}
	return adapter, nil
}
