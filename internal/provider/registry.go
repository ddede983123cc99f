package provider

import "github.com/AliZeynalov/keybridge/internal/models"

// Registry is the ordered set of adapters the dispatcher may use.
type Registry struct {
	adapters []Adapter
	byID     map[models.ProviderID]Adapter
}

// NewRegistry registers adapters in the given order. A later adapter with the
// same ID replaces an earlier one.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byID: make(map[models.ProviderID]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := r.byID[a.ID()]; dup {
			for i, existing := range r.adapters {
				if existing.ID() == a.ID() {
					r.adapters[i] = a
				}
			}
		} else {
			r.adapters = append(r.adapters, a)
		}
		r.byID[a.ID()] = a
	}
	return r
}

// NewStandardRegistry builds all five adapters sharing opts. endpoints may
// override the built-in endpoint of any provider.
func NewStandardRegistry(opts Options, endpoints map[models.ProviderID]Endpoint) *Registry {
	with := func(id models.ProviderID) Options {
		o := opts
		o.Endpoint = endpoints[id]
		return o
	}
	return NewRegistry(
		NewOpenAI(with(models.ProviderOpenAI)),
		NewAnthropic(with(models.ProviderAnthropic)),
		NewGoogle(with(models.ProviderGoogle)),
		NewXAI(with(models.ProviderXAI)),
		NewOpenRouter(with(models.ProviderOpenRouter)),
	)
}

// Lookup finds the adapter for id.
func (r *Registry) Lookup(id models.ProviderID) (Adapter, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Adapters returns the registered adapters in registration order.
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}
