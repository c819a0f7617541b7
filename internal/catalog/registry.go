package catalog

import "github.com/rotisserie/eris"

// Registry maps dataset names to their definitions.
type Registry struct {
	datasets map[string]Dataset
	order    []string // insertion order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		datasets: make(map[string]Dataset),
	}
}

// Register validates d and adds it. Names must be unique.
func (r *Registry) Register(d Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, ok := r.datasets[d.Name]; ok {
		return eris.Errorf("catalog: duplicate dataset %q", d.Name)
	}
	r.datasets[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Get returns a dataset by name.
func (r *Registry) Get(name string) (Dataset, error) {
	d, ok := r.datasets[name]
	if !ok {
		return Dataset{}, eris.Errorf("catalog: unknown dataset %q", name)
	}
	return d, nil
}

// Select returns the named datasets, or all of them when names is empty.
func (r *Registry) Select(names []string) ([]Dataset, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	result := make([]Dataset, 0, len(names))
	for _, name := range names {
		d, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// All returns all datasets in registration order.
func (r *Registry) All() []Dataset {
	result := make([]Dataset, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.datasets[name])
	}
	return result
}

// Names returns all dataset names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
