package driver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
)

// Registry holds database drivers keyed by their canonical ID. Safe for
// concurrent use. Registration is last-write-wins so a consumer can swap a
// stock driver for an instrumented one.
type Registry struct {
	mu      sync.RWMutex
	drivers map[dbcapabilities.DatabaseID]Driver
}

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[dbcapabilities.DatabaseID]Driver),
	}
}

// Register adds a driver under its own ID.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[d.ID()] = d
}

// Get returns the driver for the given canonical ID.
func (r *Registry) Get(id dbcapabilities.DatabaseID) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[id]
	return d, ok
}

// MustGet returns the driver for the given ID or an ErrDriverNotFound error.
func (r *Registry) MustGet(id dbcapabilities.DatabaseID) (Driver, error) {
	if d, ok := r.Get(id); ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrDriverNotFound, id)
}

// GetByName resolves a name or alias through dbcapabilities.ParseID and
// returns the matching driver.
func (r *Registry) GetByName(name string) (Driver, bool) {
	id, ok := dbcapabilities.ParseID(name)
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// List returns the registered database IDs in sorted order.
func (r *Registry) List() []dbcapabilities.DatabaseID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]dbcapabilities.DatabaseID, 0, len(r.drivers))
	for id := range r.drivers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// defaultRegistry is the package-level registry most consumers use.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the package-level registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a driver to the default registry.
func Register(d Driver) {
	defaultRegistry.Register(d)
}

// Get returns a driver from the default registry.
func Get(id dbcapabilities.DatabaseID) (Driver, bool) {
	return defaultRegistry.Get(id)
}
