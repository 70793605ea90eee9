package scanout

import (
	"sort"
	"sync"
)

// PresenterFactory creates a new Presenter for the given configuration.
// Factories validate the configuration's shape but do not touch the
// display; Initialize does that.
type PresenterFactory func(cfg Config) (Presenter, error)

// RegistryEntry represents a registered presenter backend.
type RegistryEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: the fenced atomic path
	//   - 10: the legacy page-flip path
	Priority int

	// Factory creates presenter instances.
	Factory PresenterFactory

	// Available reports if the backend is available on this system.
	Available func() bool
}

// globalRegistry is the default registry.
var globalRegistry = &Registry{}

// Registry manages registered presenter backends.
//
// The registry lets alternative presentation paths register themselves
// without changes to the core library; the built-in atomic and legacy
// presenters register at init.
//
// Example usage:
//
//	p, err := scanout.NewByName("legacy", cfg)
//	// or auto-select the highest-priority backend:
//	p, err := scanout.New(cfg)
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and New.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a backend to the global registry.
//
// If available is nil, the backend is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, factory PresenterFactory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a backend from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns all registered backend names sorted by priority (highest first).
func List() []string {
	return globalRegistry.List()
}

// Available returns names of all available backends sorted by priority.
func Available() []string {
	return globalRegistry.Available()
}

// Get returns information about a specific backend.
func Get(name string) (*RegistryEntry, bool) {
	return globalRegistry.Get(name)
}

// New creates a presenter using the best available backend. The atomic
// presenter wins when the configuration supports it; callers that know
// their device cannot do atomic commits use NewByName("legacy", cfg).
func New(cfg Config) (Presenter, error) {
	return globalRegistry.New(cfg)
}

// NewByName creates a presenter using a specific named backend.
func NewByName(name string, cfg Config) (Presenter, error) {
	return globalRegistry.NewByName(name, cfg)
}

// Register adds a backend to this registry.
func (r *Registry) Register(name string, priority int, factory PresenterFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*RegistryEntry)
	}

	if available == nil {
		available = func() bool { return true }
	}

	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// List returns all registered backend names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(false)
}

// Available returns names of all available backends sorted by priority.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(true)
}

// Get returns information about a specific backend.
func (r *Registry) Get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}

	// Return a copy to prevent modification
	entryCopy := *entry
	return &entryCopy, true
}

// New creates a presenter using the best available backend, falling
// through to lower-priority backends when a factory rejects the
// configuration.
func (r *Registry) New(cfg Config) (Presenter, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	if len(available) == 0 {
		return nil, ErrNoPresenterAvailable
	}

	var lastErr error
	for _, name := range available {
		p, err := r.NewByName(name, cfg)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoPresenterAvailable
}

// NewByName creates a presenter using a specific backend.
func (r *Registry) NewByName(name string, cfg Config) (Presenter, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}

	if !entry.Available() {
		return nil, &BackendUnavailableError{Name: name}
	}

	return entry.Factory(cfg)
}

// sortedNames returns backend names sorted by priority (highest first).
// If onlyAvailable is true, filters to available backends only.
// Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	type entry struct {
		name     string
		priority int
	}

	entries := make([]entry, 0, len(r.entries))
	for name, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, entry{name: name, priority: e.Priority})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].priority > entries[j].priority
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// BackendNotFoundError indicates a named backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "scanout: presenter backend not found: " + e.Name
}

// BackendUnavailableError indicates a backend exists but is not available.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "scanout: presenter backend unavailable: " + e.Name
}

// init registers the built-in presenters.
func init() {
	Register("atomic", 100, func(cfg Config) (Presenter, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return NewAtomicPresenter(cfg), nil
	}, nil)

	Register("legacy", 10, func(cfg Config) (Presenter, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, ok := cfg.Display.(FlipDisplay); !ok {
			return nil, &ConfigError{Field: "Display", Reason: "does not support page flips"}
		}
		return NewLegacyPresenter(cfg), nil
	}, nil)
}
