package analyzer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/phantomsec/gibson/internal/osv"
)

// Registry maps analyzer names to implementations. Lookup order is stable
// so hydration runs are reproducible.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[string]Analyzer
}

func NewRegistry() *Registry {
	return &Registry{analyzers: make(map[string]Analyzer)}
}

// Register adds an analyzer, rejecting duplicate names.
func (r *Registry) Register(a Analyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.analyzers[a.Name()]; ok {
		return fmt.Errorf("analyzer %q already registered", a.Name())
	}
	r.analyzers[a.Name()] = a
	return nil
}

// Get returns the named analyzer.
func (r *Registry) Get(name string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[name]
	return a, ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.analyzers))
	for name := range r.analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps a profile's analyzer names to implementations, erroring on
// any name with no registration.
func (r *Registry) Resolve(names []string) ([]Analyzer, error) {
	resolved := make([]Analyzer, 0, len(names))
	for _, name := range names {
		a, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown analyzer %q", name)
		}
		resolved = append(resolved, a)
	}
	return resolved, nil
}

// Builtin returns a registry populated with the stock analyzers. The OSV
// client may be nil, in which case the vulnerabilities analyzer reports
// zero findings for ecosystems it cannot query. A nil deniedLicenses
// keeps the default denied list.
func Builtin(osvClient *osv.Client, deniedLicenses []string, logger zerolog.Logger) *Registry {
	r := NewRegistry()
	for _, a := range []Analyzer{
		NewTechnology(),
		NewDependencies(),
		NewSecrets(),
		NewLicenses(deniedLicenses),
		NewVulnerabilities(osvClient, logger),
	} {
		// Names are distinct constants; Register cannot fail here.
		_ = r.Register(a)
	}
	return r
}
