package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"codeatlas/internal/construction"
	"codeatlas/internal/logging"
)

// Result is the dynamic result shape registered Constructions produce.
// The registry trades the core's static typing for discoverability: the
// CLI and pipeline compiler only see manifests and map-shaped inputs.
type Result = construction.Assessment[interface{}]

// Runner is the body of a factory-built Construction.
type Runner func(in map[string]interface{}, pctx construction.Context[interface{}]) construction.Outcome[Result]

// Built is the construction type the factory produces.
type Built = construction.Construction[map[string]interface{}, Result, interface{}]

// ErrDuplicateID is returned when an id is registered twice. Re-registration
// is not supported; ids are the discovery key.
var ErrDuplicateID = errors.New("construction id already registered")

// ErrUnknownID is returned by lookups for unregistered ids.
var ErrUnknownID = errors.New("unknown construction id")

// Manifest is the metadata a Construction is registered and discovered by.
type Manifest struct {
	ID                   string   `json:"id" yaml:"id"`
	Name                 string   `json:"name" yaml:"name"`
	Description          string   `json:"description" yaml:"description"`
	Tags                 []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty" yaml:"required_capabilities,omitempty"`
	InputSchema          *Schema  `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
	OutputSchema         *Schema  `json:"output_schema,omitempty" yaml:"output_schema,omitempty"`
}

// Entry pairs a manifest with its built Construction.
type Entry struct {
	Manifest     Manifest
	Construction Built
}

// Registry is an explicit value, passed by reference to the code that
// needs discovery (CLI compose, capability inventory). There is no
// package-level registry: initialization order stays visible.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register builds the runner into a guarded Construction and stores it
// under the manifest id.
func (r *Registry) Register(m Manifest, runner Runner) (Built, error) {
	if m.ID == "" {
		return nil, fmt.Errorf("manifest requires an id")
	}
	if m.Name == "" {
		m.Name = m.ID
	}
	built := Build(m, runner)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[m.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, m.ID)
	}
	r.entries[m.ID] = &Entry{Manifest: m, Construction: built}
	logging.RegistryDebug("Registered construction %s (%s)", m.ID, m.Name)
	return built, nil
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	return entry, nil
}

// Manifests returns all registered manifests sorted by id.
func (r *Registry) Manifests() []Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	manifests := make([]Manifest, 0, len(r.entries))
	for _, entry := range r.entries {
		manifests = append(manifests, entry.Manifest)
	}
	sort.Slice(manifests, func(i, j int) bool { return manifests[i].ID < manifests[j].ID })
	return manifests
}

// Build wraps a runner with the factory guards: required capabilities are
// checked against the deps' capability descriptor and the input is
// validated against the manifest's input schema. Either guard failing
// produces a structured failure without invoking the body.
func Build(m Manifest, runner Runner) Built {
	return construction.New(m.ID, m.Name, func(in map[string]interface{}, pctx construction.Context[interface{}]) construction.Outcome[Result] {
		if len(m.RequiredCapabilities) > 0 {
			carrier, ok := pctx.Deps.(CapabilityCarrier)
			for _, name := range m.RequiredCapabilities {
				if !ok || !carrier.Capabilities().Has(name) {
					logging.Registry("Rejecting %s: missing capability %s", m.ID, name)
					return construction.FailErr[Result](construction.CapabilityError(name), m.ID)
				}
			}
		}
		if m.InputSchema != nil {
			if err := m.InputSchema.Validate(mapToAny(in)); err != nil {
				logging.RegistryDebug("Input rejected for %s: %v", m.ID, err)
				return construction.FailErr[Result](construction.InputError("input rejected: %v", err), m.ID)
			}
		}
		return runner(in, pctx)
	})
}

func mapToAny(in map[string]interface{}) interface{} {
	if in == nil {
		return map[string]interface{}{}
	}
	return in
}
