// Package registry implements the discovery surface for Constructions:
// manifests with JSON-schema-shaped input/output contracts, a factory that
// enforces capability and input validation before a body runs, and a YAML
// pipeline compiler for composing registered Constructions.
package registry

// Capability names observed across deps providers. A provider may expose
// more; these are the ones manifests commonly require.
const (
	CapGraphMetrics = "graphMetrics"
	CapEmbeddings   = "embeddings"
	CapMultiVectors = "multiVectors"
)

// Capabilities describes what a dependency provider can do, split into
// always-present core features and optional ones.
type Capabilities struct {
	Core     []string `json:"core" yaml:"core"`
	Optional []string `json:"optional" yaml:"optional"`
}

// Has reports whether the named capability is available (core or optional).
func (c Capabilities) Has(name string) bool {
	for _, n := range c.Core {
		if n == name {
			return true
		}
	}
	for _, n := range c.Optional {
		if n == name {
			return true
		}
	}
	return false
}

// CapabilityCarrier is implemented by dependency providers that can
// describe themselves. The factory checks required capabilities against
// it before invoking a Construction body.
type CapabilityCarrier interface {
	Capabilities() Capabilities
}
