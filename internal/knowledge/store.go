// Package knowledge provides the reference fact-store collaborator the
// demo pipeline and tests inject as Construction deps. The substrate never
// depends on it; it only consumes the capability descriptor the store
// exposes.
package knowledge

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"

	"codeatlas/internal/logging"
	"codeatlas/internal/registry"
)

// Fact is a single fact about the indexed codebase, e.g.
// function("pkg/server.go", "handleConn") or edge("a", "calls", "b").
type Fact struct {
	Predicate string        `json:"predicate"`
	Args      []interface{} `json:"args"`
}

// String returns the Datalog representation of the fact.
func (f Fact) String() string {
	args := make([]string, len(f.Args))
	for i, arg := range f.Args {
		switch v := arg.(type) {
		case string:
			if strings.HasPrefix(v, "/") {
				args[i] = v
			} else {
				args[i] = fmt.Sprintf("%q", v)
			}
		default:
			args[i] = fmt.Sprintf("%v", v)
		}
	}
	return fmt.Sprintf("%s(%s)", f.Predicate, strings.Join(args, ", "))
}

// Store is a compact in-memory fact store over the Mangle runtime.
type Store struct {
	mu         sync.RWMutex
	store      factstore.ConcurrentFactStore
	predicates map[string]ast.PredicateSym
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		store:      factstore.NewConcurrentFactStore(factstore.NewSimpleInMemoryStore()),
		predicates: make(map[string]ast.PredicateSym),
	}
}

// Capabilities implements registry.CapabilityCarrier. Graph metrics are
// core; vector features are absent in this reference store.
func (s *Store) Capabilities() registry.Capabilities {
	return registry.Capabilities{
		Core: []string{registry.CapGraphMetrics},
	}
}

// Assert adds a fact. Duplicate facts are a no-op.
func (s *Store) Assert(fact Fact) error {
	atom, err := s.toAtom(fact)
	if err != nil {
		return err
	}
	if s.store.Add(atom) {
		logging.KnowledgeDebug("Asserted %s", fact)
	}
	return nil
}

// AssertBatch adds several facts, stopping at the first conversion error.
func (s *Store) AssertBatch(facts []Fact) error {
	for _, fact := range facts {
		if err := s.Assert(fact); err != nil {
			return err
		}
	}
	return nil
}

// Query returns all facts for the predicate in unspecified order.
func (s *Store) Query(predicate string) ([]Fact, error) {
	s.mu.RLock()
	sym, ok := s.predicates[predicate]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var results []Fact
	err := s.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		args := make([]interface{}, len(atom.Args))
		for i, arg := range atom.Args {
			args[i] = termToValue(arg)
		}
		results = append(results, Fact{Predicate: predicate, Args: args})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", predicate, err)
	}
	return results, nil
}

// Count returns the total number of stored facts.
func (s *Store) Count() int {
	return s.store.EstimateFactCount()
}

// PredicateCounts returns per-predicate fact counts, the shape the
// graph-stats construction reports.
func (s *Store) PredicateCounts() map[string]int {
	counts := make(map[string]int)
	for _, sym := range s.store.ListPredicates() {
		n := 0
		_ = s.store.GetFacts(ast.NewQuery(sym), func(ast.Atom) error {
			n++
			return nil
		})
		counts[sym.Symbol] = n
	}
	return counts
}

func (s *Store) toAtom(fact Fact) (ast.Atom, error) {
	if fact.Predicate == "" {
		return ast.Atom{}, fmt.Errorf("fact requires a predicate")
	}
	s.mu.Lock()
	sym, ok := s.predicates[fact.Predicate]
	if !ok {
		sym = ast.PredicateSym{Symbol: fact.Predicate, Arity: len(fact.Args)}
		s.predicates[fact.Predicate] = sym
	}
	s.mu.Unlock()
	if sym.Arity != len(fact.Args) {
		return ast.Atom{}, fmt.Errorf("predicate %s expects %d args, got %d", fact.Predicate, sym.Arity, len(fact.Args))
	}

	args := make([]ast.BaseTerm, len(fact.Args))
	for i, arg := range fact.Args {
		term, err := valueToTerm(arg)
		if err != nil {
			return ast.Atom{}, fmt.Errorf("predicate %s arg %d: %w", fact.Predicate, i, err)
		}
		args[i] = term
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

func valueToTerm(value interface{}) (ast.BaseTerm, error) {
	switch v := value.(type) {
	case string:
		// Short /slash atoms are Mangle name constants; everything else
		// (paths, identifiers) stays a string.
		if strings.HasPrefix(v, "/") && !strings.ContainsAny(v, " \t\n\r") && strings.Count(v, "/") <= 2 {
			if name, err := ast.Name(v); err == nil {
				return name, nil
			}
		}
		return ast.String(v), nil
	case int:
		return ast.Number(int64(v)), nil
	case int64:
		return ast.Number(v), nil
	case bool:
		if v {
			return ast.Name("/true")
		}
		return ast.Name("/false")
	default:
		return nil, fmt.Errorf("unsupported arg type %T", value)
	}
}

func termToValue(term ast.BaseTerm) interface{} {
	constant, ok := term.(ast.Constant)
	if !ok {
		return term.String()
	}
	switch constant.Type {
	case ast.StringType, ast.NameType:
		return constant.Symbol
	case ast.NumberType:
		return constant.NumValue
	default:
		return constant.String()
	}
}
