package construction

// Construction is the atomic composable unit of analysis: a typed,
// fallible, confidence-producing operation. Constructions are stateless
// values, built once (by a factory or combinator) and invoked many times;
// no instance-level mutable state may survive across invocations.
type Construction[In, Out, D any] interface {
	// ID uniquely identifies the Construction inside a composition.
	// Failure attribution (Outcome.SourceID) relies on it.
	ID() string
	// Name is the human-readable label used in progress events and logs.
	Name() string
	// Execute is the canonical, always-available entry point.
	Execute(in In, pctx Context[D]) Outcome[Out]
}

// Streamer is the opt-in streaming side of the contract. A Streamer's
// channel must carry zero or more non-terminal events followed by exactly
// one terminal event, and must be closed only after that terminal event.
// Draining the stream and extracting the terminal outcome must equal
// calling Execute directly.
type Streamer[In, Out, D any] interface {
	Construction[In, Out, D]
	Stream(in In, pctx Context[D]) <-chan Event[Out]
}

// Func adapts a plain function into a Construction.
type Func[In, Out, D any] struct {
	id   string
	name string
	fn   func(In, Context[D]) Outcome[Out]
}

// New builds a Construction from a function.
func New[In, Out, D any](id, name string, fn func(In, Context[D]) Outcome[Out]) *Func[In, Out, D] {
	return &Func[In, Out, D]{id: id, name: name, fn: fn}
}

func (f *Func[In, Out, D]) ID() string   { return f.id }
func (f *Func[In, Out, D]) Name() string { return f.name }

func (f *Func[In, Out, D]) Execute(in In, pctx Context[D]) Outcome[Out] {
	out := f.fn(in, pctx)
	if !out.IsOk() {
		// Stamp attribution if the body did not.
		return Outcome[Out]{err: out.err.withSource(f.id), partial: out.partial}
	}
	return out
}

// Assessed is the constraint PauseForHuman places on its result type: the
// result must expose its confidence and evidence references, and support
// rebuilding itself with a human-overridden confidence or merged evidence.
type Assessed[T any] interface {
	Confidence() Confidence
	EvidenceRefs() []string
	WithConfidence(Confidence) T
	WithEvidence(refs []string) T
}

// Assessment is the standard confidence-scored, evidence-linked result
// wrapper analysis routines return. Evidence is referenced by ledger id,
// never embedded.
type Assessment[T any] struct {
	Value    T
	Conf     Confidence
	Evidence []string // ledger record ids
}

// Assess wraps a value with its confidence and evidence references.
func Assess[T any](value T, conf Confidence, evidence ...string) Assessment[T] {
	return Assessment[T]{Value: value, Conf: conf, Evidence: evidence}
}

func (a Assessment[T]) Confidence() Confidence { return a.Conf }
func (a Assessment[T]) EvidenceRefs() []string { return a.Evidence }

// WithConfidence returns a copy carrying the given confidence.
func (a Assessment[T]) WithConfidence(c Confidence) Assessment[T] {
	a.Conf = c
	return a
}

// WithEvidence returns a copy whose evidence refs are replaced by refs.
// Evidence accumulates monotonically: callers pass a superset.
func (a Assessment[T]) WithEvidence(refs []string) Assessment[T] {
	a.Evidence = refs
	return a
}
