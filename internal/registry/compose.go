package registry

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"codeatlas/internal/construction"
	"codeatlas/internal/logging"
)

// Spec is a declarative pipeline over registered Constructions, loaded
// from YAML by the compose command.
type Spec struct {
	Pipeline Node `yaml:"pipeline"`
}

// Node is one operator in a pipeline tree. Exactly one field may be set.
type Node struct {
	Run      string        `yaml:"run,omitempty"`
	Seq      []Node        `yaml:"seq,omitempty"`
	Fanout   []Node        `yaml:"fanout,omitempty"`
	Fallback *FallbackNode `yaml:"fallback,omitempty"`
	Retry    *RetryNode    `yaml:"retry,omitempty"`
}

// FallbackNode switches to backup when primary fails.
type FallbackNode struct {
	Primary Node `yaml:"primary"`
	Backup  Node `yaml:"backup"`
}

// RetryNode bounds re-attempts of its child.
type RetryNode struct {
	MaxAttempts int  `yaml:"maxAttempts"`
	BaseDelayMs int  `yaml:"baseDelayMs"`
	Of          Node `yaml:"of"`
}

// LoadSpec reads a pipeline spec from a YAML file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline spec: %w", err)
	}
	return ParseSpec(data)
}

// ParseSpec parses a pipeline spec from YAML bytes.
func ParseSpec(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing pipeline spec: %w", err)
	}
	if spec.Pipeline.isEmpty() {
		return nil, fmt.Errorf("pipeline spec has no operators")
	}
	return &spec, nil
}

func (n Node) isEmpty() bool {
	return n.Run == "" && len(n.Seq) == 0 && len(n.Fanout) == 0 && n.Fallback == nil && n.Retry == nil
}

func (n Node) operatorCount() int {
	count := 0
	if n.Run != "" {
		count++
	}
	if len(n.Seq) > 0 {
		count++
	}
	if len(n.Fanout) > 0 {
		count++
	}
	if n.Fallback != nil {
		count++
	}
	if n.Retry != nil {
		count++
	}
	return count
}

// stage is the uniform shape pipeline nodes compile to, so any operator
// output can feed any downstream operator.
type stage = construction.Construction[Result, Result, interface{}]

// Compile turns a pipeline spec into a runnable Construction. Every `run`
// id must be registered.
func (r *Registry) Compile(spec *Spec) (Built, error) {
	root, err := r.compileNode(spec.Pipeline)
	if err != nil {
		return nil, err
	}
	logging.Compose("Compiled pipeline %s", root.ID())
	return construction.New(root.ID(), root.Name(), func(in map[string]interface{}, pctx construction.Context[interface{}]) construction.Outcome[Result] {
		seed := construction.Assess[interface{}](mapToAny(in), construction.Absent("pipeline input"))
		return root.Execute(seed, pctx)
	}), nil
}

func (r *Registry) compileNode(n Node) (stage, error) {
	if count := n.operatorCount(); count != 1 {
		return nil, fmt.Errorf("pipeline node must set exactly one operator, got %d", count)
	}

	switch {
	case n.Run != "":
		entry, err := r.Lookup(n.Run)
		if err != nil {
			return nil, err
		}
		return adaptStage(entry.Construction), nil

	case len(n.Seq) > 0:
		stages := make([]stage, 0, len(n.Seq))
		for _, child := range n.Seq {
			s, err := r.compileNode(child)
			if err != nil {
				return nil, err
			}
			stages = append(stages, s)
		}
		chained := stages[0]
		for _, next := range stages[1:] {
			chained = construction.Seq(chained, next)
		}
		return chained, nil

	case len(n.Fanout) > 0:
		if len(n.Fanout) != 2 {
			return nil, fmt.Errorf("fanout takes exactly two branches, got %d", len(n.Fanout))
		}
		first, err := r.compileNode(n.Fanout[0])
		if err != nil {
			return nil, err
		}
		second, err := r.compileNode(n.Fanout[1])
		if err != nil {
			return nil, err
		}
		return mergeFanout(construction.Fanout(first, second)), nil

	case n.Fallback != nil:
		primary, err := r.compileNode(n.Fallback.Primary)
		if err != nil {
			return nil, err
		}
		backup, err := r.compileNode(n.Fallback.Backup)
		if err != nil {
			return nil, err
		}
		return construction.Fallback(primary, backup), nil

	default: // Retry
		inner, err := r.compileNode(n.Retry.Of)
		if err != nil {
			return nil, err
		}
		policy := construction.DefaultRetryPolicy()
		if n.Retry.MaxAttempts > 0 {
			policy.MaxAttempts = n.Retry.MaxAttempts
		}
		if n.Retry.BaseDelayMs > 0 {
			policy.BaseDelay = time.Duration(n.Retry.BaseDelayMs) * time.Millisecond
		}
		return construction.WithRetry(inner, policy), nil
	}
}

// adaptStage feeds a previous stage's result into a map-input Construction.
// A map-valued result passes through as the input; anything else is
// wrapped under "input".
func adaptStage(c Built) stage {
	return construction.New(c.ID(), c.Name(), func(in Result, pctx construction.Context[interface{}]) construction.Outcome[Result] {
		m, ok := in.Value.(map[string]interface{})
		if !ok {
			m = map[string]interface{}{"input": in.Value}
		}
		return c.Execute(m, pctx)
	})
}

// mergeFanout collapses a fan-out pair back into a single Result: the two
// values become a 2-element slice, the confidences aggregate, and the
// evidence refs union.
func mergeFanout(f construction.Construction[Result, construction.Pair[Result, Result], interface{}]) stage {
	return construction.New(f.ID(), f.Name(), func(in Result, pctx construction.Context[interface{}]) construction.Outcome[Result] {
		out := f.Execute(in, pctx)
		if !out.IsOk() {
			return construction.FailErr[Result](out.Err(), out.SourceID())
		}
		pair := out.Value()
		refs := append(append([]string(nil), pair.First.Evidence...), pair.Second.Evidence...)
		merged := construction.Assess[interface{}](
			[]interface{}{pair.First.Value, pair.Second.Value},
			construction.Aggregate(pair.First.Conf, pair.Second.Conf),
			dedupe(refs)...,
		)
		return construction.Ok(merged)
	})
}

func dedupe(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}
