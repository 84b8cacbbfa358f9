package main

import (
	"fmt"
	"sort"

	"codeatlas/internal/construction"
	"codeatlas/internal/evidence"
	"codeatlas/internal/knowledge"
	"codeatlas/internal/registry"
)

// registerBuiltins wires the builtin analysis constructions against the
// shared fact store and evidence ledger.
func registerBuiltins(reg *registry.Registry, store *knowledge.Store, ledger evidence.Ledger) error {
	builtins := []struct {
		manifest registry.Manifest
		runner   registry.Runner
	}{
		{
			manifest: registry.Manifest{
				ID:          "assert_facts",
				Name:        "Assert Facts",
				Description: "Loads codebase facts into the fact store",
				Tags:        []string{"ingest"},
				InputSchema: registry.ObjectSchema(map[string]*registry.Schema{
					"facts": {Type: "array", Items: &registry.Schema{Type: "object"}},
				}, "facts"),
			},
			runner: assertFactsRunner(store, ledger),
		},
		{
			manifest: registry.Manifest{
				ID:                   "graph_stats",
				Name:                 "Graph Statistics",
				Description:          "Per-predicate fact counts for the indexed codebase",
				Tags:                 []string{"analysis"},
				RequiredCapabilities: []string{registry.CapGraphMetrics},
			},
			runner: graphStatsRunner(store, ledger),
		},
		{
			manifest: registry.Manifest{
				ID:                   "hotspot_rank",
				Name:                 "Hotspot Ranking",
				Description:          "Ranks predicates by fact volume as a rough activity signal",
				Tags:                 []string{"analysis"},
				RequiredCapabilities: []string{registry.CapGraphMetrics},
				InputSchema: registry.ObjectSchema(map[string]*registry.Schema{
					"top": {Type: "integer"},
				}),
			},
			runner: hotspotRankRunner(store, ledger),
		},
	}

	for _, b := range builtins {
		if _, err := reg.Register(b.manifest, b.runner); err != nil {
			return fmt.Errorf("registering %s: %w", b.manifest.ID, err)
		}
	}
	return nil
}

func assertFactsRunner(store *knowledge.Store, ledger evidence.Ledger) registry.Runner {
	return func(in map[string]interface{}, pctx construction.Context[interface{}]) construction.Outcome[registry.Result] {
		raw, _ := in["facts"].([]interface{})
		facts := make([]knowledge.Fact, 0, len(raw))
		for i, item := range raw {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return construction.FailErr[registry.Result](
					construction.InputError("facts[%d]: expected an object", i), "assert_facts")
			}
			predicate, _ := obj["predicate"].(string)
			args, _ := obj["args"].([]interface{})
			facts = append(facts, knowledge.Fact{Predicate: predicate, Args: normalizeArgs(args)})
		}

		if err := store.AssertBatch(facts); err != nil {
			return construction.FailErr[registry.Result](
				construction.WrapError(err, "asserting facts"), "assert_facts")
		}

		rec, err := ledger.Append(pctx.Signal, evidence.Entry{
			Kind:    "facts_asserted",
			Payload: map[string]interface{}{"count": len(facts), "session": pctx.SessionID},
		})
		if err != nil {
			return construction.FailErr[registry.Result](
				construction.WrapError(err, "recording ingest"), "assert_facts")
		}

		result := map[string]interface{}{"asserted": len(facts), "total": store.Count()}
		return construction.Ok(construction.Assess[interface{}](
			result,
			construction.Deterministic(true, "facts loaded verbatim"),
			rec.ID,
		))
	}
}

func graphStatsRunner(store *knowledge.Store, ledger evidence.Ledger) registry.Runner {
	return func(in map[string]interface{}, pctx construction.Context[interface{}]) construction.Outcome[registry.Result] {
		counts := store.PredicateCounts()

		rec, err := ledger.Append(pctx.Signal, evidence.Entry{
			Kind:    "graph_stats",
			Payload: map[string]interface{}{"predicates": len(counts), "facts": store.Count()},
		})
		if err != nil {
			return construction.FailErr[registry.Result](
				construction.WrapError(err, "recording stats"), "graph_stats")
		}

		result := map[string]interface{}{"counts": counts, "total": store.Count()}
		return construction.Ok(construction.Assess[interface{}](
			result,
			construction.Deterministic(true, "exact counts from the fact store"),
			rec.ID,
		))
	}
}

func hotspotRankRunner(store *knowledge.Store, ledger evidence.Ledger) registry.Runner {
	return func(in map[string]interface{}, pctx construction.Context[interface{}]) construction.Outcome[registry.Result] {
		top := 5
		if v, ok := in["top"]; ok {
			switch n := v.(type) {
			case int:
				top = n
			case float64:
				top = int(n)
			}
		}

		counts := store.PredicateCounts()
		type ranked struct {
			Predicate string `json:"predicate"`
			Facts     int    `json:"facts"`
		}
		ranking := make([]ranked, 0, len(counts))
		for predicate, n := range counts {
			ranking = append(ranking, ranked{Predicate: predicate, Facts: n})
		}
		sort.Slice(ranking, func(i, j int) bool {
			if ranking[i].Facts != ranking[j].Facts {
				return ranking[i].Facts > ranking[j].Facts
			}
			return ranking[i].Predicate < ranking[j].Predicate
		})
		if len(ranking) > top {
			ranking = ranking[:top]
		}

		rec, err := ledger.Append(pctx.Signal, evidence.Entry{
			Kind:    "hotspot_rank",
			Payload: map[string]interface{}{"top": top, "considered": len(counts)},
		})
		if err != nil {
			return construction.FailErr[registry.Result](
				construction.WrapError(err, "recording ranking"), "hotspot_rank")
		}

		// Fact volume is a proxy for activity, not a measurement of it.
		return construction.Ok(construction.Assess[interface{}](
			ranking,
			construction.Bounded(0.5, 0.8, "fact volume per predicate", "volume rank"),
			rec.ID,
		))
	}
}

// normalizeArgs maps JSON-decoded arg values onto the store's supported
// term types. Whole floats become ints; everything else passes through for
// the store to accept or reject.
func normalizeArgs(args []interface{}) []interface{} {
	out := make([]interface{}, len(args))
	for i, arg := range args {
		if f, ok := arg.(float64); ok && f == float64(int64(f)) {
			out[i] = int(f)
			continue
		}
		out[i] = arg
	}
	return out
}
