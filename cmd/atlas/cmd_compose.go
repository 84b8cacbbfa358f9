package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"codeatlas/internal/construction"
	"codeatlas/internal/logging"
	"codeatlas/internal/registry"
)

var (
	composeInputs    []string
	composeInputJSON string
	composeFacts     string
)

// composeCmd compiles a YAML pipeline spec and runs it against the
// workspace's fact store.
var composeCmd = &cobra.Command{
	Use:   "compose [pipeline.yaml]",
	Short: "Compile and run a declarative analysis pipeline",
	Long: `Compiles a YAML pipeline spec over registered constructions and runs it.

Example spec:

  pipeline:
    seq:
      - run: assert_facts
      - fanout:
          - run: graph_stats
          - retry:
              maxAttempts: 3
              of:
                run: hotspot_rank

Inputs reach the first stage as a map, built from --set key=value pairs or
--input-json. Facts can be preloaded with --facts.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompose,
}

func init() {
	composeCmd.Flags().StringArrayVar(&composeInputs, "set", nil, "Pipeline input as key=value (repeatable)")
	composeCmd.Flags().StringVar(&composeInputJSON, "input-json", "", "Pipeline input as a JSON object")
	composeCmd.Flags().StringVar(&composeFacts, "facts", "", "JSON facts file to preload into the store")
}

func runCompose(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if composeFacts != "" {
		if err := preloadFacts(rt, composeFacts); err != nil {
			return err
		}
	}

	spec, err := registry.LoadSpec(args[0])
	if err != nil {
		return err
	}
	pipeline, err := rt.registry.Compile(spec)
	if err != nil {
		return fmt.Errorf("compiling pipeline: %w", err)
	}

	input, err := buildInput()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	sessionID := uuid.NewString()
	logging.Compose("Running pipeline %s (session %s)", pipeline.ID(), sessionID)
	pctx := construction.NewContext(ctx, interface{}(rt.store), sessionID)

	out := pipeline.Execute(input, pctx)
	if !out.IsOk() {
		printFailure(out)
		return fmt.Errorf("pipeline failed: %s", out.Err().Error())
	}
	printResult(out.Value())
	return nil
}

func buildInput() (map[string]interface{}, error) {
	input := make(map[string]interface{})
	if composeInputJSON != "" {
		if err := json.Unmarshal([]byte(composeInputJSON), &input); err != nil {
			return nil, fmt.Errorf("parsing --input-json: %w", err)
		}
	}
	for _, pair := range composeInputs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", pair)
		}
		input[key] = value
	}
	return input, nil
}

func preloadFacts(rt *runtime, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading facts file: %w", err)
	}
	var facts []interface{}
	if err := json.Unmarshal(data, &facts); err != nil {
		return fmt.Errorf("parsing facts file: %w", err)
	}

	entry, err := rt.registry.Lookup("assert_facts")
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	pctx := construction.NewContext(ctx, interface{}(rt.store), uuid.NewString())
	out := entry.Construction.Execute(map[string]interface{}{"facts": facts}, pctx)
	if !out.IsOk() {
		return fmt.Errorf("preloading facts: %s", out.Err().Error())
	}
	return nil
}

func printResult(result registry.Result) {
	value, err := json.MarshalIndent(result.Value, "", "  ")
	if err != nil {
		value = []byte(fmt.Sprintf("%v", result.Value))
	}
	fmt.Println(string(value))
	fmt.Printf("\nconfidence: %s", result.Conf.Kind)
	if num := result.Conf.NumericValue(); !math.IsNaN(num) {
		fmt.Printf(" (%.2f)", num)
	}
	fmt.Println()
	if len(result.Evidence) > 0 {
		fmt.Printf("evidence: %s\n", strings.Join(result.Evidence, ", "))
	}
}

func printFailure(out construction.Outcome[registry.Result]) {
	err := out.Err()
	fmt.Fprintf(os.Stderr, "failed [%s] %s: %s\n", err.Kind, err.SourceID, err.Message)
	if partial, ok := out.Partial(); ok {
		fmt.Fprintf(os.Stderr, "partial result: %v\n", partial.Value)
	}
}
