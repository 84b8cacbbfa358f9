package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codeatlas/internal/knowledge"
)

var factsFile string

// factsCmd loads a JSON facts file and queries a predicate, a quick way to
// poke at the fact store without writing a pipeline.
var factsCmd = &cobra.Command{
	Use:   "facts [predicate]",
	Short: "Load facts from a file and query a predicate",
	Args:  cobra.ExactArgs(1),
	RunE:  runFacts,
}

func init() {
	factsCmd.Flags().StringVar(&factsFile, "from", "", "JSON facts file to load (required)")
	factsCmd.MarkFlagRequired("from")
}

func runFacts(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(factsFile)
	if err != nil {
		return fmt.Errorf("reading facts file: %w", err)
	}
	var facts []knowledge.Fact
	if err := json.Unmarshal(data, &facts); err != nil {
		return fmt.Errorf("parsing facts file: %w", err)
	}
	for i := range facts {
		facts[i].Args = normalizeArgs(facts[i].Args)
	}

	store := knowledge.NewStore()
	if err := store.AssertBatch(facts); err != nil {
		return err
	}

	results, err := store.Query(args[0])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Printf("no facts for %s\n", args[0])
		return nil
	}
	for _, fact := range results {
		fmt.Println(fact.String())
	}
	return nil
}
