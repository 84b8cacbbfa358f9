package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var inventoryJSON bool

// inventoryCmd lists the registered constructions and the capabilities the
// workspace's fact store provides.
var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "List registered constructions and available capabilities",
	RunE:  runInventory,
}

func init() {
	inventoryCmd.Flags().BoolVar(&inventoryJSON, "json", false, "Emit the inventory as JSON")
}

func runInventory(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	manifests := rt.registry.Manifests()
	caps := rt.store.Capabilities()

	if inventoryJSON {
		out, err := json.MarshalIndent(map[string]interface{}{
			"constructions": manifests,
			"capabilities":  caps,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Capabilities: core=[%s] optional=[%s]\n\n",
		strings.Join(caps.Core, ", "), strings.Join(caps.Optional, ", "))
	for _, m := range manifests {
		fmt.Printf("%-16s %s\n", m.ID, m.Description)
		if len(m.RequiredCapabilities) > 0 {
			fmt.Printf("%-16s requires: %s\n", "", strings.Join(m.RequiredCapabilities, ", "))
		}
	}
	return nil
}
