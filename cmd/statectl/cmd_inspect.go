package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimsonsky/ai-player-sub001/internal/eval"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <vector.json|vector.db>",
	Short: "Run structural health checks on a state vector",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	codec, _, err := newCodec()
	if err != nil {
		return err
	}
	v, err := loadVector(args[0])
	if err != nil {
		return err
	}
	res := eval.NewEvalHarness(codec, eval.DefaultEvalConfig()).Run(v)

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "%-20s| %-10s| %s\n", "Check", "Value", "Pass")
		fmt.Fprintf(out, "%-20s+%-11s+%s\n", "--------------------", "-----------", "-----")
		for _, m := range res.Metrics {
			fmt.Fprintf(out, "%-20s| %-10.4f| %t\n", m.Name, m.Value, m.Pass)
		}
		fmt.Fprintf(out, "\nPassed: %t\n", res.Passed)
		if res.Reason != "" {
			fmt.Fprintf(out, "Reason: %s\n", res.Reason)
		}
	}
	if !res.Passed {
		return fmt.Errorf("vector failed health checks: %s", res.Reason)
	}
	return nil
}
