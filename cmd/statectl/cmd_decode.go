package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimsonsky/ai-player-sub001/internal/container"
	"github.com/crimsonsky/ai-player-sub001/internal/state"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <vector.json|vector.db>",
	Short: "Interpret a state vector",
	Long: `Decodes a vector from a JSON array file or a vector container into a
human-readable interpretation. --json prints the protobuf Struct form.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	codec, _, err := newCodec()
	if err != nil {
		return err
	}
	v, err := loadVector(args[0])
	if err != nil {
		return err
	}
	in, err := codec.Decode(v)
	if err != nil {
		return err
	}
	if jsonOutput {
		data, err := in.JSON(true)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	printInterpretation(cmd.OutOrStdout(), in)
	return nil
}

// loadVector reads a JSON float array, or a named array from a container.
func loadVector(path string) (state.Vector, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read vector %s: %w", path, err)
		}
		var v []float32
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse vector %s: %w", path, err)
		}
		return v, nil
	}
	v, _, err := container.LoadVector(path, vectorName)
	return v, err
}

func printInterpretation(w io.Writer, in *state.Interpretation) {
	fmt.Fprintf(w, "Phase:      %s\n", in.Phase.Active)
	fmt.Fprintf(w, "Confidence: %.3f\n", in.Confidence)
	fmt.Fprintf(w, "Summary:    non_zero=%d mean=%.4f max=%.4f norm=%.4f\n\n",
		in.Summary.NonZero, in.Summary.Mean, in.Summary.Max, in.Summary.Norm)

	names := make([]string, 0, len(in.Resources.Denormalized))
	for name := range in.Resources.Denormalized {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "%-16s| %s\n", "Resource", "Value")
	fmt.Fprintf(w, "%-16s+%s\n", "----------------", "------------")
	for _, name := range names {
		fmt.Fprintf(w, "%-16s| %.2f\n", name, in.Resources.Denormalized[name])
	}

	fmt.Fprintf(w, "\n%-5s| %-16s| %-7s| %-7s| %-6s| %s\n", "Slot", "Label", "X", "Y", "Conf", "Interactive")
	fmt.Fprintf(w, "%-5s+%-17s+%-8s+%-8s+%-7s+%s\n", "-----", "-----------------", "--------", "--------", "-------", "-----------")
	for _, e := range in.Elements {
		fmt.Fprintf(w, "%-5d| %-16s| %-7.3f| %-7.3f| %-6.3f| %t\n", e.Slot, e.Label, e.CenterX, e.CenterY, e.Confidence, e.Interactive)
	}
}
