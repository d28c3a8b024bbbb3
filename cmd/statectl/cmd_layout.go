package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the vector layout for the configured codec",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		codec, _, err := newCodec()
		if err != nil {
			return err
		}
		l := codec.Layout()
		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(l)
		}
		fmt.Fprintf(out, "Vector size: %d (max %d elements)\n\n", l.VectorSize, l.MaxElements)
		fmt.Fprintf(out, "%-12s| %-6s| %s\n", "Section", "Start", "End")
		fmt.Fprintf(out, "%-12s+%-7s+%s\n", "------------", "-------", "------")
		for _, s := range l.Sections.Named() {
			fmt.Fprintf(out, "%-12s| %-6d| %d\n", s.Name, s.Range[0], s.Range[1])
		}
		fmt.Fprintf(out, "\nPhases:    %s\n", strings.Join(l.Phases, ", "))
		res := make([]string, len(l.Resources))
		for i, r := range l.Resources {
			res[i] = fmt.Sprintf("%s/%g", r.Name, r.Max)
		}
		fmt.Fprintf(out, "Resources: %s\n", strings.Join(res, ", "))
		fmt.Fprintf(out, "Labels:    %s\n", strings.Join(l.Labels, ", "))
		return nil
	},
}
