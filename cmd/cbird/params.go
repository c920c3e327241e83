package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fortemezzo/cbird/internal/scanner"
	"github.com/fortemezzo/cbird/internal/search"
)

func NewParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "List the keys accepted by -p and -i",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "Search parameters (-p key=value):")
			for _, key := range search.Keys() {
				fmt.Fprintf(w, "  %s\t%s\n", key, search.Usage(key))
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Index parameters (-i key=value):")
			for _, key := range scanner.IndexKeys() {
				fmt.Fprintf(w, "  %s\t%s\n", key, scanner.IndexUsage(key))
			}
			return w.Flush()
		},
	}
}
