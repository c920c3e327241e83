package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fortemezzo/cbird/internal/reconcile"
)

func NewSortSimilarCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort-similar <selector>...",
		Short: "Order a selection so similar items are adjacent",
		Long: `Chain the selected images into a sequence where each item is followed
by the one most similar to it. Items that match nothing are reported
and left out.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			set, err := selectAll(cmd, a, args)
			if err != nil {
				return err
			}
			engine, err := a.idx.Engine(cmd.Context())
			if err != nil {
				return err
			}

			sorted, missed, err := reconcile.Chain(cmd.Context(), engine, a.cfg.Search, set)
			if err != nil {
				return fmt.Errorf("sort-similar: %w", err)
			}
			p := newPrinter(cmd, a.cfg.IndexDir)
			if missed > 0 {
				for _, it := range set.Difference(sorted) {
					fmt.Fprintf(cmd.ErrOrStderr(), "no match: %s\n", p.rel(it.Path))
				}
			}
			return p.group(sorted)
		},
	}

	addLongFlag(cmd)
	addPlaylistFlag(cmd)
	return cmd
}

func NewMergeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <sequence> <items>",
		Short: "Insert items into an ordered sequence next to their best match",
		Long: `Place every item selected by <items> into the sequence selected by
<sequence>, next to the sequence member it resembles most. Items that
match nothing are reported and left out.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			seq, err := selectAll(cmd, a, args[:1])
			if err != nil {
				return err
			}
			items, err := selectAll(cmd, a, args[1:])
			if err != nil {
				return err
			}
			engine, err := a.idx.Engine(cmd.Context())
			if err != nil {
				return err
			}

			merged, stats := reconcile.Merge(cmd.Context(), engine, a.cfg.Search, seq, items)
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			p := newPrinter(cmd, a.cfg.IndexDir)
			for _, it := range stats.Missed {
				fmt.Fprintf(cmd.ErrOrStderr(), "no match: %s\n", p.rel(it.Path))
			}
			return p.group(merged)
		},
	}

	addLongFlag(cmd)
	addPlaylistFlag(cmd)
	return cmd
}
