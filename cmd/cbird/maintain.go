package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fortemezzo/cbird/internal/media"
)

var errHashChanged = errors.New("indexed files changed on disk")

func NewSimilarToCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar-to <file>",
		Short: "Find indexed images similar to a file",
		Long: `Search the whole index for images similar to one file. The file does
not have to be indexed or even inside the library. The needle is printed
first, followed by its matches, best first. Nothing is printed when
there are no matches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			g, err := a.idx.SimilarTo(cmd.Context(), args[0], a.cfg.Search)
			if err != nil {
				return fmt.Errorf("similar-to: %w", err)
			}
			if len(g) < 2 {
				g = nil
			}
			return newPrinter(cmd, a.cfg.IndexDir).group(g)
		},
	}

	addLongFlag(cmd)
	addPlaylistFlag(cmd)
	return cmd
}

func NewRemoveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <selector>...",
		Short: "Remove selected items from the index",
		Long: `Remove the selected items from the index. Files are not touched, so
the next update adds them back unless they were moved out of the library.
Selectors are the same as for "cbird select".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			g, err := selectAll(cmd, a, args)
			if err != nil {
				return err
			}
			n, err := a.idx.Remove(cmd.Context(), g)
			if err != nil {
				return err
			}

			p := newPrinter(cmd, a.cfg.IndexDir)
			if p.json {
				return p.encode(map[string]int64{"removed": n})
			}
			fmt.Fprintf(p.w, "removed: %s\n", humanize.Comma(n))
			return nil
		},
	}
	return cmd
}

func NewVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [selector...]",
		Short: "Check indexed files against their stored checksums",
		Long: `Re-read indexed files and compare their MD5 with the one stored at
indexing time. Without selectors the whole index is checked. Changed files
are tagged hash-changed and unreadable ones io-error, see "cbird errors".
The command fails when any file changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			var g media.Group
			var err error
			if len(args) == 0 {
				g, err = a.idx.Database().All(ctx)
			} else {
				g, err = selectAll(cmd, a, args)
			}
			if err != nil {
				return err
			}

			res, err := a.idx.Verify(ctx, g)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}

			p := newPrinter(cmd, a.cfg.IndexDir)
			if p.json {
				if err := p.encode(res); err != nil {
					return err
				}
			} else {
				for _, m := range res.Changed {
					fmt.Fprintf(p.w, "hash changed: %s  current %s stored %s\n", p.rel(m.Path), m.Current, m.Stored)
				}
				for _, path := range res.Unreadable {
					fmt.Fprintf(p.w, "unreadable: %s\n", p.rel(path))
				}
				fmt.Fprintf(p.w, "verified: %s ok, %d changed, %d unreadable, %s read in %s\n",
					humanize.Comma(int64(res.OK)), len(res.Changed), len(res.Unreadable),
					humanize.Bytes(uint64(res.BytesRead)), res.Duration.Round(time.Millisecond))
			}

			if len(res.Changed) > 0 {
				return fmt.Errorf("%d %w", len(res.Changed), errHashChanged)
			}
			return nil
		},
	}
	return cmd
}
