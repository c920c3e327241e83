package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fortemezzo/cbird/internal/indexer"
)

func NewUpdateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Index new files and forget deleted ones",
		Long: `Scan the library, add files that are not indexed yet and remove
index entries whose files are gone. With --watch, keep running and update
again whenever files change.`,
		Args: cobra.NoArgs,
		RunE: makeUpdateRunner(a),
	}

	cmd.Flags().BoolP("watch", "w", false, "Keep watching the library for changes")
	cmd.Flags().Duration("debounce", indexer.DefaultDebounce, "Quiet period before a watched change is indexed")
	return cmd
}

func makeUpdateRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if err := a.open(cmd); err != nil {
			return err
		}
		watch, _ := cmd.Flags().GetBool("watch")
		debounce, _ := cmd.Flags().GetDuration("debounce")

		res, err := a.idx.Update(cmd.Context())
		if err != nil {
			return fmt.Errorf("update: %w", err)
		}
		if err := printUpdate(cmd, res); err != nil {
			return err
		}

		if !watch {
			return nil
		}
		a.idx.SetOnIndexComplete(func(r indexer.UpdateResult) {
			if err := printUpdate(cmd, r); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "cbird: %v\n", err)
			}
		})
		if err := a.idx.Watch(cmd.Context(), debounce); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		return nil
	}
}

func printUpdate(cmd *cobra.Command, res indexer.UpdateResult) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return (&printer{w: cmd.OutOrStdout(), json: true}).encode(res)
	}

	verb := "updated"
	if res.DryRun {
		verb = "dry run"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s added, %s removed, %s unchanged, %s errors in %s\n",
		verb,
		humanize.Comma(int64(res.Added)),
		humanize.Comma(int64(res.Removed)),
		humanize.Comma(res.Scan.Skipped),
		humanize.Comma(res.Scan.Dropped),
		res.Duration.Round(time.Millisecond))
	return nil
}
