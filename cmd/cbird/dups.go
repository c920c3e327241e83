package main

import (
	"github.com/spf13/cobra"
)

func NewDupsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dups",
		Short: "Group files with identical content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			groups, err := a.db.DupsByMD5(cmd.Context(), a.cfg.Index.Types)
			if err != nil {
				return err
			}
			return newPrinter(cmd, a.cfg.IndexDir).groups(groups)
		},
	}

	addLongFlag(cmd)
	return cmd
}
