package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. Subcommands open the library through
// a when they first need it.
func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cbird",
		Short: "Find duplicate and similar media",
		Long: `cbird indexes the images, videos and audio under a directory and
searches the index for exact duplicates and visually similar images.
The index is kept in the _index subdirectory of the library.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)

	if a != nil {
		addSubcommands(rootCmd, a)
	}

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("dir", "d", "", "Library root (default $CBIRD_INDEX_DIR or the working directory)")
	cmd.PersistentFlags().StringArrayP("param", "p", nil, "Search parameter key=value, repeatable")
	cmd.PersistentFlags().StringArrayP("index-param", "i", nil, "Index parameter key=value, repeatable")
	cmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}

func addSubcommands(root *cobra.Command, a *app) {
	root.AddCommand(
		NewUpdateCmd(a),
		NewSimilarCmd(a),
		NewSimilarToCmd(a),
		NewDupsCmd(a),
		NewSelectCmd(a),
		NewRemoveCmd(a),
		NewVerifyCmd(a),
		NewSortSimilarCmd(a),
		NewMergeCmd(a),
		NewErrorsCmd(a),
		NewAboutCmd(a),
		NewParamsCmd(),
	)
}
