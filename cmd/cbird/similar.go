package main

import (
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fortemezzo/cbird/internal/database"
	"github.com/fortemezzo/cbird/internal/indexer"
	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/playlist"
)

func NewSimilarCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar [selector...]",
		Short: "Group visually similar images",
		Long: `Search the index for images similar to each other. With selectors, only
the selected items are compared with each other. Each group starts with
the needle followed by its matches, best first.

Search parameters are set with -p, see "cbird params".`,
		RunE: makeSimilarRunner(a),
	}

	addLongFlag(cmd)
	return cmd
}

func makeSimilarRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd); err != nil {
			return err
		}
		ctx := cmd.Context()

		params := a.cfg.Search
		if len(args) > 0 {
			set, err := selectAll(cmd, a, args)
			if err != nil {
				return err
			}
			params.InSet = true
			params.Subset = set
		}

		engine, err := a.idx.Engine(ctx)
		if err != nil {
			return err
		}
		groups, err := engine.Similar(ctx, params)
		if err != nil {
			return fmt.Errorf("similar: %w", err)
		}
		return newPrinter(cmd, a.cfg.IndexDir).groups(groups)
	}
}

// selectAll resolves every selector and joins the results, keeping the
// first occurrence of each path.
func selectAll(cmd *cobra.Command, a *app, selectors []string) (media.Group, error) {
	var current media.Group
	if slices.Contains(selectors, indexer.SelectionMarker) {
		var err error
		if current, err = readSelection(cmd, a); err != nil {
			return nil, err
		}
	}

	var out media.Group
	seen := make(map[string]bool)
	for _, sel := range selectors {
		var g media.Group
		var err error
		if playlist.IsPlaylist(sel) {
			g, err = readPlaylist(cmd, a, sel)
		} else {
			g, err = a.idx.Select(cmd.Context(), sel, current)
		}
		if err != nil {
			return nil, fmt.Errorf("select %q: %w", sel, err)
		}
		for _, it := range g {
			if !seen[it.Path] {
				seen[it.Path] = true
				out = append(out, it)
			}
		}
	}
	return out, nil
}

// readSelection reads the "@" selection from standard input: one path per
// line, as printed by the other commands. Blank lines are ignored.
func readSelection(cmd *cobra.Command, a *app) (media.Group, error) {
	var out media.Group
	sc := bufio.NewScanner(cmd.InOrStdin())
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		// drop a trailing score annotation
		if i := strings.LastIndex(line, "  ("); i > 0 && strings.HasSuffix(line, ")") {
			line = line[:i]
		}
		path := filepath.FromSlash(line)
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.cfg.IndexDir, path)
		}
		it, err := a.db.MediaWithPath(cmd.Context(), path)
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%s is not indexed", line)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, sc.Err()
}

// readPlaylist selects the indexed entries of a playlist in playlist
// order. Entries that are missing or not indexed are skipped with a
// warning.
func readPlaylist(cmd *cobra.Command, a *app, path string) (media.Group, error) {
	pl, err := playlist.ParseWPL(path, a.cfg.IndexDir)
	if err != nil {
		return nil, err
	}
	var out media.Group
	for _, entry := range pl.Items {
		if !entry.Exists {
			logging.Warn("playlist %s: %s not found", pl.Name, entry.OrigPath)
			continue
		}
		it, err := a.db.MediaWithPath(cmd.Context(), entry.Path)
		if errors.Is(err, database.ErrNotFound) {
			logging.Warn("playlist %s: %s is not indexed", pl.Name, entry.OrigPath)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}
