package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fortemezzo/cbird/internal/comparator"
	"github.com/fortemezzo/cbird/internal/media"
)

func NewSelectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select <selector>...",
		Short: "Select, filter, sort and group indexed items",
		Long: `Select items from the index and transform the selection.

Selectors:
  @          paths read from standard input
  :regexp    paths (relative to the library) matching a regular expression
  <dir>      everything under a directory
  <file>     a single indexed file
  <list.wpl> the indexed entries of a playlist, in order
  <pattern>  an SQL LIKE pattern over relative paths, e.g. "%.png"
  id:N       the item with database id N
  type:T     every item of a type: image, video, audio or 1-3
  sql:WHERE  an SQL condition over the media table, e.g. "sql:width > 1000"

Operations run in this order: --with, --without, --sort, --group-by,
--first-sibling, --chop, --first. Properties are id, isValid, md5, type,
path, parentPath, name, suffix, contentType, width, height, resolution,
res, compressionRatio, score, size and exif:<Tag,...>, optionally
followed by functions such as :lower, :year or :mid,0,4.

Filters take "<property> <comparator>", for example:
  --with "width >=1920" --without "name ~thumb" --with "exif:Model :^Canon"`,
		Args: cobra.MinimumNArgs(1),
		RunE: makeSelectRunner(a),
	}

	cmd.Flags().StringArray("with", nil, "Keep items whose property matches")
	cmd.Flags().StringArray("without", nil, "Drop items whose property matches")
	cmd.Flags().String("sort", "", "Sort by property")
	cmd.Flags().Bool("reverse", false, "Reverse the sort order")
	cmd.Flags().String("group-by", "", "Group items by property")
	cmd.Flags().Bool("first-sibling", false, "Keep the first item of each directory")
	cmd.Flags().Bool("chop", false, "Drop the first item of each group")
	cmd.Flags().Bool("first", false, "Keep only the first item of each group")
	addLongFlag(cmd)
	addPlaylistFlag(cmd)
	return cmd
}

// selectOps are the selection operations requested on the command line.
type selectOps struct {
	with, without []filterSpec
	sort          *media.Property
	reverse       bool
	groupBy       *media.Property
	firstSibling  bool
	chop          bool
	first         bool
}

type filterSpec struct {
	prop media.Property
	cmp  *comparator.Comparator
}

func parseFilter(spec string) (filterSpec, error) {
	propExpr, cmpExpr, ok := strings.Cut(strings.TrimSpace(spec), " ")
	if !ok {
		return filterSpec{}, fmt.Errorf("filter %q: want \"<property> <comparator>\"", spec)
	}
	prop, err := media.ParseProperty(propExpr)
	if err != nil {
		return filterSpec{}, err
	}
	cmp, err := comparator.New(strings.TrimSpace(cmpExpr))
	if err != nil {
		return filterSpec{}, fmt.Errorf("filter %q: %w", spec, err)
	}
	return filterSpec{prop: prop, cmp: cmp}, nil
}

func parseSelectOps(cmd *cobra.Command) (selectOps, error) {
	var ops selectOps
	for _, name := range []string{"with", "without"} {
		specs, _ := cmd.Flags().GetStringArray(name)
		for _, spec := range specs {
			f, err := parseFilter(spec)
			if err != nil {
				return ops, err
			}
			if name == "with" {
				ops.with = append(ops.with, f)
			} else {
				ops.without = append(ops.without, f)
			}
		}
	}

	for name, dst := range map[string]**media.Property{"sort": &ops.sort, "group-by": &ops.groupBy} {
		expr, _ := cmd.Flags().GetString(name)
		if expr == "" {
			continue
		}
		prop, err := media.ParseProperty(expr)
		if err != nil {
			return ops, err
		}
		*dst = &prop
	}

	ops.reverse, _ = cmd.Flags().GetBool("reverse")
	ops.firstSibling, _ = cmd.Flags().GetBool("first-sibling")
	ops.chop, _ = cmd.Flags().GetBool("chop")
	ops.first, _ = cmd.Flags().GetBool("first")
	return ops, nil
}

func makeSelectRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ops, err := parseSelectOps(cmd)
		if err != nil {
			return err
		}
		if err := a.open(cmd); err != nil {
			return err
		}
		ctx := cmd.Context()

		g, err := selectAll(cmd, a, args)
		if err != nil {
			return err
		}
		for _, f := range ops.with {
			if g, err = media.Filter(ctx, g, f.prop, f.cmp, false); err != nil {
				return err
			}
		}
		for _, f := range ops.without {
			if g, err = media.Filter(ctx, g, f.prop, f.cmp, true); err != nil {
				return err
			}
		}
		if ops.sort != nil {
			if g, err = media.SortGroup(ctx, g, *ops.sort, ops.reverse); err != nil {
				return err
			}
		}

		list := media.GroupList{g}
		if ops.groupBy != nil {
			if list, err = media.GroupBy(ctx, g, *ops.groupBy); err != nil {
				return err
			}
		}
		if ops.firstSibling {
			for i := range list {
				list[i] = media.FirstSibling(list[i])
			}
		}
		if ops.chop {
			list = media.Chop(list)
		}
		if ops.first {
			list = media.First(list)
		}

		p := newPrinter(cmd, a.cfg.IndexDir)
		if ops.groupBy == nil {
			return p.group(list.Flatten())
		}
		return p.groups(list)
	}
}
