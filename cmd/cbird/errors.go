package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fortemezzo/cbird/internal/media"
)

var errorTags = []media.ErrorTag{
	media.TagUnsupported,
	media.TagTruncated,
	media.TagDecodeFailed,
	media.TagIOError,
	media.TagHashChanged,
}

func NewErrorsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errors [tag]",
		Short: "List files that could not be indexed cleanly",
		Long: fmt.Sprintf(`List the files tagged with problems by previous updates. With a tag,
only files carrying that tag are listed. Tags: %s.

Truncated files are still indexed, and hash-changed files are indexed
files that "cbird verify" found modified. Files with the other tags are
not indexed.`, joinTags(errorTags)),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tag media.ErrorTag
			if len(args) == 1 {
				tag = media.ErrorTag(args[0])
				if !validTag(tag) {
					return fmt.Errorf("unknown error tag %q, want one of %s", tag, joinTags(errorTags))
				}
			}
			if err := a.open(cmd); err != nil {
				return err
			}
			if err := a.idx.LoadErrors(cmd.Context()); err != nil {
				return err
			}

			record := a.idx.Errors()
			paths := record.Paths(tag)
			p := newPrinter(cmd, a.cfg.IndexDir)
			if p.json {
				out := make(map[string][]media.ErrorTag, len(paths))
				for _, path := range paths {
					out[p.rel(path)] = record.Tags(path)
				}
				return p.encode(out)
			}
			for _, path := range paths {
				fmt.Fprintf(p.w, "%s  %s\n", p.rel(path), joinTags(record.Tags(path)))
			}
			return nil
		},
	}
	return cmd
}

func validTag(tag media.ErrorTag) bool {
	for _, t := range errorTags {
		if t == tag {
			return true
		}
	}
	return false
}

func joinTags(tags []media.ErrorTag) string {
	s := make([]string, len(tags))
	for i, t := range tags {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}
