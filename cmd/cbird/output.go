package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/playlist"
)

// printer writes items relative to the library root, one per line, with
// groups separated by a blank line.
type printer struct {
	w    io.Writer
	root string
	json bool
	long bool
	// playlist, when set, also receives group output as a WPL file.
	playlist string
}

func newPrinter(cmd *cobra.Command, root string) *printer {
	asJSON, _ := cmd.Flags().GetBool("json")
	long, _ := cmd.Flags().GetBool("long")
	pl, _ := cmd.Flags().GetString("playlist")
	return &printer{w: cmd.OutOrStdout(), root: root, json: asJSON, long: long, playlist: pl}
}

func (p *printer) group(g media.Group) error {
	if p.playlist != "" {
		name := strings.TrimSuffix(filepath.Base(p.playlist), filepath.Ext(p.playlist))
		if err := playlist.WriteWPL(p.playlist, name, g); err != nil {
			return fmt.Errorf("write playlist: %w", err)
		}
	}
	if p.json {
		if g == nil {
			g = media.Group{}
		}
		return p.encode(g)
	}
	for _, it := range g {
		p.item(it)
	}
	return nil
}

func (p *printer) groups(list media.GroupList) error {
	if p.json {
		if list == nil {
			list = media.GroupList{}
		}
		return p.encode(list)
	}
	for i, g := range list {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		for _, it := range g {
			p.item(it)
		}
	}
	return nil
}

func (p *printer) item(it media.Item) {
	path := p.rel(it.Path)
	switch {
	case p.long:
		fmt.Fprintf(p.w, "%-8s %5dx%-5d %8s  %s", it.Type, it.Width, it.Height, humanize.Bytes(uint64(max(it.Size, 0))), path)
	default:
		fmt.Fprint(p.w, path)
	}
	if it.HasScore {
		fmt.Fprintf(p.w, "  (%d)", it.Score)
	}
	fmt.Fprintln(p.w)
}

func (p *printer) rel(path string) string {
	if r, err := filepath.Rel(p.root, path); err == nil && filepath.IsLocal(r) {
		return filepath.ToSlash(r)
	}
	return path
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addLongFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("long", "l", false, "Show type, dimensions and size")
}

func addPlaylistFlag(cmd *cobra.Command) {
	cmd.Flags().String("playlist", "", "Also save the result as a WPL playlist")
}
