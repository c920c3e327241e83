package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fortemezzo/cbird/internal/startup"
)

// AboutResponse is the --json form of about.
type AboutResponse struct {
	startup.BuildInfo
	IndexDir   string `json:"indexDir"`
	Database   string `json:"database"`
	SizeBytes  int64  `json:"sizeBytes"`
	Items      int    `json:"items"`
	Images     int    `json:"images"`
	Videos     int    `json:"videos"`
	Audio      int    `json:"audio"`
	LastUpdate string `json:"lastUpdate,omitempty"`
}

func NewAboutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "about",
		Short: "Show version and index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.db.RefreshStats(ctx); err != nil {
				return err
			}
			stats := a.db.GetStats()
			last, err := a.db.LastUpdate(ctx)
			if err != nil {
				return err
			}
			var size int64
			if info, err := os.Stat(a.db.Path()); err == nil {
				size = info.Size()
			}

			resp := AboutResponse{
				BuildInfo: startup.GetBuildInfo(),
				IndexDir:  a.cfg.IndexDir,
				Database:  a.db.Path(),
				SizeBytes: size,
				Items:     stats.TotalItems,
				Images:    stats.TotalImages,
				Videos:    stats.TotalVideos,
				Audio:     stats.TotalAudio,
			}
			if !last.IsZero() {
				resp.LastUpdate = last.Format(time.RFC3339)
			}

			p := newPrinter(cmd, a.cfg.IndexDir)
			if p.json {
				return p.encode(resp)
			}

			updated := "never"
			if !last.IsZero() {
				updated = humanize.Time(last)
			}
			fmt.Fprintf(p.w, "cbird %s (%s, built %s, %s %s/%s)\n",
				resp.Version, resp.Commit, resp.BuildTime, resp.GoVersion, resp.OS, resp.Arch)
			fmt.Fprintf(p.w, "library:  %s\n", resp.IndexDir)
			fmt.Fprintf(p.w, "index:    %s (%s)\n", resp.Database, humanize.Bytes(uint64(size)))
			fmt.Fprintf(p.w, "items:    %s (%s images, %s videos, %s audio)\n",
				humanize.Comma(int64(resp.Items)), humanize.Comma(int64(resp.Images)),
				humanize.Comma(int64(resp.Videos)), humanize.Comma(int64(resp.Audio)))
			fmt.Fprintf(p.w, "updated:  %s\n", updated)
			return nil
		},
	}
}
