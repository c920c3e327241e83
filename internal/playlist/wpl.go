package playlist

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fortemezzo/cbird/internal/media"
)

// WPL structure based on Windows Media Player playlist format
type WPL struct {
	XMLName xml.Name `xml:"smil"`
	Head    WPLHead  `xml:"head"`
	Body    WPLBody  `xml:"body"`
}

type WPLHead struct {
	Meta  []WPLMeta `xml:"meta"`
	Title string    `xml:"title"`
}

type WPLMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type WPLBody struct {
	Seq WPLSeq `xml:"seq"`
}

type WPLSeq struct {
	Media []WPLMedia `xml:"media"`
}

type WPLMedia struct {
	Src string `xml:"src,attr"`
}

// Playlist is a parsed playlist with its entries resolved.
type Playlist struct {
	Name  string         `json:"name"`
	Path  string         `json:"path"`
	Items []PlaylistItem `json:"items"`
}

// PlaylistItem is one entry. Path is absolute when Exists is set.
type PlaylistItem struct {
	Path     string `json:"path"`
	OrigPath string `json:"origPath"`
	Exists   bool   `json:"exists"`
}

// IsPlaylist reports whether path names a file this package reads.
func IsPlaylist(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wpl")
}

// WriteWPL saves g as a playlist titled name. Entries are relative to the
// playlist's directory where possible.
func WriteWPL(path, name string, g media.Group) error {
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return err
	}

	wpl := WPL{Head: WPLHead{
		Meta: []WPLMeta{
			{Name: "Generator", Content: "cbird"},
			{Name: "ItemCount", Content: fmt.Sprint(len(g))},
		},
		Title: name,
	}}
	for _, it := range g {
		src := it.Path
		if rel, err := filepath.Rel(dir, it.Path); err == nil {
			src = rel
		}
		wpl.Body.Seq.Media = append(wpl.Body.Seq.Media, WPLMedia{Src: filepath.ToSlash(src)})
	}

	data, err := xml.MarshalIndent(wpl, "", "  ")
	if err != nil {
		return err
	}
	data = append([]byte("<?wpl version=\"1.0\"?>\n"), data...)
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// ParseWPL reads a playlist and resolves its entries against the
// playlist's directory and then mediaDir.
func ParseWPL(wplPath, mediaDir string) (*Playlist, error) {
	data, err := os.ReadFile(wplPath)
	if err != nil {
		return nil, err
	}

	var wpl WPL
	if err := xml.Unmarshal(data, &wpl); err != nil {
		return nil, fmt.Errorf("parse %s: %w", wplPath, err)
	}

	playlist := &Playlist{
		Name: wpl.Head.Title,
		Path: wplPath,
	}
	if playlist.Name == "" {
		playlist.Name = strings.TrimSuffix(filepath.Base(wplPath), filepath.Ext(wplPath))
	}

	wplDir := filepath.Dir(wplPath)
	for _, m := range wpl.Body.Seq.Media {
		srcPath := strings.ReplaceAll(m.Src, "\\", "/")
		resolved, exists := resolve(filepath.FromSlash(srcPath), wplDir, mediaDir)
		playlist.Items = append(playlist.Items, PlaylistItem{
			Path:     resolved,
			OrigPath: m.Src,
			Exists:   exists,
		})
	}
	return playlist, nil
}

func resolve(src, wplDir, mediaDir string) (string, bool) {
	var candidates []string
	if filepath.IsAbs(src) {
		candidates = append(candidates, src)
	} else {
		candidates = append(candidates, filepath.Join(wplDir, src))
	}
	candidates = append(candidates, filepath.Join(mediaDir, filepath.Base(src)))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			if abs, err := filepath.Abs(c); err == nil {
				return abs, true
			}
			return c, true
		}
	}
	return filepath.Base(src), false
}
