// Package listing turns a directory under the share root into display-ready
// entries.
package listing

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"fileboard/internal/fsutil"
)

// IndexFileName is served instead of a generated listing when present.
const IndexFileName = "index.html"

// Entry is one row of a listing.
type Entry struct {
	Name        string    `json:"name"`
	Link        string    `json:"link"`
	IsDir       bool      `json:"isDir"`
	IsParent    bool      `json:"isParent,omitempty"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mtime"`
	DisplaySize string    `json:"displaySize"`
	DisplayTime string    `json:"displayTime"`
}

// Listing is a directory snapshot taken at generation time.
type Listing struct {
	Path    string  `json:"path"` // slash path relative to root, "" for root
	IsRoot  bool    `json:"isRoot"`
	Entries []Entry `json:"entries"`
}

// Result is either an index file to stream or a generated listing.
type Result struct {
	IndexFile string
	Listing   *Listing
}

type Generator struct {
	root fsutil.Root
}

func New(root fsutil.Root) *Generator {
	return &Generator{root: root}
}

// Generate lists dirAbs, which must already be resolved against the root.
// Directories come first, then files, each ordered by case-insensitive name.
// Below the root a "../" entry is prepended.
func (g *Generator) Generate(ctx context.Context, dirAbs string) (*Result, error) {
	rel, err := g.root.Rel(dirAbs)
	if err != nil {
		return nil, err
	}

	if index, ok := g.indexFile(rel); ok {
		return &Result{IndexFile: index}, nil
	}

	dirEntries, err := os.ReadDir(dirAbs)
	if err != nil {
		return nil, fmt.Errorf("%w: /%s: %v", fsutil.ErrListingFailed, rel, err)
	}
	dirEntries = lo.Filter(dirEntries, func(e fs.DirEntry, _ int) bool {
		return !strings.HasPrefix(e.Name(), fsutil.StagingPrefix)
	})

	entries := make([]Entry, 0, len(dirEntries)+1)
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := de.Info()
		if err != nil {
			continue // removed since ReadDir
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			info = g.followLink(path.Join(rel, de.Name()), info)
		}
		entries = append(entries, newEntry(rel, de.Name(), info))
	}
	slices.SortFunc(entries, compareEntries)

	if rel != "" {
		entries = append([]Entry{parentEntry(dirAbs, rel)}, entries...)
	}

	return &Result{Listing: &Listing{
		Path:    rel,
		IsRoot:  rel == "",
		Entries: entries,
	}}, nil
}

// indexFile returns the index file of the directory rel if it is a regular
// file whose real path stays inside the root.
func (g *Generator) indexFile(rel string) (string, bool) {
	index, err := g.root.Resolve(path.Join(rel, IndexFileName))
	if err != nil {
		return "", false
	}
	st, err := os.Stat(index)
	if err != nil || !st.Mode().IsRegular() {
		return "", false
	}
	return index, true
}

// followLink returns the target's info for a symlink that stays inside the
// root, and the link's own info otherwise.
func (g *Generator) followLink(rel string, link fs.FileInfo) fs.FileInfo {
	abs, err := g.root.Resolve(rel)
	if err != nil {
		return link
	}
	st, err := os.Stat(abs)
	if err != nil {
		return link
	}
	return st
}

func newEntry(dirRel, name string, info fs.FileInfo) Entry {
	e := Entry{
		Name:        name,
		Link:        Link(path.Join(dirRel, name), info.IsDir()),
		IsDir:       info.IsDir(),
		ModTime:     info.ModTime(),
		DisplayTime: FormatTime(info.ModTime()),
	}
	if e.IsDir {
		e.DisplaySize = "-"
	} else {
		e.Size = info.Size()
		e.DisplaySize = FormatSize(info.Size())
	}
	return e
}

func parentEntry(dirAbs, rel string) Entry {
	parent := path.Dir(rel)
	if parent == "." {
		parent = ""
	}
	e := Entry{
		Name:        "../",
		Link:        Link(parent, true),
		IsDir:       true,
		IsParent:    true,
		DisplaySize: "-",
	}
	if st, err := os.Stat(filepath.Dir(dirAbs)); err == nil {
		e.ModTime = st.ModTime()
		e.DisplayTime = FormatTime(st.ModTime())
	}
	return e
}

// Link returns the root-relative URL path for rel with every segment
// percent-encoded. Directories get a trailing slash.
func Link(rel string, isDir bool) string {
	rel = fsutil.CleanRelPath(rel)
	if rel == "" {
		return "/"
	}
	segs := strings.Split(rel, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	link := "/" + strings.Join(segs, "/")
	if isDir {
		link += "/"
	}
	return link
}

func compareEntries(a, b Entry) int {
	if a.IsDir != b.IsDir {
		if a.IsDir {
			return -1
		}
		return 1
	}
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}
