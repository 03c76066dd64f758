// Package index enumerates image files under the input root and its direct
// subfolders. Only one level of nesting is supported: a subfolder's own
// subdirectories are never descended into.
package index

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/pathutil"
)

// imageExtensions is the allowlist of qualifying file extensions, matched
// case-insensitively.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// IsImageFile reports whether name carries an allowed image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Index lists subfolders and images under a fixed, pre-validated root.
type Index struct {
	root string
}

// New creates an Index over root. The caller is responsible for resolving
// root through pathutil.ResolveRoot first.
func New(root string) *Index {
	return &Index{root: root}
}

// Root returns the absolute input directory this index reads from.
func (ix *Index) Root() string {
	return ix.root
}

// Subfolders returns the available subfolder names, starting with "" for the
// root itself, followed by the direct child directories in lexicographic
// order. Hidden directories are excluded. An unreadable root yields just the
// root sentinel.
func (ix *Index) Subfolders() []string {
	subfolders := []string{""}

	entries, err := os.ReadDir(ix.root)
	if err != nil {
		return subfolders
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		subfolders = append(subfolders, entry.Name())
	}

	sort.Strings(subfolders[1:])
	return subfolders
}

// Images returns the qualifying image filenames directly inside
// root/subfolder ("" = root), in lexicographic order. Non-image entries,
// hidden files, and nested directories are silently excluded. A missing or
// unreadable directory yields an empty listing, not an error: a subfolder
// deleted between listing and access is a benign race.
//
// The only error returned is pathutil.ErrInvalidPath for a subfolder value
// that fails validation; no filesystem read happens in that case.
func (ix *Index) Images(subfolder string) ([]string, error) {
	dir, err := pathutil.ValidateSubfolder(ix.root, subfolder)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{}, nil
	}

	images := []string{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if IsImageFile(entry.Name()) {
			images = append(images, entry.Name())
		}
	}

	sort.Strings(images)
	return images, nil
}
