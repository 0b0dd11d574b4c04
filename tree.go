package malaya

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Tree connector fragments.
const (
	treeBranchMiddle = "├── "
	treeBranchLast   = "└── "
	treeIndentPipe   = "│   "
	treeIndentBlank  = "    "
)

// RenderTree writes a diagnostic directory tree of root to w. Entries are
// ordered case-insensitively and directories carry a trailing slash:
//
//	models/
//	├── sentiment/
//	│   ├── model.pb
//	│   └── version
//	└── vocab.json
func RenderTree(w io.Writer, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageError, err)
	}

	if _, err := fmt.Fprintln(w, displayName(filepath.Base(root), info.IsDir())); err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	return renderChildren(w, root, "")
}

// renderChildren renders the entries of dir, prefixing each line with the
// accumulated indentation of its ancestors.
func renderChildren(w io.Writer, dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageError, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	for i, entry := range entries {
		last := i == len(entries)-1

		branch := treeBranchMiddle
		indent := treeIndentPipe
		if last {
			branch = treeBranchLast
			indent = treeIndentBlank
		}

		if _, err := fmt.Fprintln(w, prefix+branch+displayName(entry.Name(), entry.IsDir())); err != nil {
			return err
		}

		if entry.IsDir() {
			if err := renderChildren(w, filepath.Join(dir, entry.Name()), prefix+indent); err != nil {
				return err
			}
		}
	}
	return nil
}

// displayName returns the entry name, with a trailing slash for directories.
func displayName(name string, isDir bool) string {
	if isDir {
		return name + "/"
	}
	return name
}
