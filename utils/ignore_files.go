package utils

import (
	"path/filepath"
	"strings"
)

// vcsDirs are version-control metadata directories that are always pruned.
var vcsDirs = []string{".git", ".svn", ".hg", ".bzr"}

// defaultExcludedDirs are directory names skipped during fallback scans in
// addition to the user-configured exclusion list.
var defaultExcludedDirs = []string{
	".idea",
	".vscode",
	".cache",
	"node_modules",
	"bin",
	"obj",
	"dist",
	"out",
	"vendor",
	"target",
}

// ExtensionSet is a case-insensitive membership test over file extensions.
type ExtensionSet map[string]bool

// NewExtensionSet builds an ExtensionSet from a list of extensions.
// Entries may be given with or without the leading dot.
func NewExtensionSet(extensions []string) ExtensionSet {
	set := make(ExtensionSet, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[strings.ToLower(ext)] = true
	}
	return set
}

// Matches reports whether the file's extension is in the set.
func (s ExtensionSet) Matches(path string) bool {
	return s[strings.ToLower(filepath.Ext(path))]
}

// DirExcluder decides which directories a scan must prune.
type DirExcluder struct {
	names map[string]bool
}

// NewDirExcluder combines the built-in exclusions with extra directory names.
func NewDirExcluder(extra []string) *DirExcluder {
	names := make(map[string]bool)
	for _, d := range vcsDirs {
		names[d] = true
	}
	for _, d := range defaultExcludedDirs {
		names[d] = true
	}
	for _, d := range extra {
		d = strings.TrimSpace(d)
		if d != "" {
			names[d] = true
		}
	}
	return &DirExcluder{names: names}
}

// Excluded reports whether a directory with this name must be pruned.
// Matching is by exact path segment, never by substring.
func (e *DirExcluder) Excluded(name string) bool {
	return e.names[name]
}

// IsVCSDir reports whether the name is version-control metadata.
func IsVCSDir(name string) bool {
	for _, d := range vcsDirs {
		if name == d {
			return true
		}
	}
	return false
}
