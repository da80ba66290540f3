package bundler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctxpack/ctxpack/utils"
)

// Discoverer enumerates candidate file paths under a root directory.
// Portions of the tree inside a git working tree are listed through git
// (tracked plus untracked-but-not-ignored); everything else falls back to
// an extension-filtered scan.
type Discoverer struct {
	root     string
	exts     utils.ExtensionSet
	excluder *utils.DirExcluder
	gitOK    bool
}

// NewDiscoverer initializes a Discoverer for the given root.
func NewDiscoverer(root string, extensions []string, excludeDirs []string) *Discoverer {
	return &Discoverer{
		root:     root,
		exts:     utils.NewExtensionSet(extensions),
		excluder: utils.NewDirExcluder(excludeDirs),
		gitOK:    utils.GitAvailable(),
	}
}

// Discover returns a de-duplicated list of absolute candidate paths.
// Ordering is not guaranteed; the packer imposes it later.
func (d *Discoverer) Discover() ([]string, error) {
	root, err := filepath.Abs(d.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source directory %s: %w", d.root, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source directory does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path is not a directory: %s", root)
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	if err := d.walk(root, false, add); err != nil {
		return nil, err
	}
	return files, nil
}

// walk descends the tree rooted at dir. covered marks portions already
// listed by an enclosing git working tree: their files are taken from git
// output, but the descent continues so nested working trees are found too.
func (d *Discoverer) walk(dir string, covered bool, add func(string)) error {
	if d.gitOK && hasGitEntry(dir) {
		git := utils.NewGitOperations(dir)
		rels, err := git.ListFiles()
		if err == nil {
			for _, rel := range rels {
				abs := filepath.Join(dir, rel)
				// git lists gitlinks and deleted entries too; keep regular files only
				if fi, serr := os.Stat(abs); serr == nil && fi.Mode().IsRegular() {
					add(abs)
				}
			}
			covered = true
		}
		// On git failure the directory is treated as uncovered and scanned below.
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if utils.IsVCSDir(name) || d.excluder.Excluded(name) {
				continue
			}
			if err := d.walk(path, covered, add); err != nil {
				return err
			}
			continue
		}

		if covered {
			continue
		}
		if entry.Type().IsRegular() && d.exts.Matches(name) {
			add(path)
		}
	}
	return nil
}

// hasGitEntry reports whether dir is the top of a working tree. The .git
// entry may be a directory or a gitfile (worktrees, submodules).
func hasGitEntry(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
