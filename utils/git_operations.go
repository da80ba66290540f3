package utils

import (
	"bytes"
	"fmt"
	"os/exec"
)

// GitOperations handles git-related operations for a single working tree.
type GitOperations struct {
	workingDir string
}

// NewGitOperations creates a new GitOperations instance.
func NewGitOperations(workingDir string) *GitOperations {
	return &GitOperations{workingDir: workingDir}
}

// GitAvailable reports whether a git executable can be found.
func GitAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// ListFiles returns tracked plus untracked-but-not-ignored files of the
// working tree, as paths relative to it. NUL-separated output keeps paths
// with unusual characters intact.
func (g *GitOperations) ListFiles() ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard", "-z")
	cmd.Dir = g.workingDir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list git files in %s: %w", g.workingDir, err)
	}

	var files []string
	for _, raw := range bytes.Split(output, []byte{0}) {
		if len(raw) == 0 {
			continue
		}
		files = append(files, string(raw))
	}
	return files, nil
}
