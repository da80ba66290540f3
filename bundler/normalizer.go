package bundler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctxpack/ctxpack/bundler/models"
	"github.com/ctxpack/ctxpack/utils"
	"github.com/zeebo/xxh3"
)

// FileMarker is the token that opens every per-file block inside a bundle.
// The full delimiter line is the marker followed by the relative path.
const FileMarker = "### FILE: "

// Normalizer transforms one discovered path into a FileRecord backed by a
// private scratch artifact. Safe for concurrent use.
type Normalizer struct {
	root       string
	scratchDir string
	exts       utils.ExtensionSet
	trim       bool
}

// NewNormalizer initializes a Normalizer. root must be absolute; scratchDir
// must exist and is owned by the caller.
func NewNormalizer(root, scratchDir string, extensions []string, trim bool) *Normalizer {
	return &Normalizer{
		root:       root,
		scratchDir: scratchDir,
		exts:       utils.NewExtensionSet(extensions),
		trim:       trim,
	}
}

// Normalize reads the file, unifies line endings, optionally trims trailing
// whitespace, prepends the delimiter line, and persists the result to a
// uniquely named scratch file. Returns (nil, nil) for files whose extension
// is not allow-listed: a skip, not an error.
func (n *Normalizer) Normalize(path string) (*models.FileRecord, error) {
	if !n.exts.Matches(path) {
		return nil, nil
	}

	rel := n.relativize(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %s, error: %w", rel, err)
	}

	content := normalizeContent(data, n.trim)

	var buf bytes.Buffer
	buf.WriteString(FileMarker)
	buf.WriteString(rel)
	buf.WriteByte('\n')
	buf.Write(content)

	scratch, err := n.writeScratch(rel, buf.Bytes())
	if err != nil {
		return nil, err
	}

	return &models.FileRecord{
		RelativePath: rel,
		AbsolutePath: path,
		ScratchPath:  scratch,
		ByteSize:     int64(buf.Len()),
		LineCount:    bytes.Count(buf.Bytes(), []byte{'\n'}),
	}, nil
}

// relativize computes the path relative to the root. When the absolute path
// does not share the root prefix, the absolute path is used unmodified.
func (n *Normalizer) relativize(path string) string {
	prefix := n.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if strings.HasPrefix(path, prefix) {
		return filepath.ToSlash(strings.TrimPrefix(path, prefix))
	}
	return filepath.ToSlash(path)
}

// writeScratch persists a normalized unit under a name derived from the
// relative path's hash. CreateTemp keeps concurrent writers collision-free
// even for equal hashes.
func (n *Normalizer) writeScratch(rel string, data []byte) (string, error) {
	pattern := fmt.Sprintf("%016x-*.unit", xxh3.HashString(rel))
	f, err := os.CreateTemp(n.scratchDir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file for %s: %w", rel, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write scratch file for %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close scratch file for %s: %w", rel, err)
	}
	return f.Name(), nil
}

// normalizeContent removes every carriage return, optionally strips trailing
// whitespace per line, and guarantees a trailing newline on non-empty content.
func normalizeContent(data []byte, trim bool) []byte {
	data = bytes.ReplaceAll(data, []byte{'\r'}, nil)

	if trim {
		lines := bytes.Split(data, []byte{'\n'})
		for i, line := range lines {
			lines[i] = bytes.TrimRight(line, " \t")
		}
		data = bytes.Join(lines, []byte{'\n'})
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	return data
}
