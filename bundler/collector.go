package bundler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctxpack/ctxpack/utils"
)

// Collect copies every eligible discovered file flat into the out dir,
// byte-faithfully and without normalization. Name collisions are resolved
// by inserting a numeric suffix before the extension.
func (b *Bundler) Collect(ctx context.Context) (int, error) {
	_, candidates, err := b.discover()
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(b.opts.OutDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	exts := utils.NewExtensionSet(b.opts.Extensions)
	sort.Strings(candidates) // stable collision numbering across runs

	taken := make(map[string]bool)
	copied := 0
	for _, path := range candidates {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		if !exts.Matches(path) {
			continue
		}
		dst := collisionFreeName(b.opts.OutDir, filepath.Base(path), taken)
		taken[filepath.Base(dst)] = true
		if err := copyFile(path, dst); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

// collisionFreeName turns name.ext into name_1.ext, name_2.ext, ... until a
// name is free both in this run and on disk.
func collisionFreeName(dir, name string, taken map[string]bool) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 1; ; i++ {
		if !taken[candidate] {
			if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
				break
			}
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	return filepath.Join(dir, candidate)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return nil
}
