package bundler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/ctxpack/ctxpack/bundler/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	touch(t, root, "alpha.go", "package alpha\r\nvar A = 1   \n")
	touch(t, root, "beta.go", "package beta\n")
	touch(t, root, "docs/readme.md", "# readme\n")
	touch(t, root, "image.png", "\x89PNG")
	return root
}

func runPack(t *testing.T, opts Options) (*models.SourceMap, string) {
	t.Helper()
	if opts.OutDir == "" {
		opts.OutDir = t.TempDir()
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = 1 << 20
	}
	if opts.Workers == 0 {
		opts.Workers = 4
	}
	b := NewBundler(opts)
	sourceMap, err := b.Pack(context.Background(), nil)
	require.NoError(t, err)
	return sourceMap, opts.OutDir
}

func readMap(t *testing.T, outDir string) *models.SourceMap {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outDir, MapFileName))
	require.NoError(t, err)
	var sm models.SourceMap
	require.NoError(t, json.Unmarshal(data, &sm))
	return &sm
}

func TestBundler_PackEndToEnd(t *testing.T) {
	root := buildTree(t)
	sourceMap, outDir := runPack(t, Options{
		SourceDir:  root,
		Extensions: []string{".go", ".md"},
	})

	require.Len(t, sourceMap.Bundles, 1)
	entries := sourceMap.Bundles[0].Files

	var sources []string
	for _, e := range entries {
		sources = append(sources, e.Source)
	}
	assert.Equal(t, []string{"alpha.go", "beta.go", "docs/readme.md"}, sources)

	// Every map entry's offset range must slice out exactly that file's
	// block, starting with its delimiter line.
	data, err := os.ReadFile(filepath.Join(outDir, sourceMap.Bundles[0].Bundle))
	require.NoError(t, err)
	for _, e := range entries {
		block := string(data[e.OffsetStart:e.OffsetEnd])
		assert.True(t, strings.HasPrefix(block, FileMarker+e.Source+"\n"), "block for %s", e.Source)
		assert.Equal(t, e.LineCount, strings.Count(block, "\n"))
	}

	// Carriage returns removed, trailing whitespace kept (trim disabled).
	assert.NotContains(t, string(data), "\r")
	assert.Contains(t, string(data), "var A = 1   \n")

	// Persisted map matches the returned one.
	assert.Equal(t, sourceMap, readMap(t, outDir))
}

func TestBundler_OffsetsCoverBundleExactly(t *testing.T) {
	root := buildTree(t)
	sourceMap, outDir := runPack(t, Options{
		SourceDir:  root,
		Extensions: []string{".go", ".md"},
		ChunkSize:  40, // force multiple bundles
	})

	require.True(t, len(sourceMap.Bundles) > 1)
	for _, bm := range sourceMap.Bundles {
		data, err := os.ReadFile(filepath.Join(outDir, bm.Bundle))
		require.NoError(t, err)

		var total int64
		for i, e := range bm.Files {
			if i > 0 {
				assert.Equal(t, bm.Files[i-1].OffsetEnd, e.OffsetStart)
			}
			total += e.OffsetEnd - e.OffsetStart
		}
		assert.Equal(t, int64(len(data)), total, "bundle %s", bm.Bundle)
	}
}

func TestBundler_ReconstructionMatchesSortedEligibleSet(t *testing.T) {
	root := buildTree(t)
	sourceMap, _ := runPack(t, Options{
		SourceDir:  root,
		Extensions: []string{".go", ".md"},
		ChunkSize:  40,
	})

	var packed []string
	for _, bm := range sourceMap.Bundles {
		for _, e := range bm.Files {
			packed = append(packed, e.Source)
		}
	}

	expected := []string{"alpha.go", "beta.go", "docs/readme.md"}
	sort.Strings(expected)
	assert.Equal(t, expected, packed) // no omissions, no duplicates, sorted
}

func TestBundler_RunsAreIdempotent(t *testing.T) {
	root := buildTree(t)

	first, firstOut := runPack(t, Options{SourceDir: root, Extensions: []string{".go", ".md"}, ChunkSize: 40})
	second, secondOut := runPack(t, Options{SourceDir: root, Extensions: []string{".go", ".md"}, ChunkSize: 40})

	assert.Equal(t, first, second)
	for _, bm := range first.Bundles {
		a, err := os.ReadFile(filepath.Join(firstOut, bm.Bundle))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(secondOut, bm.Bundle))
		require.NoError(t, err)
		assert.Equal(t, a, b, "bundle %s", bm.Bundle)
	}
}

func TestBundler_TrimOption(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "pad.go", "foo   \n")

	sourceMap, outDir := runPack(t, Options{
		SourceDir:  root,
		Extensions: []string{".go"},
		Trim:       true,
	})
	require.Len(t, sourceMap.Bundles, 1)

	data, err := os.ReadFile(filepath.Join(outDir, sourceMap.Bundles[0].Bundle))
	require.NoError(t, err)
	assert.Equal(t, FileMarker+"pad.go\nfoo\n", string(data))
}

func TestBundler_EmptyInputSucceedsWithEmptyMap(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "only.png", "\x89PNG")

	sourceMap, outDir := runPack(t, Options{
		SourceDir:  root,
		Extensions: []string{".go"},
	})
	assert.Empty(t, sourceMap.Bundles)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, MapFileName, entries[0].Name())
	assert.JSONEq(t, `{"bundles":[]}`, readRaw(t, filepath.Join(outDir, MapFileName)))
}

func TestBundler_MissingSourceDirFailsBeforeAnyWork(t *testing.T) {
	outDir := t.TempDir()
	b := NewBundler(Options{
		SourceDir:  filepath.Join(outDir, "nope"),
		OutDir:     outDir,
		ChunkSize:  100,
		Extensions: []string{".go"},
		Workers:    2,
	})

	_, err := b.Pack(context.Background(), nil)
	require.Error(t, err)

	entries, readErr := os.ReadDir(outDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries) // nothing written on a configuration error
}

func TestBundler_ProgressReachesTotal(t *testing.T) {
	root := buildTree(t)

	var highest, total int
	b := NewBundler(Options{
		SourceDir:  root,
		OutDir:     t.TempDir(),
		ChunkSize:  1 << 20,
		Extensions: []string{".go", ".md"},
		Workers:    3,
	})
	_, err := b.Pack(context.Background(), func(done, tot int) {
		if done > highest {
			highest = done
		}
		total = tot
	})
	require.NoError(t, err)
	assert.Equal(t, total, highest)
	assert.Equal(t, 3, total) // the .png never becomes a candidate
}

func TestBundler_UnreadableFileAbortsRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root reads unreadable files")
	}

	root := t.TempDir()
	touch(t, root, "good_a.go", "package a\n")
	touch(t, root, "good_b.go", "package b\n")
	touch(t, root, "broken.go", "package c\n")
	require.NoError(t, os.Chmod(filepath.Join(root, "broken.go"), 0000))

	outDir := t.TempDir()
	b := NewBundler(Options{
		SourceDir:  root,
		OutDir:     outDir,
		ChunkSize:  1 << 20,
		Extensions: []string{".go"},
		Workers:    2,
	})

	// One failing file among several readable ones aborts the whole run
	// with the read error; the packing phase never starts.
	_, err := b.Pack(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.go")
	assert.NoFileExists(t, filepath.Join(outDir, MapFileName))

	entries, readErr := os.ReadDir(outDir)
	require.NoError(t, readErr)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "bundle_"), "bundle written despite failed run: %s", e.Name())
	}
}

func TestBundler_ScratchDirRemoved(t *testing.T) {
	root := buildTree(t)
	_, outDir := runPack(t, Options{SourceDir: root, Extensions: []string{".go", ".md"}})

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".scratch-"), "scratch dir left behind: %s", e.Name())
	}
}

func readRaw(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
