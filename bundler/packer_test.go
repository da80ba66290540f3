package bundler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctxpack/ctxpack/bundler/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecord(t *testing.T, dir, rel string, size int) *models.FileRecord {
	t.Helper()
	content := bytes.Repeat([]byte{'x'}, size-1)
	content = append(content, '\n')
	scratch := filepath.Join(dir, fmt.Sprintf("unit-%s", filepath.Base(rel)))
	require.NoError(t, os.WriteFile(scratch, content, 0644))
	return &models.FileRecord{
		RelativePath: rel,
		ScratchPath:  scratch,
		ByteSize:     int64(len(content)),
		LineCount:    1,
	}
}

func bundleBytes(t *testing.T, outDir, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outDir, name))
	require.NoError(t, err)
	return data
}

func TestPacker_GreedyBoundary(t *testing.T) {
	// Capacity 100 with three 48-byte units: the first two fit (96), the
	// third would reach 144 so it opens the second bundle.
	dir := t.TempDir()
	records := []*models.FileRecord{
		makeRecord(t, dir, "a.txt", 48),
		makeRecord(t, dir, "b.txt", 48),
		makeRecord(t, dir, "c.txt", 48),
	}

	sourceMap, err := NewPacker(dir, 100).Pack(records)
	require.NoError(t, err)
	require.Len(t, sourceMap.Bundles, 2)
	assert.Equal(t, "bundle_0001.txt", sourceMap.Bundles[0].Bundle)
	assert.Equal(t, "bundle_0002.txt", sourceMap.Bundles[1].Bundle)
	require.Len(t, sourceMap.Bundles[0].Files, 2)
	require.Len(t, sourceMap.Bundles[1].Files, 1)
	assert.Equal(t, "c.txt", sourceMap.Bundles[1].Files[0].Source)
}

func TestPacker_OversizeRecordGetsOwnBundle(t *testing.T) {
	dir := t.TempDir()
	records := []*models.FileRecord{
		makeRecord(t, dir, "big.txt", 50),
		makeRecord(t, dir, "small.txt", 5),
	}

	sourceMap, err := NewPacker(dir, 10).Pack(records)
	require.NoError(t, err)
	require.Len(t, sourceMap.Bundles, 2)
	require.Len(t, sourceMap.Bundles[0].Files, 1)
	assert.Equal(t, "big.txt", sourceMap.Bundles[0].Files[0].Source)
	require.Len(t, sourceMap.Bundles[1].Files, 1)
	assert.Equal(t, "small.txt", sourceMap.Bundles[1].Files[0].Source)
}

func TestPacker_SortsByRelativePath(t *testing.T) {
	dir := t.TempDir()
	records := []*models.FileRecord{
		makeRecord(t, dir, "zeta.txt", 8),
		makeRecord(t, dir, "alpha.txt", 8),
		makeRecord(t, dir, "mid.txt", 8),
	}

	sourceMap, err := NewPacker(dir, 1000).Pack(records)
	require.NoError(t, err)
	require.Len(t, sourceMap.Bundles, 1)

	var order []string
	for _, entry := range sourceMap.Bundles[0].Files {
		order = append(order, entry.Source)
	}
	assert.Equal(t, []string{"alpha.txt", "mid.txt", "zeta.txt"}, order)
}

func TestPacker_EntriesAreContiguousAndCoverBundle(t *testing.T) {
	dir := t.TempDir()
	records := []*models.FileRecord{
		makeRecord(t, dir, "a.txt", 13),
		makeRecord(t, dir, "b.txt", 29),
		makeRecord(t, dir, "c.txt", 7),
	}

	sourceMap, err := NewPacker(dir, 1000).Pack(records)
	require.NoError(t, err)
	require.Len(t, sourceMap.Bundles, 1)

	entries := sourceMap.Bundles[0].Files
	var total int64
	for i, entry := range entries {
		if i == 0 {
			assert.Equal(t, int64(0), entry.OffsetStart)
		} else {
			assert.Equal(t, entries[i-1].OffsetEnd, entry.OffsetStart)
		}
		total += entry.OffsetEnd - entry.OffsetStart
	}

	data := bundleBytes(t, dir, sourceMap.Bundles[0].Bundle)
	assert.Equal(t, int64(len(data)), total)
}

func TestPacker_LineStartsAccumulate(t *testing.T) {
	dir := t.TempDir()
	a := makeRecord(t, dir, "a.txt", 10)
	a.LineCount = 3
	b := makeRecord(t, dir, "b.txt", 10)
	b.LineCount = 5

	sourceMap, err := NewPacker(dir, 1000).Pack([]*models.FileRecord{a, b})
	require.NoError(t, err)

	entries := sourceMap.Bundles[0].Files
	assert.Equal(t, 1, entries[0].LineStart)
	assert.Equal(t, 3, entries[0].LineCount)
	assert.Equal(t, 4, entries[1].LineStart)
	assert.Equal(t, 5, entries[1].LineCount)
}

func TestPacker_EmptyInputProducesEmptyMap(t *testing.T) {
	dir := t.TempDir()

	sourceMap, err := NewPacker(dir, 100).Pack(nil)
	require.NoError(t, err)
	require.NotNil(t, sourceMap.Bundles)
	assert.Empty(t, sourceMap.Bundles)

	// The empty state still serializes to a well-formed document.
	data, err := json.Marshal(sourceMap)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bundles":[]}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries) // no bundle files for an empty run
}

func TestPacker_BundleEqualsConcatenationOfUnits(t *testing.T) {
	dir := t.TempDir()
	records := []*models.FileRecord{
		makeRecord(t, dir, "a.txt", 20),
		makeRecord(t, dir, "b.txt", 30),
	}

	sourceMap, err := NewPacker(dir, 1000).Pack(records)
	require.NoError(t, err)

	var expected []byte
	for _, rec := range records {
		unit, err := os.ReadFile(rec.ScratchPath)
		require.NoError(t, err)
		expected = append(expected, unit...)
	}
	assert.Equal(t, expected, bundleBytes(t, dir, sourceMap.Bundles[0].Bundle))
}
