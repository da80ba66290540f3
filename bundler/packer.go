package bundler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ctxpack/ctxpack/bundler/models"
)

// MapFileName is the name of the source map document inside the out dir.
const MapFileName = "bundle_map.json"

const bundleNamePattern = "bundle_%04d.txt"

// Packer greedily concatenates normalized units into fixed-capacity bundles.
// Capacity is a target, not a hard cap: a unit larger than the capacity still
// gets a bundle of its own, and an empty bundle never refuses its first unit.
type Packer struct {
	outDir    string
	chunkSize int64
}

// NewPacker initializes a Packer writing bundles into outDir.
func NewPacker(outDir string, chunkSize int64) *Packer {
	return &Packer{outDir: outDir, chunkSize: chunkSize}
}

// Pack consumes the full set of FileRecords and deterministically produces
// bundle files plus the source map. Records are sorted byte-wise by relative
// path first, so re-runs over an unchanged tree yield identical output.
func (p *Packer) Pack(records []*models.FileRecord) (*models.SourceMap, error) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].RelativePath < records[j].RelativePath
	})

	sourceMap := &models.SourceMap{Bundles: []models.BundleMap{}}

	var current *os.File
	var currentBytes int64
	var currentLines int

	closeCurrent := func() error {
		if current == nil {
			return nil
		}
		err := current.Close()
		current = nil
		currentBytes = 0
		currentLines = 0
		if err != nil {
			return fmt.Errorf("failed to close bundle: %w", err)
		}
		return nil
	}

	openNext := func() error {
		name := fmt.Sprintf(bundleNamePattern, len(sourceMap.Bundles)+1)
		f, err := os.Create(filepath.Join(p.outDir, name))
		if err != nil {
			return fmt.Errorf("failed to create bundle %s: %w", name, err)
		}
		current = f
		sourceMap.Bundles = append(sourceMap.Bundles, models.BundleMap{
			Bundle: name,
			Files:  []models.MapEntry{},
		})
		return nil
	}

	for _, rec := range records {
		if current != nil && currentBytes > 0 && currentBytes+rec.ByteSize > p.chunkSize {
			if err := closeCurrent(); err != nil {
				return nil, err
			}
		}
		if current == nil {
			if err := openNext(); err != nil {
				return nil, err
			}
		}

		copied, err := appendUnit(current, rec.ScratchPath)
		if err != nil {
			return nil, fmt.Errorf("failed to pack %s: %w", rec.RelativePath, err)
		}
		if copied != rec.ByteSize {
			return nil, fmt.Errorf("normalized unit for %s changed size: recorded %d, packed %d", rec.RelativePath, rec.ByteSize, copied)
		}

		idx := len(sourceMap.Bundles) - 1
		sourceMap.Bundles[idx].Files = append(sourceMap.Bundles[idx].Files, models.MapEntry{
			Source:      rec.RelativePath,
			OffsetStart: currentBytes,
			OffsetEnd:   currentBytes + rec.ByteSize,
			LineStart:   currentLines + 1,
			LineCount:   rec.LineCount,
		})
		currentBytes += rec.ByteSize
		currentLines += rec.LineCount
	}

	if err := closeCurrent(); err != nil {
		return nil, err
	}
	return sourceMap, nil
}

func appendUnit(dst *os.File, scratchPath string) (int64, error) {
	src, err := os.Open(scratchPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return io.Copy(dst, src)
}
