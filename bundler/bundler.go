package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ctxpack/ctxpack/bundler/contracts"
	"github.com/ctxpack/ctxpack/bundler/models"
)

// Options configures a Bundler run.
type Options struct {
	SourceDir   string
	OutDir      string
	ChunkSize   int64
	Extensions  []string
	ExcludeDirs []string
	Trim        bool
	Workers     int
}

// Bundler wires the discoverer, the parallel normalization phase, and the
// packer into one pipeline.
type Bundler struct {
	opts Options
}

// NewBundler initializes a new Bundler.
func NewBundler(opts Options) contracts.IBundler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Bundler{opts: opts}
}

// Pack runs discover -> normalize (parallel) -> pack. The packer does not
// start until every normalization has completed; a single failing worker
// aborts the whole run with its error.
func (b *Bundler) Pack(ctx context.Context, progress contracts.ProgressFunc) (*models.SourceMap, error) {
	root, candidates, err := b.discover()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(b.opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	scratchDir, err := os.MkdirTemp(b.opts.OutDir, ".scratch-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	normalizer := NewNormalizer(root, scratchDir, b.opts.Extensions, b.opts.Trim)
	records, err := b.normalizeAll(ctx, normalizer, candidates, progress)
	if err != nil {
		return nil, err
	}

	packer := NewPacker(b.opts.OutDir, b.opts.ChunkSize)
	sourceMap, err := packer.Pack(records)
	if err != nil {
		return nil, err
	}

	if err := writeSourceMap(b.opts.OutDir, sourceMap); err != nil {
		return nil, err
	}
	return sourceMap, nil
}

func (b *Bundler) discover() (string, []string, error) {
	root, err := filepath.Abs(b.opts.SourceDir)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve source directory %s: %w", b.opts.SourceDir, err)
	}
	discoverer := NewDiscoverer(root, b.opts.Extensions, b.opts.ExcludeDirs)
	candidates, err := discoverer.Discover()
	if err != nil {
		return "", nil, err
	}
	return root, candidates, nil
}

// normalizeAll fans the candidates out over a bounded worker pool and joins
// on a full barrier before returning. Records carry no ordering; the packer
// sorts them. The progress counter has exactly one writer serialization
// point: an atomic increment, with the callback serialized separately so a
// terminal progress bar never sees interleaved updates.
func (b *Bundler) normalizeAll(ctx context.Context, normalizer *Normalizer, candidates []string, progress contracts.ProgressFunc) ([]*models.FileRecord, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := len(candidates)
	jobs := make(chan string)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		records     []*models.FileRecord
		done        atomic.Int64
		progressMu  sync.Mutex
		firstErr    error
		firstErrSet sync.Once
	)

	fail := func(err error) {
		firstErrSet.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := 0; i < b.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if ctx.Err() != nil {
					continue // drain remaining jobs after fail-fast cancel
				}
				rec, err := normalizer.Normalize(path)
				if err != nil {
					fail(err)
					continue
				}
				if rec != nil {
					mu.Lock()
					records = append(records, rec)
					mu.Unlock()
				}
				n := int(done.Add(1))
				if progress != nil {
					progressMu.Lock()
					progress(n, total)
					progressMu.Unlock()
				}
			}
		}()
	}

	for _, path := range candidates {
		select {
		case <-ctx.Done():
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func writeSourceMap(outDir string, sourceMap *models.SourceMap) error {
	data, err := json.MarshalIndent(sourceMap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode source map: %w", err)
	}
	data = append(data, '\n')
	mapPath := filepath.Join(outDir, MapFileName)
	if err := os.WriteFile(mapPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write source map: %w", err)
	}
	return nil
}
