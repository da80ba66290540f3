package contracts

import (
	"context"

	"github.com/ctxpack/ctxpack/bundler/models"
)

// ProgressFunc reports completed normalizations out of the discovered total.
type ProgressFunc func(done, total int)

// IBundler is the contract for the discover/normalize/pack pipeline and its
// secondary modes.
type IBundler interface {
	// Pack runs the full pipeline and writes bundles plus the source map.
	Pack(ctx context.Context, progress ProgressFunc) (*models.SourceMap, error)
	// Collect copies eligible files flat into the out dir, renaming on collision.
	Collect(ctx context.Context) (int, error)
	// Stats aggregates eligible files by detected language.
	Stats(ctx context.Context) ([]models.LanguageStat, error)
}
