package bundler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/ctxpack/ctxpack/bundler/models"
	"github.com/ctxpack/ctxpack/utils"
)

// Stats aggregates the eligible files of the source tree by detected
// language, with byte and line totals per language.
func (b *Bundler) Stats(ctx context.Context) ([]models.LanguageStat, error) {
	_, candidates, err := b.discover()
	if err != nil {
		return nil, err
	}

	exts := utils.NewExtensionSet(b.opts.Extensions)
	byLanguage := make(map[string]*models.LanguageStat)

	for _, path := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !exts.Matches(path) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %s, error: %w", path, err)
		}

		lang := detectLanguage(path)
		stat, ok := byLanguage[lang]
		if !ok {
			stat = &models.LanguageStat{Language: lang}
			byLanguage[lang] = stat
		}
		stat.FileCount++
		stat.ByteSize += int64(len(data))
		stat.LineCount += bytes.Count(data, []byte{'\n'})
	}

	stats := make([]models.LanguageStat, 0, len(byLanguage))
	for _, stat := range byLanguage {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].ByteSize != stats[j].ByteSize {
			return stats[i].ByteSize > stats[j].ByteSize
		}
		return stats[i].Language < stats[j].Language
	})
	return stats, nil
}

func detectLanguage(path string) string {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return "Other"
	}
	return lexer.Config().Name
}
