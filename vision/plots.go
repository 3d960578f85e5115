package vision

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// DescribePlots returns one "<file>: <description>" line per plot, in plot order.
// Failures are logged and become NoDescription; they never abort the run.
func DescribePlots(ctx context.Context, d Describer, figuresDir string, plots []string, logger zerolog.Logger) string {
	if d == nil {
		return NoDescriptions
	}
	lines := make([]string, 0, len(plots))
	for _, name := range plots {
		lines = append(lines, name+": "+describeOne(ctx, d, filepath.Join(figuresDir, name), logger))
	}
	return strings.Join(lines, "\n")
}

func describeOne(ctx context.Context, d Describer, path string, logger zerolog.Logger) string {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NoDescription
	}
	review, err := d.Describe(ctx, Image{Paths: []string{path}, Caption: NoCaption})
	if err != nil {
		logger.Warn().Err(err).Str("plot", filepath.Base(path)).Msg("figure description failed")
		return NoDescription
	}
	if strings.TrimSpace(review.Description) == "" {
		return NoDescription
	}
	logger.Debug().Str("plot", filepath.Base(path)).Msg("figure described")
	return review.Description
}
