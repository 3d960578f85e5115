package experiment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
)

// PrepareNotebookDir wipes any previous notebook/ folder, recreates it and copies
// figures/ into notebook/figures so the markdown can reference them relatively.
func PrepareNotebookDir(l Layout, logger zerolog.Logger) error {
	if err := os.RemoveAll(l.NotebookDir()); err != nil {
		return fmt.Errorf("remove old notebook dir: %w", err)
	}
	if err := os.MkdirAll(l.NotebookDir(), 0o755); err != nil {
		return fmt.Errorf("create notebook dir: %w", err)
	}

	info, err := os.Stat(l.FiguresDir())
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		logger.Warn().Str("dir", l.FiguresDir()).Msg("no figures directory, notebook will have no figures")
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat figures dir: %w", err)
	}
	if err := os.CopyFS(l.NotebookFiguresDir(), os.DirFS(l.FiguresDir())); err != nil {
		return fmt.Errorf("copy figures: %w", err)
	}
	return nil
}
