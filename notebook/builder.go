// Package notebook drives lab notebook generation: gather inputs, draft, then reflect.
package notebook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lab_notebook_writer/experiment"
	"lab_notebook_writer/generator"
	"lab_notebook_writer/render"
	"lab_notebook_writer/vision"
)

// DefaultReflections is the number of reflection passes when none is configured.
const DefaultReflections = 3

// StopReason says why the reflection loop ended.
type StopReason string

const (
	StopExhausted StopReason = "reflections_exhausted"
	StopModelDone StopReason = "model_done"
	StopUnchanged StopReason = "unchanged"
	StopNoBlock   StopReason = "no_markdown_block"
)

// ErrInvalidFolder marks a run folder that is missing or not a directory.
var ErrInvalidFolder = errors.New("invalid run folder")

// Result describes one finished notebook build.
type Result struct {
	RunID         string           `json:"run_id"`
	Folder        string           `json:"folder"`
	Path          string           `json:"path"`
	HTMLPath      string           `json:"html_path,omitempty"`
	Title         string           `json:"title"`
	Reflections   int              `json:"reflections"` // reflection calls made
	Saves         int              `json:"saves"`
	StopReason    StopReason       `json:"stop_reason"`
	MissingImages []string         `json:"missing_images,omitempty"`
	Turns         []generator.Turn `json:"turns"`
}

// Builder writes notebook/lab_notebook.md for a run folder.
type Builder struct {
	LLM         generator.LLMClient
	Vision      vision.Describer // nil: plots go undescribed
	Reflections int
	RenderHTML  bool
	Log         zerolog.Logger
}

// Create runs the whole pipeline. Any error means no usable notebook was produced.
func (b *Builder) Create(ctx context.Context, baseFolder string) (res Result, err error) {
	info, err := os.Stat(baseFolder)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidFolder, err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is not a directory", ErrInvalidFolder, baseFolder)
	}
	if b.Reflections < 0 {
		return Result{}, errors.New("reflections must not be negative")
	}

	res = Result{RunID: uuid.NewString(), Folder: baseFolder}
	log := b.Log.With().Str("run_id", res.RunID).Str("folder", baseFolder).Logger()
	layout := experiment.NewLayout(baseFolder)
	res.Path = layout.NotebookFile()

	if err := experiment.PrepareNotebookDir(layout, log); err != nil {
		return res, err
	}
	inputs, err := experiment.Load(layout, log)
	if err != nil {
		return res, err
	}
	summaries, err := inputs.CombinedSummaries()
	if err != nil {
		return res, err
	}
	log.Info().Int("plots", len(inputs.Plots)).Msg("inputs loaded")

	descriptions := vision.DescribePlots(ctx, b.Vision, layout.FiguresDir(), inputs.Plots, log)

	agent, err := generator.NewAgent(b.LLM, log)
	if err != nil {
		return res, err
	}
	sess := generator.NewSession(agent)
	defer func() { res.Turns = sess.Turns }()

	draft, err := sess.Propose(ctx, generator.NotebookContext{
		IdeaText:         inputs.IdeaText,
		Summaries:        summaries,
		AggregatorCode:   inputs.AggregatorCode,
		Plots:            inputs.Plots,
		PlotDescriptions: descriptions,
		CurrentNotebook:  inputs.CurrentNotebook,
	})
	if err != nil {
		return res, fmt.Errorf("initial notebook: %w", err)
	}
	if err := b.save(layout, draft.Markdown, log); err != nil {
		return res, err
	}
	res.Saves++
	res.Title = draft.Title

	res.StopReason = StopExhausted
	for i := 0; i < b.Reflections; i++ {
		current, err := os.ReadFile(layout.NotebookFile())
		if err != nil {
			return res, fmt.Errorf("read notebook: %w", err)
		}

		r, err := sess.Reflect(ctx)
		if err != nil {
			return res, fmt.Errorf("reflection %d: %w", i+1, err)
		}
		res.Reflections++

		if r.Done {
			log.Info().Int("step", i+1).Msg("LLM indicated it is done with reflections")
			res.StopReason = StopModelDone
			break
		}
		if r.Draft == nil {
			log.Warn().Int("step", i+1).Msg("no valid notebook found in reflection step")
			res.StopReason = StopNoBlock
			break
		}
		if r.Draft.Markdown == string(current) {
			log.Info().Int("step", i+1).Msg("no changes in reflection step")
			res.StopReason = StopUnchanged
			break
		}
		if err := b.save(layout, r.Draft.Markdown, log); err != nil {
			return res, err
		}
		res.Saves++
		if r.Draft.Title != "" {
			res.Title = r.Draft.Title
		}
	}

	final, err := os.ReadFile(layout.NotebookFile())
	if err != nil {
		return res, fmt.Errorf("read notebook: %w", err)
	}
	res.MissingImages = render.MissingImages(string(final), layout.NotebookDir())
	if len(res.MissingImages) > 0 {
		log.Warn().Strs("images", res.MissingImages).Msg("notebook references figures that do not exist")
	}
	if b.RenderHTML {
		if err := render.WriteHTML(string(final), res.Title, layout.NotebookHTML()); err != nil {
			log.Warn().Err(err).Msg("html rendering failed")
		} else {
			res.HTMLPath = layout.NotebookHTML()
		}
	}

	log.Info().
		Int("reflections", res.Reflections).
		Int("saves", res.Saves).
		Str("stop_reason", string(res.StopReason)).
		Msg("lab notebook finished")
	return res, nil
}

// Run is the boolean view of Create: failures are logged, and success means the notebook file exists.
// A panic inside the build is also reported as failure.
func (b *Builder) Run(ctx context.Context, baseFolder string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.Log.Error().
				Str("folder", baseFolder).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("lab notebook creation panicked")
			ok = false
		}
	}()
	res, err := b.Create(ctx, baseFolder)
	if err != nil {
		b.Log.Error().Err(err).Str("folder", baseFolder).Msg("lab notebook creation failed")
		return false
	}
	_, err = os.Stat(res.Path)
	return err == nil
}

func (b *Builder) save(layout experiment.Layout, content string, log zerolog.Logger) error {
	if err := os.WriteFile(layout.NotebookFile(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("save notebook: %w", err)
	}
	log.Info().Str("path", layout.NotebookFile()).Msg("lab notebook successfully saved")
	return nil
}
