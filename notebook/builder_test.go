package notebook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab_notebook_writer/experiment"
	"lab_notebook_writer/generator"
	"lab_notebook_writer/vision"
)

func block(md string) string {
	return "Here is the notebook.\n```markdown\n" + md + "\n```\n"
}

func newRunFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write("research_idea.md", "# Sparse attention\nDoes sparsity help?")
	write("figures/loss.png", "png")
	write("figures/acc.png", "png")
	write("auto_plot_aggregator.py", "plt.savefig('figures/loss.png')")
	write("logs/0-run/baseline_summary.json", `{"metric": 0.8}`)
	write("logs/0-run/research_summary.json", `not json`)
	return dir
}

func newBuilder(llm generator.LLMClient, reflections int) *Builder {
	return &Builder{LLM: llm, Reflections: reflections, Log: zerolog.Nop()}
}

func readNotebook(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(experiment.NewLayout(dir).NotebookFile())
	require.NoError(t, err)
	return string(data)
}

func TestCreateStopsWhenModelIsDone(t *testing.T) {
	dir := newRunFolder(t)
	llm := generator.NewScriptedLLM(block("# V1"), block("# V2"), "I am done")

	res, err := newBuilder(llm, 3).Create(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "# V2", readNotebook(t, dir))
	assert.Equal(t, StopModelDone, res.StopReason)
	assert.Equal(t, 2, res.Reflections)
	assert.Equal(t, 2, res.Saves)
	assert.Equal(t, "V2", res.Title)
	assert.Equal(t, 3, llm.Calls())
	assert.Len(t, res.Turns, 3)
	assert.NotEmpty(t, res.RunID)
}

func TestCreateStopsWhenUnchanged(t *testing.T) {
	dir := newRunFolder(t)
	llm := generator.NewScriptedLLM(block("# Same"), block("# Same"), block("# Never asked"))

	res, err := newBuilder(llm, 3).Create(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, StopUnchanged, res.StopReason)
	assert.Equal(t, 1, res.Reflections)
	assert.Equal(t, 1, res.Saves)
	assert.Equal(t, 2, llm.Calls())
}

func TestCreateRunsAtMostNReflections(t *testing.T) {
	dir := newRunFolder(t)
	llm := generator.NewScriptedLLM(block("# V1"), block("# V2"), block("# V3"), block("# V4"))

	res, err := newBuilder(llm, 2).Create(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, StopExhausted, res.StopReason)
	assert.Equal(t, 2, res.Reflections)
	assert.Equal(t, 3, res.Saves)
	assert.Equal(t, "# V3", readNotebook(t, dir))
	assert.Equal(t, 3, llm.Calls())
}

func TestCreateWithoutReflections(t *testing.T) {
	dir := newRunFolder(t)
	llm := generator.NewScriptedLLM(block("# Only"))

	res, err := newBuilder(llm, 0).Create(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Reflections)
	assert.Equal(t, StopExhausted, res.StopReason)
	assert.Equal(t, "# Only", readNotebook(t, dir))
}

func TestCreateReflectionWithoutBlockKeepsNotebook(t *testing.T) {
	dir := newRunFolder(t)
	llm := generator.NewScriptedLLM(block("# V1"), "I think it reads well.")

	res, err := newBuilder(llm, 3).Create(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, StopNoBlock, res.StopReason)
	assert.Equal(t, "# V1", readNotebook(t, dir))
}

func TestCreateFailsWithoutInitialBlock(t *testing.T) {
	dir := newRunFolder(t)
	b := newBuilder(generator.NewScriptedLLM("no fenced notebook here"), 3)

	res, err := b.Create(context.Background(), dir)
	assert.ErrorIs(t, err, generator.ErrNoMarkdownBlock)
	assert.NoFileExists(t, res.Path)
	assert.Len(t, res.Turns, 1)

	assert.False(t, newBuilder(generator.NewScriptedLLM("still nothing"), 3).Run(context.Background(), dir))
}

func TestCreateReflectionErrorFails(t *testing.T) {
	dir := newRunFolder(t)
	llm := generator.NewScriptedLLM(block("# V1"))

	_, err := newBuilder(llm, 1).Create(context.Background(), dir)
	assert.ErrorContains(t, err, "reflection 1")
	assert.Equal(t, "# V1", readNotebook(t, dir))
}

func TestCreateMissingFolder(t *testing.T) {
	_, err := newBuilder(generator.NewScriptedLLM(), 1).Create(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrInvalidFolder)
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(t.TempDir(), "run.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = newBuilder(generator.NewScriptedLLM(), 1).Create(context.Background(), file)
	assert.ErrorIs(t, err, ErrInvalidFolder)
}

func TestCreateNegativeReflections(t *testing.T) {
	_, err := newBuilder(generator.NewScriptedLLM(), -1).Create(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestCreatePromptFromEmptyFolder(t *testing.T) {
	dir := t.TempDir()
	llm := generator.NewScriptedLLM(block("# Empty"))

	_, err := newBuilder(llm, 0).Create(context.Background(), dir)
	require.NoError(t, err)

	user := llm.Prompts[0].User
	assert.Contains(t, user, experiment.NoAggregatorScript)
	assert.Contains(t, user, `"BASELINE_SUMMARY": {}`)
	assert.Contains(t, user, `"ABLATION_SUMMARY": {}`)
	assert.DirExists(t, experiment.NewLayout(dir).NotebookDir())
}

func TestCreateWithVisionAndHTML(t *testing.T) {
	dir := newRunFolder(t)
	llm := generator.NewScriptedLLM(
		block("# Sparse attention notebook\n\n![loss](figures/loss.png)\n![gone](figures/gone.png)"),
		"I am done",
	)
	b := newBuilder(llm, 3)
	b.Vision = vision.MockDescriber{}
	b.RenderHTML = true

	res, err := b.Create(context.Background(), dir)
	require.NoError(t, err)

	user := llm.Prompts[0].User
	assert.Contains(t, user, "acc.png, loss.png")
	assert.Contains(t, user, "acc.png: Figure stored as acc.png.\nloss.png: Figure stored as loss.png.")
	assert.Contains(t, user, `"RESEARCH_SUMMARY": {}`)
	assert.Contains(t, user, `"metric": 0.8`)
	assert.Contains(t, user, "Does sparsity help?")

	layout := experiment.NewLayout(dir)
	assert.FileExists(t, filepath.Join(layout.NotebookFiguresDir(), "loss.png"))
	assert.Equal(t, []string{"figures/gone.png"}, res.MissingImages)
	require.Equal(t, layout.NotebookHTML(), res.HTMLPath)
	html, err := os.ReadFile(res.HTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<title>Sparse attention notebook</title>")
}

func TestCreateWithoutVisionUsesPlaceholder(t *testing.T) {
	dir := newRunFolder(t)
	llm := generator.NewScriptedLLM(block("# N"))

	_, err := newBuilder(llm, 0).Create(context.Background(), dir)
	require.NoError(t, err)
	assert.Contains(t, llm.Prompts[0].User, vision.NoDescriptions)
}

func TestRun(t *testing.T) {
	dir := newRunFolder(t)
	assert.True(t, newBuilder(generator.NewScriptedLLM(block("# ok"), "I am done"), 3).Run(context.Background(), dir))

	failing := generator.NewScriptedLLM()
	failing.Err = errors.New("unauthorized")
	assert.False(t, newBuilder(failing, 3).Run(context.Background(), dir))
}

type panickingLLM struct{}

func (panickingLLM) Complete(context.Context, generator.Prompt) (string, error) {
	panic("sdk exploded")
}

func TestRunRecoversFromPanic(t *testing.T) {
	dir := newRunFolder(t)
	var ok bool
	assert.NotPanics(t, func() {
		ok = newBuilder(panickingLLM{}, 1).Run(context.Background(), dir)
	})
	assert.False(t, ok)
}
