package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTML(t *testing.T) {
	out, err := ToHTML("# Results\n\n| run | acc |\n|---|---|\n| a | 0.9 |\n\n~~old~~")
	require.NoError(t, err)
	assert.Contains(t, out, `<h1 id="results">Results</h1>`)
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>0.9</td>")
	assert.Contains(t, out, "<del>old</del>")
}

func TestLocalImages(t *testing.T) {
	doc := `![loss](figures/loss.png)
![remote](https://example.com/a.png)
![inline](data:image/png;base64,AAAA)
![acc](figures/acc.png "Accuracy")`
	assert.Equal(t, []string{"figures/loss.png", "figures/acc.png"}, LocalImages(doc))
}

func TestMissingImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "figures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "figures", "loss.png"), []byte("x"), 0o644))

	doc := "![a](figures/loss.png) ![b](figures/ghost.png)"
	assert.Equal(t, []string{"figures/ghost.png"}, MissingImages(doc, dir))
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lab_notebook.html")
	require.NoError(t, WriteHTML("# A <b>\n\ntext", "A <b>", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>A &lt;b&gt;</title>")
	assert.Contains(t, string(data), "<p>text</p>")
}

func TestPageDefaultTitle(t *testing.T) {
	assert.Contains(t, Page("", "<p>x</p>"), "<title>Lab Notebook</title>")
}
