// Package experiment gathers the file inputs of one experiment run folder.
package experiment

import "path/filepath"

// Summary keys, in the order they are presented to the model.
const (
	BaselineSummaryKey = "BASELINE_SUMMARY"
	ResearchSummaryKey = "RESEARCH_SUMMARY"
	AblationSummaryKey = "ABLATION_SUMMARY"
)

// NoAggregatorScript stands in for a missing auto_plot_aggregator.py.
const NoAggregatorScript = "No aggregator script found."

// SummaryFile pairs a summary JSON file (relative to the run folder) with its prompt key.
type SummaryFile struct {
	Rel string
	Key string
}

// SummaryFiles are loaded in this order; stages that never ran simply have no file.
var SummaryFiles = []SummaryFile{
	{Rel: filepath.Join("logs", "0-run", "baseline_summary.json"), Key: BaselineSummaryKey},
	{Rel: filepath.Join("logs", "0-run", "research_summary.json"), Key: ResearchSummaryKey},
	{Rel: filepath.Join("logs", "0-run", "ablation_summary.json"), Key: AblationSummaryKey},
}

// Layout resolves every path the notebook writer reads or writes under a run folder.
type Layout struct {
	Base string
}

func NewLayout(base string) Layout {
	return Layout{Base: base}
}

func (l Layout) ResearchIdea() string { return filepath.Join(l.Base, "research_idea.md") }
func (l Layout) Idea() string         { return filepath.Join(l.Base, "idea.md") }
func (l Layout) FiguresDir() string   { return filepath.Join(l.Base, "figures") }
func (l Layout) Aggregator() string   { return filepath.Join(l.Base, "auto_plot_aggregator.py") }
func (l Layout) NotebookDir() string  { return filepath.Join(l.Base, "notebook") }

func (l Layout) NotebookFiguresDir() string {
	return filepath.Join(l.NotebookDir(), "figures")
}

func (l Layout) NotebookFile() string {
	return filepath.Join(l.NotebookDir(), "lab_notebook.md")
}

func (l Layout) NotebookHTML() string {
	return filepath.Join(l.NotebookDir(), "lab_notebook.html")
}

// NotebookPDF is where the PDF rendition is expected; another tool produces it.
func (l Layout) NotebookPDF() string {
	return filepath.Join(l.NotebookDir(), "lab_notebook.pdf")
}

func (l Layout) Summary(f SummaryFile) string {
	return filepath.Join(l.Base, f.Rel)
}
