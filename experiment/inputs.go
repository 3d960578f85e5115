package experiment

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Summary is one stage summary kept as opaque JSON.
type Summary struct {
	Key string
	Raw []byte
}

// Inputs is everything the notebook prompt is built from.
type Inputs struct {
	IdeaText        string
	Summaries       []Summary
	AggregatorCode  string
	Plots           []string
	CurrentNotebook string
}

// CombinedSummaries renders the summaries as one indented JSON object, keys in load order.
func (in Inputs) CombinedSummaries() (string, error) {
	return CombineSummaries(in.Summaries)
}

// Load reads all inputs under the layout. Missing files never fail the load.
func Load(l Layout, logger zerolog.Logger) (Inputs, error) {
	idea, err := LoadIdea(l)
	if err != nil {
		return Inputs{}, err
	}
	summaries, err := LoadSummaries(l, logger)
	if err != nil {
		return Inputs{}, err
	}
	plots, err := ListPlots(l.FiguresDir())
	if err != nil {
		return Inputs{}, err
	}
	aggregator, err := LoadAggregator(l)
	if err != nil {
		return Inputs{}, err
	}
	current, err := LoadCurrentNotebook(l)
	if err != nil {
		return Inputs{}, err
	}
	return Inputs{
		IdeaText:        idea,
		Summaries:       summaries,
		AggregatorCode:  aggregator,
		Plots:           plots,
		CurrentNotebook: current,
	}, nil
}

// LoadIdea prefers research_idea.md and falls back to idea.md.
func LoadIdea(l Layout) (string, error) {
	for _, p := range []string{l.ResearchIdea(), l.Idea()} {
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read idea %s: %w", p, err)
		}
		return string(data), nil
	}
	return "", nil
}

// LoadSummaries returns one entry per SummaryFiles item. Missing or malformed files become {}.
// NaN and Infinity literals are accepted and kept verbatim.
func LoadSummaries(l Layout, logger zerolog.Logger) ([]Summary, error) {
	out := make([]Summary, 0, len(SummaryFiles))
	for _, f := range SummaryFiles {
		data, err := os.ReadFile(l.Summary(f))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			data = []byte("{}")
		case err != nil:
			return nil, fmt.Errorf("read summary %s: %w", f.Rel, err)
		case !gjson.ValidBytes(nonFiniteAsNull(data)):
			logger.Warn().Str("file", f.Rel).Str("key", f.Key).Msg("summary is not valid JSON, using empty data")
			data = []byte("{}")
		}
		out = append(out, Summary{Key: f.Key, Raw: data})
	}
	return out, nil
}

var nonFiniteTokens = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

// nonFiniteAsNull rewrites the bare NaN, Infinity and -Infinity tokens written by
// Python's json module to null. Only used for validation; the raw bytes are kept.
func nonFiniteAsNull(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}
		matched := false
		for _, tok := range nonFiniteTokens {
			if bytes.HasPrefix(data[i:], tok) {
				out = append(out, "null"...)
				i += len(tok) - 1
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, c)
		}
	}
	return out
}

// CombineSummaries builds {"KEY": <raw>, ...} preserving order and indents it by two spaces.
func CombineSummaries(summaries []Summary) (string, error) {
	doc := []byte("{}")
	for _, s := range summaries {
		raw := s.Raw
		if len(strings.TrimSpace(string(raw))) == 0 {
			raw = []byte("{}")
		}
		var err error
		doc, err = sjson.SetRawBytes(doc, s.Key, raw)
		if err != nil {
			return "", fmt.Errorf("combine summary %s: %w", s.Key, err)
		}
	}
	out := pretty.PrettyOptions(doc, &pretty.Options{Indent: "  "})
	return strings.TrimRight(string(out), "\n"), nil
}

// ListPlots returns the .png filenames (any case) in dir, sorted. A missing dir yields none.
func ListPlots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list figures: %w", err)
	}
	var plots []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".png") {
			plots = append(plots, e.Name())
		}
	}
	sort.Strings(plots)
	return plots, nil
}

// LoadAggregator returns the plot aggregator script or NoAggregatorScript.
func LoadAggregator(l Layout) (string, error) {
	return readOptional(l.Aggregator(), NoAggregatorScript)
}

func LoadCurrentNotebook(l Layout) (string, error) {
	return readOptional(l.NotebookFile(), "")
}

func readOptional(path, fallback string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
