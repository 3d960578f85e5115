// Package render turns the markdown lab notebook into a standalone HTML page.
package render

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// ToHTML converts markdown (GFM: tables, strikethrough, task lists, autolinks) to an HTML fragment.
func ToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var imgPattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)

// LocalImages lists the image references in markdown that point at local files.
func LocalImages(markdown string) []string {
	var refs []string
	for _, m := range imgPattern.FindAllStringSubmatch(markdown, -1) {
		ref := strings.TrimSpace(m[1])
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// MissingImages returns the local image references that do not resolve relative to baseDir.
func MissingImages(markdown, baseDir string) []string {
	var missing []string
	for _, ref := range LocalImages(markdown) {
		p := ref
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, ref)
		}
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, ref)
		}
	}
	return missing
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { max-width: 60rem; margin: 2rem auto; padding: 0 1rem; font-family: sans-serif; line-height: 1.5; }
img { max-width: 100%%; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.6em; }
pre { background: #f6f8fa; padding: 0.8em; overflow-x: auto; }
</style>
</head>
<body>
%s
</body>
</html>
`

// Page wraps a converted body into a full HTML document.
func Page(title, body string) string {
	if title == "" {
		title = "Lab Notebook"
	}
	return fmt.Sprintf(pageTemplate, html.EscapeString(title), body)
}

// WriteHTML renders markdown to a full page at path. Relative image links keep working
// as long as path sits next to the markdown file.
func WriteHTML(markdown, title, path string) error {
	body, err := ToHTML(markdown)
	if err != nil {
		return fmt.Errorf("convert markdown: %w", err)
	}
	if err := os.WriteFile(path, []byte(Page(title, body)), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}
