package generator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyResponse 模型返回空内容。
	ErrEmptyResponse = errors.New("model returned empty response")
	// ErrNoMarkdownBlock 回复中没有 ```markdown 代码块。
	ErrNoMarkdownBlock = errors.New("no ```markdown block in model response")
)

// The match is non-greedy: the first closing fence ends the block.
var markdownBlockRe = regexp.MustCompile("(?s)```markdown(.*?)```")

var titleRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// ExtractMarkdownBlock returns the trimmed body of the first ```markdown fenced block.
func ExtractMarkdownBlock(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyResponse
	}
	m := markdownBlockRe.FindStringSubmatch(raw)
	if len(m) < 2 {
		return "", ErrNoMarkdownBlock
	}
	return strings.TrimSpace(m[1]), nil
}

// IsDone reports whether the reply contains the stop phrase.
func IsDone(raw string) bool {
	return strings.Contains(raw, StopPhrase)
}

// PostProcess 从模型回复中提取笔记正文并补全标题。
func PostProcess(raw string) (Draft, error) {
	md, err := ExtractMarkdownBlock(raw)
	if err != nil {
		return Draft{}, err
	}
	return Draft{
		Title:    ExtractTitle(md),
		Markdown: md,
	}, nil
}

// ExtractTitle returns the first level-one heading, or "".
func ExtractTitle(md string) string {
	m := titleRe.FindStringSubmatch(md)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}
