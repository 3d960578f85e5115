package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMarkdownBlock(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{
			name: "plain block",
			raw:  "Here you go:\n```markdown\n# Notebook\n\nBody\n```\nThanks",
			want: "# Notebook\n\nBody",
		},
		{
			name: "first block wins",
			raw:  "```markdown\nfirst\n```\n```markdown\nsecond\n```",
			want: "first",
		},
		{
			name: "inner fence ends the block",
			raw:  "```markdown\n# A\n```python\nprint(1)\n```\nrest\n```",
			want: "# A",
		},
		{
			name: "inline without newline",
			raw:  "```markdown# Tight```",
			want: "# Tight",
		},
		{
			name:    "other language fence",
			raw:     "```md\n# Nope\n```",
			wantErr: ErrNoMarkdownBlock,
		},
		{
			name:    "no fence",
			raw:     "I am done",
			wantErr: ErrNoMarkdownBlock,
		},
		{
			name:    "empty",
			raw:     "  \n",
			wantErr: ErrEmptyResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractMarkdownBlock(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsDone(t *testing.T) {
	assert.True(t, IsDone(`I am done`))
	assert.True(t, IsDone("Looks good.\nI am done."))
	assert.False(t, IsDone("i am done"))
	assert.False(t, IsDone("```markdown\n# x\n```"))
}

func TestPostProcess(t *testing.T) {
	d, err := PostProcess("```markdown\nintro\n# Lab Notebook: Sparse Attention\n## Setup\n```")
	require.NoError(t, err)
	assert.Equal(t, "Lab Notebook: Sparse Attention", d.Title)
	assert.Equal(t, "intro\n# Lab Notebook: Sparse Attention\n## Setup", d.Markdown)

	_, err = PostProcess("no block")
	assert.ErrorIs(t, err, ErrNoMarkdownBlock)
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "", ExtractTitle("## only h2"))
	assert.Equal(t, "Top", ExtractTitle("text\n#   Top  \n# Second"))
}
