package vision

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"lab_notebook_writer/generator"
)

func TestParseReview(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		desc    string
		review  string
		wantErr bool
	}{
		{
			name:   "fenced json",
			raw:    "Sure.\n```json\n{\"Img_description\": \"Loss falls\", \"Img_review\": \"Clear\"}\n```",
			desc:   "Loss falls",
			review: "Clear",
		},
		{
			name: "bare json",
			raw:  `{"Img_description": "Accuracy curve"}`,
			desc: "Accuracy curve",
		},
		{
			name:    "prose only",
			raw:     "The plot shows a loss curve.",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseReview(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.raw, r.Raw)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.desc, r.Description)
			assert.Equal(t, tt.review, r.Review)
		})
	}
}

type fakeDescriber struct {
	replies map[string]Review
	errs    map[string]error
	seen    []Image
}

func (f *fakeDescriber) Describe(_ context.Context, img Image) (Review, error) {
	f.seen = append(f.seen, img)
	name := filepath.Base(img.Paths[0])
	if err := f.errs[name]; err != nil {
		return Review{}, err
	}
	return f.replies[name], nil
}

func TestDescribePlots(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644))
	}
	d := &fakeDescriber{
		replies: map[string]Review{"a.png": {Description: "Loss curve"}, "c.png": {Description: "  "}},
		errs:    map[string]error{"b.png": errors.New("timeout")},
	}

	got := DescribePlots(context.Background(), d, dir, []string{"a.png", "b.png", "gone.png", "c.png"}, zerolog.Nop())

	want := strings.Join([]string{
		"a.png: Loss curve",
		"b.png: " + NoDescription,
		"gone.png: " + NoDescription,
		"c.png: " + NoDescription,
	}, "\n")
	assert.Equal(t, want, got)
	require.Len(t, d.seen, 3)
	assert.Equal(t, NoCaption, d.seen[0].Caption)
}

func TestDescribePlotsWithoutDescriber(t *testing.T) {
	assert.Equal(t, NoDescriptions, DescribePlots(context.Background(), nil, t.TempDir(), []string{"a.png"}, zerolog.Nop()))
}

func TestDescribePlotsNoPlots(t *testing.T) {
	assert.Equal(t, "", DescribePlots(context.Background(), MockDescriber{}, t.TempDir(), nil, zerolog.Nop()))
}

func TestOpenAIDescriberSendsDataURL(t *testing.T) {
	img := filepath.Join(t.TempDir(), "loss.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG fake"), 0o644))

	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "c1", "object": "chat.completion", "created": 1, "model": "gpt-4o",
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": "```json\n{\"Img_description\": \"Training loss\"}\n```"},
			}},
		})
	}))
	defer srv.Close()

	d, err := NewOpenAIDescriber(generator.LLMSettings{Model: "gpt-4o", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	r, err := d.Describe(context.Background(), Image{Paths: []string{img}, Caption: NoCaption})
	require.NoError(t, err)
	assert.Equal(t, "Training loss", r.Description)

	url := gjson.GetBytes(body, `messages.1.content.#(type=="image_url").image_url.url`).String()
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)
}

func TestDescribeMissingImage(t *testing.T) {
	d, err := NewOpenAIDescriber(generator.LLMSettings{Model: "gpt-4o", APIKey: "k"})
	require.NoError(t, err)
	_, err = d.Describe(context.Background(), Image{Paths: []string{filepath.Join(t.TempDir(), "nope.png")}})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	d, err := New(generator.LLMSettings{Model: "mock"})
	require.NoError(t, err)
	assert.IsType(t, MockDescriber{}, d)

	d, err = New(generator.LLMSettings{Model: "gpt-4o-2024-05-13"})
	assert.Error(t, err)
	assert.True(t, d == nil)
	assert.Equal(t, NoDescriptions, DescribePlots(context.Background(), d, t.TempDir(), []string{"a.png"}, zerolog.Nop()))

	_, err = New(generator.LLMSettings{Model: "deepseek-chat", APIKey: "k"})
	assert.ErrorContains(t, err, "not supported")

	d, err = New(generator.LLMSettings{Model: "claude-3-5-sonnet-20241022", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicDescriber{}, d)
}
