package vision

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"lab_notebook_writer/generator"
)

// AnthropicDescriber sends images as base64 image blocks.
type AnthropicDescriber struct {
	client    anthropic.Client
	Model     string
	MaxTokens int
}

func NewAnthropicDescriber(cfg generator.LLMSettings) (*AnthropicDescriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key missing for vision model")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicDescriber{client: anthropic.NewClient(opts...), Model: cfg.Model, MaxTokens: maxTokens}, nil
}

func (a *AnthropicDescriber) Describe(ctx context.Context, img Image) (Review, error) {
	images, err := loadImages(img.Paths)
	if err != nil {
		return Review{}, err
	}
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(images)+1)
	for _, im := range images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(im.MediaType, im.Base64()))
	}
	blocks = append(blocks, anthropic.NewTextBlock(reviewPrompt(img.Caption)))

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: systemMessage}},
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	})
	if err != nil {
		return Review{}, err
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(b.Text)
		}
	}
	return ParseReview(sb.String())
}
