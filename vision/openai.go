package vision

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"lab_notebook_writer/generator"
)

// OpenAIDescriber sends images as base64 data URLs to a chat completion model.
type OpenAIDescriber struct {
	Model     string
	MaxTokens int
	Opts      []option.RequestOption
}

func NewOpenAIDescriber(cfg generator.LLMSettings) (*OpenAIDescriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing for vision model")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIDescriber{Model: cfg.Model, MaxTokens: cfg.MaxTokens, Opts: opts}, nil
}

func (o *OpenAIDescriber) Describe(ctx context.Context, img Image) (Review, error) {
	images, err := loadImages(img.Paths)
	if err != nil {
		return Review{}, err
	}
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(reviewPrompt(img.Caption))}
	for _, im := range images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    im.DataURL(),
			Detail: "high",
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMessage),
			openai.UserMessage(parts),
		},
	}
	if o.MaxTokens > 0 {
		if generator.IsReasoningModel(o.Model) {
			params.MaxCompletionTokens = openai.Int(int64(o.MaxTokens))
		} else {
			params.MaxTokens = openai.Int(int64(o.MaxTokens))
		}
	}

	client := openai.NewClient(o.Opts...)
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Review{}, err
	}
	if len(resp.Choices) == 0 {
		return Review{}, errors.New("openai: empty choices")
	}
	return ParseReview(resp.Choices[0].Message.Content)
}
