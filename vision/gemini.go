package vision

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"lab_notebook_writer/generator"
)

// GeminiDescriber sends images as inline bytes.
type GeminiDescriber struct {
	client    *genai.Client
	Model     string
	MaxTokens int
}

func NewGeminiDescriber(cfg generator.LLMSettings) (*GeminiDescriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing for vision model")
	}
	client, err := generator.NewGenAIClient(context.Background(), cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &GeminiDescriber{client: client, Model: cfg.Model, MaxTokens: cfg.MaxTokens}, nil
}

func (g *GeminiDescriber) Describe(ctx context.Context, img Image) (Review, error) {
	images, err := loadImages(img.Paths)
	if err != nil {
		return Review{}, err
	}
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, im := range images {
		parts = append(parts, genai.NewPartFromBytes(im.Data, im.MediaType))
	}
	parts = append(parts, genai.NewPartFromText(reviewPrompt(img.Caption)))

	resp, err := g.client.Models.GenerateContent(ctx, g.Model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		generator.GenAIConfig(systemMessage, g.MaxTokens, 0),
	)
	if err != nil {
		return Review{}, fmt.Errorf("gemini generate: %w", err)
	}
	return ParseReview(resp.Text())
}
