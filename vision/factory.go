package vision

import (
	"context"
	"fmt"
	"path/filepath"

	"lab_notebook_writer/generator"
)

// New builds the describer for the settings' provider, inferring it from the model when empty.
func New(s generator.LLMSettings) (Describer, error) {
	if s.Provider == "" {
		p, err := generator.ProviderForModel(s.Model)
		if err != nil {
			return nil, err
		}
		s.Provider = p
	}
	// Constructors return concrete pointers; keep a failed one out of the interface.
	var (
		d   Describer
		err error
	)
	switch s.Provider {
	case generator.ProviderOpenAI:
		var od *OpenAIDescriber
		od, err = NewOpenAIDescriber(s)
		d = od
	case generator.ProviderAnthropic:
		var ad *AnthropicDescriber
		ad, err = NewAnthropicDescriber(s)
		d = ad
	case generator.ProviderGemini:
		var gd *GeminiDescriber
		gd, err = NewGeminiDescriber(s)
		d = gd
	case generator.ProviderMock:
		return MockDescriber{}, nil
	default:
		return nil, fmt.Errorf("vision provider %s not supported", s.Provider)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// MockDescriber describes images by file name only; for offline runs.
type MockDescriber struct{}

func (MockDescriber) Describe(_ context.Context, img Image) (Review, error) {
	if len(img.Paths) == 0 {
		return Review{}, fmt.Errorf("no image paths")
	}
	return Review{Description: "Figure stored as " + filepath.Base(img.Paths[0]) + "."}, nil
}
