package generator

import (
	"context"
	"fmt"
	"strings"
)

// LLMClient 抽象文本补全模型，便于替换/Mock。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderDeepSeek  = "deepseek"
	ProviderMock      = "mock"
)

var reasoningPrefixes = []string{"o1", "o3", "o4"}

// ProviderForModel infers the provider from a model name. Unknown families are rejected.
func ProviderForModel(model string) (string, error) {
	m := strings.ToLower(model)
	switch {
	case m == ProviderMock:
		return ProviderMock, nil
	case strings.HasPrefix(m, "claude"):
		return ProviderAnthropic, nil
	case strings.HasPrefix(m, "gemini"):
		return ProviderGemini, nil
	case strings.HasPrefix(m, "deepseek"):
		return ProviderDeepSeek, nil
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "chatgpt"), IsReasoningModel(m):
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("model %q not supported", model)
	}
}

// NewLLM builds the client for settings.Provider, inferring it from the model when empty.
func NewLLM(s LLMSettings) (LLMClient, error) {
	if s.Provider == "" {
		p, err := ProviderForModel(s.Model)
		if err != nil {
			return nil, err
		}
		s.Provider = p
	}
	switch s.Provider {
	case ProviderOpenAI:
		return asClient(NewOpenAILLMFromConfig(&s))
	case ProviderDeepSeek:
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url。
		if s.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return asClient(NewOpenAILLMFromConfig(&s))
	case ProviderAnthropic:
		return asClient(NewAnthropicLLMFromConfig(&s))
	case ProviderGemini:
		return asClient(NewGeminiLLMFromConfig(&s))
	case ProviderMock:
		return MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", s.Provider)
	}
}

// asClient keeps a nil concrete client out of the interface.
func asClient[T LLMClient](c T, err error) (LLMClient, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
