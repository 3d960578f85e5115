package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Agent 负责单次模型调用：发送 Prompt 并记录耗时。
type Agent struct {
	llm LLMClient
	log zerolog.Logger
}

func NewAgent(llm LLMClient, logger zerolog.Logger) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm, log: logger}, nil
}

// Ask sends prompt and returns the raw reply.
func (a *Agent) Ask(ctx context.Context, prompt Prompt) (string, error) {
	a.log.Debug().
		Int("history", len(prompt.History)).
		Int("prompt_chars", len(prompt.User)).
		Msg("llm request")
	start := time.Now()
	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		a.log.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("llm request failed")
		return "", fmt.Errorf("llm completion: %w", err)
	}
	a.log.Debug().
		Int("response_chars", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("llm response")
	return raw, nil
}
