package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
// The first call yields a placeholder notebook, every later call ends the reflections.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	if len(prompt.History) > 0 {
		return StopPhrase + ".", nil
	}
	var sb strings.Builder
	sb.WriteString("```markdown\n")
	sb.WriteString("# Lab Notebook (offline draft)\n\n")
	sb.WriteString("This notebook was produced without a language model.\n\n")
	sb.WriteString("## Prompt\n\n")
	sb.WriteString(fmt.Sprintf("- characters: %d\n", len(prompt.User)))
	sb.WriteString(fmt.Sprintf("- lines: %d\n", strings.Count(prompt.User, "\n")+1))
	sb.WriteString("```\n")
	return sb.String(), nil
}

// ScriptedLLM returns canned replies in order and records every prompt it receives.
type ScriptedLLM struct {
	mu        sync.Mutex
	Responses []string
	Err       error // returned instead of a reply when set
	Prompts   []Prompt
}

func NewScriptedLLM(responses ...string) *ScriptedLLM {
	return &ScriptedLLM{Responses: responses}
}

func (m *ScriptedLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", errors.New("scripted llm: script exhausted")
	}
	next := m.Responses[0]
	m.Responses = m.Responses[1:]
	return next, nil
}

// Calls returns how many prompts were received.
func (m *ScriptedLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
