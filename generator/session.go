package generator

import (
	"context"
	"errors"
	"time"
)

// Session 持有一次笔记生成的多轮对话上下文：首稿 + 若干次反思。
type Session struct {
	agent   *Agent
	History []Message
	Turns   []Turn
}

func NewSession(agent *Agent) *Session {
	return &Session{agent: agent}
}

// Propose sends the full notebook prompt and extracts the first draft.
// The exchange stays in History even when no markdown block came back.
func (s *Session) Propose(ctx context.Context, nc NotebookContext) (Draft, error) {
	prompt := BuildNotebookPrompt(nc)
	raw, err := s.agent.Ask(ctx, prompt)
	if err != nil {
		return Draft{}, err
	}
	s.record(prompt.User, raw)

	draft, err := PostProcess(raw)
	turn := Turn{Kind: TurnInitial, Response: raw, CreatedAt: time.Now()}
	if err == nil {
		turn.Draft = &draft
	}
	s.Turns = append(s.Turns, turn)
	return draft, err
}

// Reflection is the outcome of one reflection pass.
type Reflection struct {
	Raw   string
	Done  bool   // the reply contained StopPhrase
	Draft *Draft // nil when the reply had no markdown block
}

// Reflect asks the model to critique and resend the notebook within the same conversation.
func (s *Session) Reflect(ctx context.Context) (Reflection, error) {
	prompt := BuildReflectionPrompt(s.History)
	raw, err := s.agent.Ask(ctx, prompt)
	if err != nil {
		return Reflection{}, err
	}
	s.record(prompt.User, raw)

	r := Reflection{Raw: raw, Done: IsDone(raw)}
	if !r.Done {
		draft, err := PostProcess(raw)
		switch {
		case err == nil:
			r.Draft = &draft
		case errors.Is(err, ErrNoMarkdownBlock), errors.Is(err, ErrEmptyResponse):
		default:
			return Reflection{}, err
		}
	}
	s.Turns = append(s.Turns, Turn{
		Kind:      TurnReflection,
		Response:  raw,
		Draft:     r.Draft,
		Done:      r.Done,
		CreatedAt: time.Now(),
	})
	return r, nil
}

func (s *Session) record(user, assistant string) {
	s.History = append(s.History,
		Message{Role: RoleUser, Content: user},
		Message{Role: RoleAssistant, Content: assistant},
	)
}
