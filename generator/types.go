package generator

import "time"

// Draft is one extracted version of the lab notebook.
type Draft struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// Turn 记录一次模型调用（首稿或一次反思）。
type Turn struct {
	Kind      string    `json:"kind"` // "initial" or "reflection"
	Response  string    `json:"-"`
	Draft     *Draft    `json:"draft,omitempty"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	TurnInitial    = "initial"
	TurnReflection = "reflection"
)
