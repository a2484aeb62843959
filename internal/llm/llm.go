package llm

import (
	"context"
	"errors"
)

// ErrUpstreamUnavailable marks provider failures (network errors, non-2xx
// responses, exhausted retries). Handlers map it to 503.
var ErrUpstreamUnavailable = errors.New("llm upstream unavailable")

// Message is a single chat message sent to the completion endpoint.
type Message struct {
	Role    string
	Content string
}

// Request captures everything one completion call needs.
type Request struct {
	Messages    []Message
	Temperature *float32
	MaxTokens   int
	JSONMode    bool
}

// Usage reports provider token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Result is the outcome of a blocking completion call.
type Result struct {
	Content string
	Model   string
	Usage   Usage
}

// CompletionClient abstracts the hosted chat-completion provider.
//
// Complete sends one request and returns the full completion text.
// CompleteStream invokes onDelta for every non-empty text delta in arrival
// order; it returns once the provider signals end of stream. An error from
// onDelta aborts the stream and is returned unchanged.
type CompletionClient interface {
	Complete(ctx context.Context, req Request) (Result, error)
	CompleteStream(ctx context.Context, req Request, onDelta func(delta string) error) (Usage, error)
}

// Language identifies the target output language for generated content.
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"nativeName"`
}

// DefaultLanguage is used whenever the caller omits a language.
var DefaultLanguage = Language{Code: "en", Name: "English", NativeName: "English"}

// OrDefault returns l, or DefaultLanguage when l carries no code.
func (l Language) OrDefault() Language {
	if l.Code == "" {
		return DefaultLanguage
	}
	if l.Name == "" {
		l.Name = l.Code
	}
	return l
}
