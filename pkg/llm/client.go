// Package llm wraps language-model invocations as governed calls: gated
// by the budget enforcer before dispatch, metered after completion. The
// provider transport is an external collaborator behind Invoker.
package llm

import "context"

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one model invocation.
type Request struct {
	Model           string    `json:"model"`
	Messages        []Message `json:"messages"`
	MaxOutputTokens int64     `json:"max_output_tokens"`
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the model output plus its usage.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Invoker dispatches a request to the model provider.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// StaticInvoker returns a fixed response; used in development and tests.
type StaticInvoker struct {
	Response *Response
	Err      error
}

// Invoke returns the configured response.
func (s *StaticInvoker) Invoke(context.Context, Request) (*Response, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Response, nil
}
