package generator

import (
	"context"
	"fmt"

	"storyweaver/internal/domain/story"
)

// Service is the remote content gateway: everything the app asks a
// generative backend for. Calls are independent request/responses with no
// ordering guarantees across them.
type Service interface {
	// GenerateStory turns a premise into an ordered list of pages.
	GenerateStory(ctx context.Context, premise string) ([]story.Page, error)

	// GenerateStoryIdea suggests a premise.
	GenerateStoryIdea(ctx context.Context) (string, error)

	// GenerateImage renders an illustration for a prompt and returns it
	// as a data URI.
	GenerateImage(ctx context.Context, prompt string) (string, error)

	// GenerateSpeech narrates text. The payload is base64-encoded raw
	// 16-bit PCM at 24000 Hz, mono.
	GenerateSpeech(ctx context.Context, text string) (string, error)

	// StartChat opens a question-answering session seeded with the story.
	StartChat(ctx context.Context, pages []story.Page) (ChatSession, error)
}

// ChatSession is one server-side conversation; context persists across
// SendMessage calls for the session's lifetime.
type ChatSession interface {
	SendMessage(ctx context.Context, message string) (string, error)
}

// RequestError wraps any failure from a remote generation call: network,
// quota, or a response that does not match the expected shape.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
