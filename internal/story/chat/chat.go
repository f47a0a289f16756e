package chat

import (
	"context"
	"sync"

	"storyweaver/internal/domain/story"
	"storyweaver/internal/domain/story/generator"
)

// Companion answers a child's questions about the current story. The
// underlying chat session is created on first use and kept for the life of
// the story, so server-side conversation context carries across questions.
type Companion struct {
	mu      sync.Mutex
	svc     generator.Service
	pages   []story.Page
	session generator.ChatSession
}

func NewCompanion(svc generator.Service, pages []story.Page) *Companion {
	return &Companion{svc: svc, pages: pages}
}

// Ask relays one question. A failed turn leaves the session usable; the
// caller may simply ask again.
func (c *Companion) Ask(ctx context.Context, question string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		session, err := c.svc.StartChat(ctx, c.pages)
		if err != nil {
			return "", err
		}
		c.session = session
	}

	return c.session.SendMessage(ctx, question)
}

// Reset drops the conversation; the next Ask starts a fresh session.
func (c *Companion) Reset() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}
