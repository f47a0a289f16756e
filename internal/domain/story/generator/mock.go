package generator

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"storyweaver/internal/domain/story"
)

// 1x1 transparent PNG, enough to stand in for an illustration.
const mockPixel = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// Mock - offline Service used when no API key is configured, and by tests.
// Content is deterministic: fixed pages built from the premise, a single
// pixel for every illustration, and a short tone for narration.
type Mock struct {
	// Delay simulates network latency on every call when set.
	Delay time.Duration
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) GenerateStory(ctx context.Context, premise string) ([]story.Page, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return []story.Page{
		{
			Text:        fmt.Sprintf("Once upon a time, a story began about %s.", premise),
			ImagePrompt: fmt.Sprintf("A warm storybook opening scene about %s", premise),
		},
		{
			Text:        "The little hero set out on a big adventure, full of wonder.",
			ImagePrompt: "The hero setting out at dawn, storybook style",
		},
		{
			Text:        "Along the way there were puzzles to solve and friends to make.",
			ImagePrompt: "New friends gathered around a curious puzzle",
		},
		{
			Text:        "And when the stars came out, everyone was safely home. The end.",
			ImagePrompt: "A cozy home under a starry night sky",
		},
	}, nil
}

func (m *Mock) GenerateStoryIdea(ctx context.Context) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	return "A shy lighthouse that learns to sing to the ships at night", nil
}

func (m *Mock) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	return "data:image/png;base64," + mockPixel, nil
}

func (m *Mock) GenerateSpeech(ctx context.Context, text string) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	return mockNarration(), nil
}

func (m *Mock) StartChat(ctx context.Context, pages []story.Page) (ChatSession, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return &mockChat{pages: pages}, nil
}

func (m *Mock) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(m.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return &RequestError{Op: "mock request", Err: ctx.Err()}
	case <-t.C:
		return nil
	}
}

type mockChat struct {
	pages []story.Page
	turns int
}

func (c *mockChat) SendMessage(ctx context.Context, message string) (string, error) {
	c.turns++
	return fmt.Sprintf("What a great question! This story has %d pages - keep reading and you'll find out. (turn %d)",
		len(c.pages), c.turns), nil
}

// mockNarration returns half a second of a soft 440 Hz tone in the fixed
// service format: 16-bit little-endian PCM, 24000 Hz, mono.
func mockNarration() string {
	const (
		sampleRate = 24000
		frames     = sampleRate / 2
	)
	data := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		v := int16(0.2 * 32767 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return base64.StdEncoding.EncodeToString(data)
}
