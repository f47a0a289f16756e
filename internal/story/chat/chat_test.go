package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"storyweaver/internal/domain/story"
	"storyweaver/internal/domain/story/generator"
	"storyweaver/internal/story/chat"
)

type fakeChatService struct {
	mu         sync.Mutex
	startCalls int
	startErr   error
	sessions   []*fakeSession
}

func (f *fakeChatService) StartChat(ctx context.Context, pages []story.Page) (generator.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return nil, f.startErr
	}
	s := &fakeSession{}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeChatService) GenerateStory(ctx context.Context, premise string) ([]story.Page, error) {
	return nil, errors.New("not used")
}

func (f *fakeChatService) GenerateStoryIdea(ctx context.Context) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeChatService) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeChatService) GenerateSpeech(ctx context.Context, text string) (string, error) {
	return "", errors.New("not used")
}

type fakeSession struct {
	mu    sync.Mutex
	turns int
}

func (s *fakeSession) SendMessage(ctx context.Context, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns++
	return fmt.Sprintf("reply %d to %q", s.turns, message), nil
}

func storyPages() []story.Page {
	return []story.Page{{Text: "A"}, {Text: "B"}}
}

func TestCompanionReusesOneSession(t *testing.T) {
	t.Parallel()

	svc := &fakeChatService{}
	companion := chat.NewCompanion(svc, storyPages())
	ctx := context.Background()

	first, err := companion.Ask(ctx, "who is the hero?")
	require.NoError(t, err)
	require.Contains(t, first, "reply 1")

	second, err := companion.Ask(ctx, "what happens next?")
	require.NoError(t, err)
	require.Contains(t, second, "reply 2")

	require.Equal(t, 1, svc.startCalls, "one conversation for the whole story")
}

func TestCompanionResetStartsFresh(t *testing.T) {
	t.Parallel()

	svc := &fakeChatService{}
	companion := chat.NewCompanion(svc, storyPages())
	ctx := context.Background()

	_, err := companion.Ask(ctx, "first question")
	require.NoError(t, err)

	companion.Reset()

	reply, err := companion.Ask(ctx, "after reset")
	require.NoError(t, err)
	require.Contains(t, reply, "reply 1", "new session starts its own conversation")
	require.Equal(t, 2, svc.startCalls)
}

func TestCompanionFailureLeavesItUsable(t *testing.T) {
	t.Parallel()

	svc := &fakeChatService{startErr: &generator.RequestError{Op: "start chat", Err: errors.New("quota")}}
	companion := chat.NewCompanion(svc, storyPages())
	ctx := context.Background()

	_, err := companion.Ask(ctx, "hello?")
	require.Error(t, err)

	// The next ask retries from scratch once the backend recovers.
	svc.mu.Lock()
	svc.startErr = nil
	svc.mu.Unlock()

	reply, err := companion.Ask(ctx, "hello again?")
	require.NoError(t, err)
	require.Contains(t, reply, "reply 1")
	require.Equal(t, 2, svc.startCalls)
}
