package book_test

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storyweaver/internal/domain/story"
	"storyweaver/internal/domain/story/generator"
	"storyweaver/internal/story/book"
)

// fakeService is a controllable gateway for pipeline tests.
type fakeService struct {
	mu          sync.Mutex
	imageCalls  map[string]int
	speechCalls map[string]int

	imageFn  func(ctx context.Context, prompt string) (string, error)
	speechFn func(ctx context.Context, text string) (string, error)
}

func newFakeService() *fakeService {
	return &fakeService{
		imageCalls:  map[string]int{},
		speechCalls: map[string]int{},
		imageFn: func(ctx context.Context, prompt string) (string, error) {
			return "url://" + prompt, nil
		},
		speechFn: func(ctx context.Context, text string) (string, error) {
			return pcmPayload(), nil
		},
	}
}

// pcmPayload is a minimal valid narration payload: two mono frames.
func pcmPayload() string {
	return base64.StdEncoding.EncodeToString([]byte{0x00, 0x10, 0x00, 0xf0})
}

func (f *fakeService) GenerateImage(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.imageCalls[prompt]++
	f.mu.Unlock()
	return f.imageFn(ctx, prompt)
}

func (f *fakeService) GenerateSpeech(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	f.speechCalls[text]++
	f.mu.Unlock()
	return f.speechFn(ctx, text)
}

func (f *fakeService) GenerateStory(ctx context.Context, premise string) ([]story.Page, error) {
	return nil, errors.New("not used in pipeline tests")
}

func (f *fakeService) GenerateStoryIdea(ctx context.Context) (string, error) {
	return "", errors.New("not used in pipeline tests")
}

func (f *fakeService) StartChat(ctx context.Context, pages []story.Page) (generator.ChatSession, error) {
	return nil, errors.New("not used in pipeline tests")
}

func (f *fakeService) imageCount(prompt string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageCalls[prompt]
}

func (f *fakeService) speechCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.speechCalls[text]
}

func runPipeline(t *testing.T, svc generator.Service, store *book.Store, onAudio func(int)) {
	t.Helper()
	p := book.NewPrefetcher(svc, store, time.Microsecond, 4, onAudio)
	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}
}

func TestPrefetchPopulatesEveryPage(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	store := book.NewStore(twoPageStory())

	var readyMu sync.Mutex
	var ready []int
	runPipeline(t, svc, store, func(i int) {
		readyMu.Lock()
		ready = append(ready, i)
		readyMu.Unlock()
	})

	for i := 0; i < store.Len(); i++ {
		page, err := store.Page(i)
		require.NoError(t, err)
		require.NotEmpty(t, page.ImageURL)
		require.NotNil(t, page.Audio)
		require.NotEmpty(t, page.RawAudio)
		require.False(t, page.ImageLoading)
		require.False(t, page.AudioLoading)
		require.False(t, page.ImageErr)
		require.False(t, page.AudioErr)
	}

	readyMu.Lock()
	defer readyMu.Unlock()
	require.ElementsMatch(t, []int{0, 1}, ready)
}

func TestPrefetchOutOfOrderCompletion(t *testing.T) {
	t.Parallel()

	gates := map[string]chan struct{}{
		"image:p1": make(chan struct{}),
		"image:p2": make(chan struct{}),
		"audio:A":  make(chan struct{}),
		"audio:B":  make(chan struct{}),
	}

	svc := newFakeService()
	svc.imageFn = func(ctx context.Context, prompt string) (string, error) {
		<-gates["image:"+prompt]
		return "url://" + prompt, nil
	}
	svc.speechFn = func(ctx context.Context, text string) (string, error) {
		<-gates["audio:"+text]
		return pcmPayload(), nil
	}

	store := book.NewStore(twoPageStory())
	p := book.NewPrefetcher(svc, store, time.Microsecond, 4, nil)
	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	// Resolve page 0's image, then page 1's audio, then page 0's audio,
	// then page 1's image.
	close(gates["image:p1"])
	close(gates["audio:B"])
	close(gates["audio:A"])
	close(gates["image:p2"])

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}

	page0, err := store.Page(0)
	require.NoError(t, err)
	page1, err := store.Page(1)
	require.NoError(t, err)

	// No cross-page field corruption, whatever order completions landed.
	require.Equal(t, "A", page0.Text)
	require.Equal(t, "url://p1", page0.ImageURL)
	require.NotNil(t, page0.Audio)
	require.Equal(t, "B", page1.Text)
	require.Equal(t, "url://p2", page1.ImageURL)
	require.NotNil(t, page1.Audio)
}

func TestPrefetchErrorsAreStickyAndNotRetried(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	svc.imageFn = func(ctx context.Context, prompt string) (string, error) {
		return "", &generator.RequestError{Op: "generate image", Err: errors.New("quota exceeded")}
	}

	store := book.NewStore(twoPageStory())
	runPipeline(t, svc, store, nil)

	page0, err := store.Page(0)
	require.NoError(t, err)
	require.True(t, page0.ImageErr)
	require.Empty(t, page0.ImageURL)
	require.False(t, page0.ImageLoading)
	// Audio is independent of the failed image fetch.
	require.NotNil(t, page0.Audio)

	require.Equal(t, 1, svc.imageCount("p1"))

	// A second pass must skip the failed pages instead of retrying them.
	runPipeline(t, svc, store, nil)
	require.Equal(t, 1, svc.imageCount("p1"))
	require.Equal(t, 1, svc.speechCount("A"))
}

func TestPrefetchMalformedAudioIsContained(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	svc.speechFn = func(ctx context.Context, text string) (string, error) {
		if text == "A" {
			return "!!! not base64 !!!", nil
		}
		return pcmPayload(), nil
	}

	store := book.NewStore(twoPageStory())
	var fired []int
	var mu sync.Mutex
	runPipeline(t, svc, store, func(i int) {
		mu.Lock()
		fired = append(fired, i)
		mu.Unlock()
	})

	page0, err := store.Page(0)
	require.NoError(t, err)
	require.True(t, page0.AudioErr)
	require.Nil(t, page0.Audio)
	require.False(t, page0.AudioLoading)

	page1, err := store.Page(1)
	require.NoError(t, err)
	require.NotNil(t, page1.Audio)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1}, fired, "ready hook must fire only for decodable pages")
}

func TestPrefetchSkipsAbsentAssets(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	store := book.NewStore([]story.Page{
		{Text: "words only"},
		{ImagePrompt: "picture only"},
	})
	runPipeline(t, svc, store, nil)

	require.Equal(t, 0, svc.imageCount(""))
	require.Equal(t, 0, svc.speechCount(""))
	require.Equal(t, 1, svc.speechCount("words only"))
	require.Equal(t, 1, svc.imageCount("picture only"))

	page0, err := store.Page(0)
	require.NoError(t, err)
	require.Empty(t, page0.ImageURL)
	require.False(t, page0.ImageErr)

	page1, err := store.Page(1)
	require.NoError(t, err)
	require.Nil(t, page1.Audio)
	require.False(t, page1.AudioErr)
}

func TestPrefetchLoadingFlagLifecycle(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	svc := newFakeService()
	svc.speechFn = func(ctx context.Context, text string) (string, error) {
		<-release
		return pcmPayload(), nil
	}

	store := book.NewStore([]story.Page{{Text: "slow page"}})
	p := book.NewPrefetcher(svc, store, time.Microsecond, 4, nil)
	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		page, err := store.Page(0)
		return err == nil && page.AudioLoading
	}, 5*time.Second, time.Millisecond, "loading flag must be raised while the fetch is in flight")

	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}

	page, err := store.Page(0)
	require.NoError(t, err)
	require.False(t, page.AudioLoading)
	require.NotNil(t, page.Audio)
}
