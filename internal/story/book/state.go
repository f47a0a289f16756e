package book

import (
	"fmt"
	"sync"

	"storyweaver/internal/domain/story"
	"storyweaver/internal/story/audio"
)

// PageState tracks everything fetched so far for one story page. Text and
// ImagePrompt are copied from the generated page and never change. Assets
// are set at most once: a page never goes from a ready asset back to loading
// or error for that asset kind, and error flags are sticky for the life of
// the story.
type PageState struct {
	Text        string
	ImagePrompt string

	ImageURL string
	RawAudio []byte
	Audio    *audio.Buffer

	ImageLoading bool
	AudioLoading bool
	ImageErr     bool
	AudioErr     bool
}

// Store holds one PageState per story page, index-aligned with the story.
// Updates replace the record at an index atomically; readers always see a
// fully-applied record.
type Store struct {
	mu    sync.RWMutex
	pages []PageState
}

func NewStore(pages []story.Page) *Store {
	states := make([]PageState, len(pages))
	for i, p := range pages {
		states[i] = PageState{Text: p.Text, ImagePrompt: p.ImagePrompt}
	}
	return &Store{pages: states}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Page returns a copy of the record at index i.
func (s *Store) Page(i int) (PageState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.pages) {
		return PageState{}, fmt.Errorf("page index %d out of range [0,%d)", i, len(s.pages))
	}
	return s.pages[i], nil
}

// Update applies mutate to the record at index i under the write lock.
// Other indices and untouched fields are left as they were; invariant
// maintenance is the caller's responsibility.
func (s *Store) Update(i int, mutate func(*PageState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.pages) {
		return fmt.Errorf("page index %d out of range [0,%d)", i, len(s.pages))
	}
	mutate(&s.pages[i])
	return nil
}
