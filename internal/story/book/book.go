package book

import (
	"sync"

	"storyweaver/internal/domain/story"
	"storyweaver/internal/story/audio"
)

// Book is the storybook viewer model: the per-page asset store, the playback
// controller, the current page index, and the single-shot autoplay intent
// that couples page turns to narration.
type Book struct {
	mu       sync.Mutex
	store    *Store
	player   *Player
	current  int
	autoplay bool
}

// New builds a viewer over freshly generated pages. A new story arms
// autoplay for its first page, so narration starts as soon as page 0's audio
// is ready, same as advancing to any later page.
func New(pages []story.Page, out audio.Output) *Book {
	return &Book{
		store:    NewStore(pages),
		player:   NewPlayer(out),
		autoplay: true,
	}
}

func (b *Book) Store() *Store {
	return b.store
}

func (b *Book) Len() int {
	return b.store.Len()
}

func (b *Book) CurrentIndex() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// CurrentPage returns a snapshot of the displayed page.
func (b *Book) CurrentPage() PageState {
	b.mu.Lock()
	i := b.current
	b.mu.Unlock()
	page, _ := b.store.Page(i)
	return page
}

func (b *Book) Status() Status {
	return b.player.Status()
}

// Next stops any narration, advances one page and arms autoplay: turning the
// page forward implies "keep listening". Returns false on the last page.
// It never waits on pending fetches; the destination page may still be
// loading.
func (b *Book) Next() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current >= b.store.Len()-1 {
		return false
	}
	b.player.Stop()
	b.current++
	b.autoplay = true
	b.playIfArmedLocked()
	return true
}

// Previous stops any narration and moves back one page with autoplay
// deliberately disarmed: going back is a re-read, not a listen request.
// Returns false on the first page.
func (b *Book) Previous() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current <= 0 {
		return false
	}
	b.player.Stop()
	b.current--
	b.autoplay = false
	return true
}

// Toggle is the manual play control: stopped plays the current page, playing
// pauses, paused resumes. Manual action always overrides a pending autoplay.
func (b *Book) Toggle() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoplay = false
	switch b.player.Status() {
	case StatusPlaying:
		b.player.Pause()
	case StatusPaused:
		b.player.Resume()
	default:
		page, err := b.store.Page(b.current)
		if err == nil {
			b.player.Play(b.current, page)
		}
	}
}

// AudioReady is the prefetch pipeline's completion hook. If the page that
// just became ready is the one on display and autoplay is armed, narration
// starts and the intent is consumed; a duplicate event cannot fire it again.
func (b *Book) AudioReady(index int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index != b.current {
		return
	}
	b.playIfArmedLocked()
}

func (b *Book) playIfArmedLocked() {
	if !b.autoplay {
		return
	}
	page, err := b.store.Page(b.current)
	if err != nil || page.Audio == nil {
		return
	}
	b.autoplay = false
	b.player.Play(b.current, page)
}

// Reset tears down any live playback session. The owner discards the store
// and pipeline with the Book itself.
func (b *Book) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoplay = false
	b.player.Stop()
}
