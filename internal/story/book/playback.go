package book

import (
	"sync"

	"github.com/sirupsen/logrus"

	"storyweaver/internal/story/audio"
)

// Status is the global playback state. There is exactly one value at a time.
type Status int

const (
	StatusStopped Status = iota
	StatusPlaying
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Player owns the single live output session. Every transition happens under
// one mutex, so navigation-triggered stops and manual toggles serialize.
type Player struct {
	mu      sync.Mutex
	out     audio.Output
	session audio.Session
	status  Status
	page    int
}

func NewPlayer(out audio.Output) *Player {
	return &Player{out: out, page: -1}
}

func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// PageIndex returns the page the live session is bound to, or -1 when
// stopped.
func (p *Player) PageIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// Play starts narrating the given page. A page without decoded audio is a
// no-op. Any prior session is fully torn down first, so two outputs never
// overlap.
func (p *Player) Play(index int, page PageState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if page.Audio == nil {
		return
	}
	p.stopLocked()

	sess, err := p.out.NewSession(page.Audio)
	if err != nil {
		logrus.WithField("page", index).WithError(err).Warn("failed to create audio session")
		return
	}

	sess.OnComplete(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		// A superseded session's callback, or one racing a deliberate
		// pause, must not tear down the current session.
		if p.session != sess || p.status == StatusPaused {
			return
		}
		p.stopLocked()
	})

	if err := sess.Start(); err != nil {
		logrus.WithField("page", index).WithError(err).Warn("failed to start narration")
		return
	}

	p.session = sess
	p.page = index
	p.status = StatusPlaying
}

// Stop is idempotent and safe to call whatever the current state.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.session != nil {
		// Disconnect the completion callback first so a natural finish
		// cannot race this stop.
		p.session.OnComplete(nil)
		if err := p.session.Stop(); err != nil {
			// Expected when the audio already drained on its own.
			logrus.WithError(err).Debug("stopping finished audio session")
		}
		p.session = nil
	}
	p.page = -1
	p.status = StatusStopped
}

// Pause suspends the live session. Ignored unless currently playing.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusPlaying || p.session == nil {
		return
	}
	if err := p.session.Suspend(); err != nil {
		logrus.WithError(err).Warn("failed to suspend narration")
		return
	}
	p.status = StatusPaused
}

// Resume continues a suspended session. Ignored unless currently paused.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusPaused || p.session == nil {
		return
	}
	if err := p.session.Resume(); err != nil {
		logrus.WithError(err).Warn("failed to resume narration")
		return
	}
	p.status = StatusPlaying
}
