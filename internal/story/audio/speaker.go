package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// SpeakerOutput plays decoded buffers through the machine's default audio
// device via the beep speaker.
type SpeakerOutput struct{}

func NewSpeakerOutput() *SpeakerOutput {
	return &SpeakerOutput{}
}

func (o *SpeakerOutput) NewSession(buf *Buffer) (Session, error) {
	if buf == nil || buf.Len() == 0 {
		return nil, fmt.Errorf("cannot create a session for an empty buffer")
	}
	return &speakerSession{buf: buf}, nil
}

type speakerSession struct {
	mu       sync.Mutex
	buf      *Buffer
	ctrl     *beep.Ctrl
	stopped  bool
	complete func()
}

func (s *speakerSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("session already stopped")
	}

	rate := beep.SampleRate(s.buf.SampleRate)
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to open speaker: %w", err)
	}

	s.ctrl = &beep.Ctrl{Streamer: &bufferStreamer{buf: s.buf}, Paused: false}
	speaker.Play(beep.Seq(s.ctrl, beep.Callback(s.drained)))
	return nil
}

// drained runs inside the speaker's mixing goroutine, so the registered
// callback is dispatched on its own goroutine; calling back into the speaker
// from here would deadlock.
func (s *speakerSession) drained() {
	s.mu.Lock()
	fn := s.complete
	s.mu.Unlock()
	if fn != nil {
		go fn()
	}
}

func (s *speakerSession) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.complete = nil
	started := s.ctrl != nil
	s.mu.Unlock()

	// Clearing an already-drained queue is harmless, which gives us
	// "already finished" tolerance for free.
	if started {
		speaker.Clear()
	}
	return nil
}

func (s *speakerSession) Suspend() error {
	s.mu.Lock()
	ctrl := s.ctrl
	s.mu.Unlock()
	if ctrl == nil {
		return nil
	}
	speaker.Lock()
	ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (s *speakerSession) Resume() error {
	s.mu.Lock()
	ctrl := s.ctrl
	s.mu.Unlock()
	if ctrl == nil {
		return nil
	}
	speaker.Lock()
	ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (s *speakerSession) OnComplete(fn func()) {
	s.mu.Lock()
	s.complete = fn
	s.mu.Unlock()
}

// bufferStreamer adapts a decoded Buffer to the beep streamer contract.
// Mono buffers are mirrored to both speaker channels.
type bufferStreamer struct {
	buf *Buffer
	pos int
}

func (bs *bufferStreamer) Stream(samples [][2]float64) (int, bool) {
	if bs.pos >= bs.buf.Len() {
		return 0, false
	}
	n := 0
	for i := range samples {
		if bs.pos >= bs.buf.Len() {
			break
		}
		left := bs.buf.Samples[0][bs.pos]
		right := left
		if bs.buf.NumChannels > 1 {
			right = bs.buf.Samples[1][bs.pos]
		}
		samples[i][0] = left
		samples[i][1] = right
		bs.pos++
		n++
	}
	return n, true
}

func (bs *bufferStreamer) Err() error {
	return nil
}
