package audio

import (
	"fmt"
	"sync"
)

// MockOutput - fake backend recording every session it hands out, for tests
// and for running without an audio device.
type MockOutput struct {
	mu       sync.Mutex
	sessions []*MockSession
}

func NewMockOutput() *MockOutput {
	return &MockOutput{}
}

func (o *MockOutput) NewSession(buf *Buffer) (Session, error) {
	if buf == nil || buf.Len() == 0 {
		return nil, fmt.Errorf("cannot create a session for an empty buffer")
	}
	s := &MockSession{Buf: buf}
	o.mu.Lock()
	o.sessions = append(o.sessions, s)
	o.mu.Unlock()
	return s, nil
}

// Sessions returns every session created so far, oldest first.
func (o *MockOutput) Sessions() []*MockSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*MockSession, len(o.sessions))
	copy(out, o.sessions)
	return out
}

// Live returns the most recent session that has been started but not
// stopped, or nil.
func (o *MockOutput) Live() *MockSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sessions) - 1; i >= 0; i-- {
		if o.sessions[i].Started() && !o.sessions[i].StoppedOnce() {
			return o.sessions[i]
		}
	}
	return nil
}

type MockSession struct {
	mu        sync.Mutex
	Buf       *Buffer
	started   bool
	stopped   bool
	suspended bool
	stopCount int
	complete  func()
}

func (s *MockSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("session already stopped")
	}
	s.started = true
	return nil
}

func (s *MockSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.suspended = false
	s.stopCount++
	return nil
}

func (s *MockSession) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = true
	return nil
}

func (s *MockSession) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
	return nil
}

func (s *MockSession) OnComplete(fn func()) {
	s.mu.Lock()
	s.complete = fn
	s.mu.Unlock()
}

// Finish simulates the audio draining naturally, invoking the completion
// callback if one is still connected.
func (s *MockSession) Finish() {
	s.mu.Lock()
	fn := s.complete
	stopped := s.stopped
	s.mu.Unlock()
	if fn != nil && !stopped {
		fn()
	}
}

func (s *MockSession) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *MockSession) StoppedOnce() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *MockSession) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// StopCalls reports how many times Stop has been invoked.
func (s *MockSession) StopCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCount
}

// HasCompletion reports whether a completion callback is still connected.
func (s *MockSession) HasCompletion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete != nil
}
