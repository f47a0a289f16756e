package audio

// Output abstracts the audio backend so playback logic can be exercised
// against a fake in tests. The real implementation sits on top of the
// speaker package; see speaker.go.
type Output interface {
	// NewSession binds a decoded buffer to the output device. The session
	// is inert until Start is called.
	NewSession(buf *Buffer) (Session, error)
}

// Session is one bound instance of "this buffer currently owns the output
// device". At most one session is live at a time; the playback controller
// enforces that.
type Session interface {
	// Start begins playback from the top of the buffer.
	Start() error

	// Stop halts output and releases the device. Stopping a session whose
	// audio already finished naturally is not an error.
	Stop() error

	// Suspend pauses output, keeping the session alive for Resume.
	Suspend() error

	// Resume continues a suspended session.
	Resume() error

	// OnComplete registers fn to run when playback drains naturally.
	// Passing nil disconnects any previously registered callback. The
	// callback never fires after Stop.
	OnComplete(fn func())
}
