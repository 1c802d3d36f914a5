package capture

import (
	"context"
	"sync"

	"translatorhub/internal/models"
	contextutils "translatorhub/internal/utils"
)

// remoteEventBuffer is how many undelivered events a remote session keeps
const remoteEventBuffer = 16

// ErrNoSpeechSession is returned when a push arrives with no session running
var ErrNoSpeechSession = contextutils.NewAppError(contextutils.ErrorCodeConflict, contextutils.SeverityWarn,
	"no speech session is running", "")

// RemoteRecognizer runs recognition somewhere else (the browser) and receives its
// results through Push. At most one session is active.
type RemoteRecognizer struct {
	mu      sync.Mutex
	current *RemoteSession
}

// NewRemoteRecognizer creates a push-fed recognizer
func NewRemoteRecognizer() *RemoteRecognizer {
	return &RemoteRecognizer{}
}

// Start opens a session; a running one is stopped first. The session also stops when ctx ends.
func (r *RemoteRecognizer) Start(ctx context.Context, languageHint models.LanguageCode) (SpeechSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.current.Stop()
	}

	session := &RemoteSession{
		language: languageHint,
		events:   make(chan SpeechEvent, remoteEventBuffer),
	}
	session.mu.Lock()
	session.stopCtx = context.AfterFunc(ctx, session.Stop)
	session.mu.Unlock()
	r.current = session
	return session, nil
}

// Push delivers a transcript to the running session
func (r *RemoteRecognizer) Push(transcript string, final bool) error {
	return r.send(SpeechEvent{Type: SpeechResult, Transcript: transcript, Final: final})
}

// PushError reports a recognition failure to the running session
func (r *RemoteRecognizer) PushError(err error) error {
	return r.send(SpeechEvent{Type: SpeechError, Err: err})
}

// End tells the running session the remote side stopped listening
func (r *RemoteRecognizer) End() error {
	r.mu.Lock()
	session := r.current
	r.current = nil
	r.mu.Unlock()

	if session == nil {
		return ErrNoSpeechSession
	}
	session.deliver(SpeechEvent{Type: SpeechEnd})
	session.Stop()
	return nil
}

// Active returns the running session, or nil
func (r *RemoteRecognizer) Active() *RemoteSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && r.current.Stopped() {
		r.current = nil
	}
	return r.current
}

func (r *RemoteRecognizer) send(ev SpeechEvent) error {
	session := r.Active()
	if session == nil {
		return ErrNoSpeechSession
	}
	if !session.deliver(ev) {
		return ErrNoSpeechSession
	}
	return nil
}

// RemoteSession is one push-fed recognition session
type RemoteSession struct {
	language models.LanguageCode
	stopCtx  func() bool

	mu      sync.Mutex
	events  chan SpeechEvent
	stopped bool
}

// Language is the hint the session was started with
func (s *RemoteSession) Language() models.LanguageCode {
	return s.language
}

// Events delivers pushed events until Stop
func (s *RemoteSession) Events() <-chan SpeechEvent {
	return s.events
}

// Stop closes the event stream. Safe to call repeatedly.
func (s *RemoteSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.events)
	if s.stopCtx != nil {
		s.stopCtx()
	}
}

// Stopped reports whether Stop has been called
func (s *RemoteSession) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// deliver never blocks. When the buffer is full the oldest event is dropped, since
// each result carries the whole transcript.
func (s *RemoteSession) deliver(ev SpeechEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	for {
		select {
		case s.events <- ev:
			return true
		default:
		}
		select {
		case <-s.events:
		default:
		}
	}
}
