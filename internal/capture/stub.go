package capture

import (
	"context"
	"sync"
	"time"

	"translatorhub/internal/media"
	"translatorhub/internal/models"
)

// StubRecognizerConfig configures the stub recognizer behavior
type StubRecognizerConfig struct {
	// Transcripts are emitted in order, each replacing the last
	Transcripts []string
	// Delay is the pause before each transcript
	Delay time.Duration
	// StartErr makes Start fail
	StartErr error
	// KeepOpen leaves the session running after the last transcript instead of ending it
	KeepOpen bool
}

// StubRecognizer emits scripted transcripts. It records the language of every Start.
type StubRecognizer struct {
	config StubRecognizerConfig

	mu        sync.Mutex
	languages []models.LanguageCode
}

// NewStubRecognizer creates a stub recognizer with the given config
func NewStubRecognizer(config StubRecognizerConfig) *StubRecognizer {
	return &StubRecognizer{config: config}
}

// Start runs the script in a new session
func (s *StubRecognizer) Start(ctx context.Context, languageHint models.LanguageCode) (SpeechSession, error) {
	if s.config.StartErr != nil {
		return nil, s.config.StartErr
	}

	s.mu.Lock()
	s.languages = append(s.languages, languageHint)
	s.mu.Unlock()

	session := &stubSession{
		events: make(chan SpeechEvent),
		stop:   make(chan struct{}),
	}
	go session.run(ctx, s.config)
	return session, nil
}

// Languages returns the hint passed to each Start, in order
func (s *StubRecognizer) Languages() []models.LanguageCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LanguageCode(nil), s.languages...)
}

type stubSession struct {
	events chan SpeechEvent
	stop   chan struct{}
	once   sync.Once
}

func (s *stubSession) Events() <-chan SpeechEvent { return s.events }

func (s *stubSession) Stop() { s.once.Do(func() { close(s.stop) }) }

func (s *stubSession) run(ctx context.Context, config StubRecognizerConfig) {
	defer close(s.events)

	send := func(ev SpeechEvent) bool {
		select {
		case s.events <- ev:
			return true
		case <-s.stop:
			return false
		case <-ctx.Done():
			return false
		}
	}

	for i, text := range config.Transcripts {
		if config.Delay > 0 {
			select {
			case <-time.After(config.Delay):
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
		if !send(SpeechEvent{Type: SpeechResult, Transcript: text, Final: i == len(config.Transcripts)-1}) {
			return
		}
	}

	if config.KeepOpen {
		select {
		case <-s.stop:
		case <-ctx.Done():
		}
		return
	}
	send(SpeechEvent{Type: SpeechEnd})
}

// StubRecorder returns a fixed payload from every Stop
type StubRecorder struct {
	Payload  media.Payload
	StartErr error
	StopErr  error

	mu     sync.Mutex
	starts int
	stops  int
}

// Start counts the call
func (r *StubRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	return r.StartErr
}

// Stop returns the configured payload
func (r *StubRecorder) Stop(ctx context.Context) (media.Payload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	if r.StopErr != nil {
		return media.Payload{}, r.StopErr
	}
	return r.Payload, nil
}

// Calls returns how many times Start and Stop ran
func (r *StubRecorder) Calls() (starts, stops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.stops
}
