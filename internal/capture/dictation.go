package capture

import (
	"context"
	"sync"

	"translatorhub/internal/models"
	"translatorhub/internal/observability"
	contextutils "translatorhub/internal/utils"
)

// Dictation keeps one speech session running and pushes each transcript to a sink.
// Every result replaces the previous transcript.
type Dictation struct {
	recognizer SpeechRecognizer
	sink       func(transcript string)
	logger     *observability.Logger

	// lifecycle serialises Start and Stop; it is held while waiting for a consumer to exit
	lifecycle sync.Mutex

	mu         sync.Mutex
	session    SpeechSession
	done       chan struct{}
	language   models.LanguageCode
	transcript string
	lastErr    error
}

// NewDictation creates a dictation feeding sink
func NewDictation(recognizer SpeechRecognizer, sink func(transcript string), logger *observability.Logger) *Dictation {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if sink == nil {
		sink = func(string) {}
	}
	return &Dictation{recognizer: recognizer, sink: sink, logger: logger}
}

// Start begins listening in language, replacing any running session
func (d *Dictation) Start(ctx context.Context, language models.LanguageCode) error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	if d.recognizer == nil {
		return contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityWarn,
			"speech recognition is not available", "")
	}

	d.stopLocked()

	session, err := d.recognizer.Start(ctx, language)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to start speech recognition in %s", language)
	}

	done := make(chan struct{})
	d.mu.Lock()
	d.session = session
	d.done = done
	d.language = language
	d.transcript = ""
	d.lastErr = nil
	d.mu.Unlock()

	go d.consume(session, done)

	d.logger.Debug(ctx, "Dictation started", map[string]interface{}{"language": language})
	return nil
}

// SetLanguage restarts a running session when the language changes
func (d *Dictation) SetLanguage(ctx context.Context, language models.LanguageCode) error {
	d.mu.Lock()
	restart := d.session != nil && d.language != language
	d.language = language
	d.mu.Unlock()

	if !restart {
		return nil
	}
	return d.Start(ctx, language)
}

// Stop ends the session. No transcript reaches the sink after Stop returns.
func (d *Dictation) Stop() {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	d.stopLocked()
}

func (d *Dictation) stopLocked() {
	d.mu.Lock()
	session, done := d.session, d.done
	d.session = nil
	d.done = nil
	d.mu.Unlock()

	if session == nil {
		return
	}
	session.Stop()
	<-done
}

// Listening reports whether a session is running
func (d *Dictation) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session != nil
}

// Language returns the recognition language of the current or next session
func (d *Dictation) Language() models.LanguageCode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.language
}

// Transcript returns the latest transcript
func (d *Dictation) Transcript() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transcript
}

// Err returns the last recognition error of the current or most recent session
func (d *Dictation) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Dictation) consume(session SpeechSession, done chan struct{}) {
	defer close(done)

	for ev := range session.Events() {
		switch ev.Type {
		case SpeechResult:
			if d.apply(session, func() { d.transcript = ev.Transcript }) {
				d.sink(ev.Transcript)
			}
		case SpeechError:
			d.apply(session, func() { d.lastErr = ev.Err })
			d.logger.Warn(context.Background(), "Speech recognition error", map[string]interface{}{
				"error": errString(ev.Err),
			})
		case SpeechEnd:
			// The recognizer ended on its own; keep draining until it closes Events
			d.apply(session, func() {
				d.session = nil
				d.done = nil
			})
		}
	}

	d.apply(session, func() {
		d.session = nil
		d.done = nil
	})
}

// apply runs fn under the state lock only while session is still current
func (d *Dictation) apply(session SpeechSession, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != session {
		return false
	}
	fn()
	return true
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
