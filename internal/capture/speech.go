// Package capture bridges callback-driven host capabilities (speech recognition and
// audio recording) into plain Go events the controller can consume.
package capture

import (
	"context"

	"translatorhub/internal/models"
)

// SpeechEventType tags a SpeechEvent
type SpeechEventType string

// Speech event types
const (
	SpeechResult SpeechEventType = "result"
	SpeechError  SpeechEventType = "error"
	SpeechEnd    SpeechEventType = "end"
)

// SpeechEvent is one notification from a recognition session
type SpeechEvent struct {
	Type SpeechEventType
	// Transcript is the whole current transcript, not a delta
	Transcript string
	Final      bool
	Err        error
}

// SpeechSession is a running recognition. Events closes after Stop or when the
// recognizer ends the session on its own.
type SpeechSession interface {
	Events() <-chan SpeechEvent
	Stop()
}

// SpeechRecognizer starts continuous recognition sessions
type SpeechRecognizer interface {
	Start(ctx context.Context, languageHint models.LanguageCode) (SpeechSession, error)
}
