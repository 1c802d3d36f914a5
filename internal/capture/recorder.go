package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"sync"

	"translatorhub/internal/media"
	"translatorhub/internal/models"
	contextutils "translatorhub/internal/utils"
)

// Recorder produces one audio blob per Start/Stop pair
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (media.Payload, error)
}

// State is the lifecycle of an AudioCapture
type State string

// Capture states
const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateFinished  State = "finished"
)

// AudioCapture tracks a recorder and holds the finished recording until it is submitted
type AudioCapture struct {
	recorder Recorder

	mu      sync.Mutex
	state   State
	payload media.Payload
}

// NewAudioCapture wraps recorder; a nil recorder allows only Load
func NewAudioCapture(recorder Recorder) *AudioCapture {
	return &AudioCapture{recorder: recorder, state: StateIdle}
}

// Start begins recording and discards any previous recording
func (a *AudioCapture) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recorder == nil {
		return contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityWarn,
			"audio recording is not available", "")
	}
	if a.state == StateRecording {
		return contextutils.NewAppError(contextutils.ErrorCodeConflict, contextutils.SeverityWarn,
			"already recording", "")
	}
	if err := a.recorder.Start(ctx); err != nil {
		return contextutils.WrapError(err, "failed to start recording")
	}
	a.state = StateRecording
	a.payload = media.Payload{}
	return nil
}

// Stop ends the recording and keeps the blob for submission
func (a *AudioCapture) Stop(ctx context.Context) (media.Payload, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateRecording {
		return media.Payload{}, contextutils.NewAppError(contextutils.ErrorCodeConflict, contextutils.SeverityWarn,
			"not recording", "")
	}
	payload, err := a.recorder.Stop(ctx)
	if err != nil {
		a.state = StateIdle
		return media.Payload{}, contextutils.WrapError(err, "failed to stop recording")
	}
	a.state = StateFinished
	a.payload = payload
	return payload, nil
}

// Load replaces the recording with an already encoded blob, such as an uploaded file
func (a *AudioCapture) Load(payload media.Payload) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateRecording && a.recorder != nil {
		_, _ = a.recorder.Stop(context.Background())
	}
	a.state = StateFinished
	a.payload = payload
}

// Finished returns the recording ready for submission
func (a *AudioCapture) Finished() (media.Payload, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.state == StateRecording:
		return media.Payload{}, models.NewValidationError(models.MsgStillRecording)
	case a.state != StateFinished || a.payload.Empty():
		return media.Payload{}, models.NewValidationError(models.MsgNoRecording)
	case !a.payload.IsAudio():
		return media.Payload{}, models.NewValidationError(models.MsgNotAudio)
	}
	return a.payload, nil
}

// State returns the current lifecycle state
func (a *AudioCapture) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Reset drops the recording. A running recording is stopped and discarded.
func (a *AudioCapture) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateRecording && a.recorder != nil {
		_, _ = a.recorder.Stop(context.Background())
	}
	a.state = StateIdle
	a.payload = media.Payload{}
}

// ChunkRecorder assembles a recording from chunks pushed by a remote MediaRecorder
type ChunkRecorder struct {
	name string

	mu        sync.Mutex
	buf       bytes.Buffer
	recording bool
	maxBytes  int64
}

// NewChunkRecorder creates a recorder that refuses recordings larger than maxBytes
func NewChunkRecorder(name string, maxBytes int64) *ChunkRecorder {
	return &ChunkRecorder{name: name, maxBytes: maxBytes}
}

// Start clears the buffer
func (r *ChunkRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.Reset()
	r.recording = true
	return nil
}

// Append adds one chunk, given as a data URI or bare base64
func (r *ChunkRecorder) Append(chunk string) error {
	raw, err := base64.StdEncoding.DecodeString(media.StripDataURI(chunk))
	if err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityWarn,
			"audio chunk is not valid base64", "", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return contextutils.NewAppError(contextutils.ErrorCodeConflict, contextutils.SeverityWarn, "not recording", "")
	}
	if r.maxBytes > 0 && int64(r.buf.Len()+len(raw)) > r.maxBytes {
		return contextutils.ErrPayloadTooLarge
	}
	r.buf.Write(raw)
	return nil
}

// Stop returns the assembled recording
func (r *ChunkRecorder) Stop(ctx context.Context) (media.Payload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	data := append([]byte(nil), r.buf.Bytes()...)
	r.buf.Reset()
	return media.EncodeBytes(r.name, data), nil
}
