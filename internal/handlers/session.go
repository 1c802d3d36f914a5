package handlers

import (
	"context"
	"encoding/json"
	"time"

	"translatorhub/internal/capture"
	"translatorhub/internal/config"
	"translatorhub/internal/controller"
	"translatorhub/internal/media"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"
	contextutils "translatorhub/internal/utils"

	"github.com/gorilla/websocket"
)

const sessionOutboxSize = 16

// hubSession binds one websocket connection to its own controller and capture bridges.
// readPump is the only goroutine that calls into the controller on behalf of the browser;
// writePump is the only one that writes to the connection.
type hubSession struct {
	id         string
	conn       *websocket.Conn
	ctrl       *controller.Controller
	speech     *capture.RemoteRecognizer
	dictation  *capture.Dictation
	chunks     *capture.ChunkRecorder
	audio      *capture.AudioCapture
	logger     *observability.Logger
	maxMessage int64

	// image is the last uploaded image, resubmitted by translate in image mode
	image media.Payload

	outbox  chan ServerMessage
	refresh chan struct{}
}

func newHubSession(id string, conn *websocket.Conn, ctrl *controller.Controller, cfg *config.Config, logger *observability.Logger) *hubSession {
	logger = logger.With(map[string]interface{}{"session_id": id})
	speech := capture.NewRemoteRecognizer()
	chunks := capture.NewChunkRecorder("recording", cfg.Uploads.MaxAudioBytes)

	return &hubSession{
		id:         id,
		conn:       conn,
		ctrl:       ctrl,
		speech:     speech,
		dictation:  capture.NewDictation(speech, ctrl.SetInput, logger),
		chunks:     chunks,
		audio:      capture.NewAudioCapture(chunks),
		logger:     logger,
		maxMessage: cfg.Server.MaxMessageBytes,
		outbox:     make(chan ServerMessage, sessionOutboxSize),
		refresh:    make(chan struct{}, 1),
	}
}

// run serves the connection until the browser goes away or ctx ends
func (s *hubSession) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		s.writePump(ctx, updates)
	}()

	s.readPump(ctx)
	cancel()
	<-writeDone

	s.dictation.Stop()
	s.audio.Reset()
	s.ctrl.Close()
	_ = s.conn.Close()
}

func (s *hubSession) readPump(ctx context.Context) {
	if s.maxMessage > 0 {
		s.conn.SetReadLimit(s.maxMessage)
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(config.WebsocketPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(config.WebsocketPongWait))
	})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn(ctx, "Hub connection closed unexpectedly", map[string]interface{}{"error": err.Error()})
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(config.WebsocketPongWait))

		if msgType != websocket.TextMessage {
			s.sendError(ctx, contextutils.NewAppError(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityWarn,
				"Invalid message format", "binary frames are not supported"))
			continue
		}

		msg, err := ParseClientMessage(data)
		if err != nil {
			s.sendError(ctx, err)
			continue
		}
		if err := s.handle(ctx, msg); err != nil {
			s.sendError(ctx, err)
		}
	}
}

// handle applies one command. A returned error is reported to the browser only;
// request failures are also visible in the next state snapshot.
func (s *hubSession) handle(ctx context.Context, msg ClientMessage) error {
	switch msg.Type {
	case MsgSetMode:
		mode := models.Mode(msg.Mode)
		changed := s.ctrl.Snapshot().Mode != mode
		if err := s.ctrl.SetMode(mode); err != nil {
			return err
		}
		if changed {
			// The controller dropped its attachment, so drop the media behind it too
			s.image = media.Payload{}
			s.audio.Reset()
			s.nudge()
		}
		return nil

	case MsgSetInput:
		s.ctrl.SetInput(msg.Text)
		return nil

	case MsgSetLanguages:
		if err := s.ctrl.SetLanguages(models.LanguageCode(msg.Source), models.LanguageCode(msg.Target)); err != nil {
			return err
		}
		return s.followSourceLanguage(ctx)

	case MsgSwapLanguages:
		s.ctrl.SwapLanguages()
		return s.followSourceLanguage(ctx)

	case MsgTranslate:
		return s.translate(ctx, msg)

	case MsgSubmitImage:
		payload, err := media.FromDataURI(msg.Name, msg.DataURI)
		if err != nil {
			return err
		}
		s.image = payload
		return s.ctrl.SubmitImage(ctx, payload)

	case MsgSubmitAudio:
		if msg.DataURI != "" {
			payload, err := media.FromDataURI(msg.Name, msg.DataURI)
			if err != nil {
				return err
			}
			s.audio.Load(payload)
		}
		snap := s.ctrl.Snapshot()
		return s.submitAudio(ctx, pick(msg.Source, snap.SourceLanguage), pick(msg.Target, snap.TargetLanguage))

	case MsgRecordStart:
		defer s.nudge()
		return s.audio.Start(ctx)

	case MsgRecordChunk:
		return s.chunks.Append(msg.Chunk)

	case MsgRecordStop:
		defer s.nudge()
		_, err := s.audio.Stop(ctx)
		return err

	case MsgCancel:
		s.ctrl.CancelInFlight()
		return nil

	case MsgReset:
		s.image = media.Payload{}
		s.audio.Reset()
		s.ctrl.Reset()
		return nil

	case MsgSpeechStart:
		defer s.nudge()
		return s.dictation.Start(ctx, s.ctrl.Snapshot().SourceLanguage)

	case MsgSpeechResult:
		return s.speech.Push(msg.Transcript, msg.Final)

	case MsgSpeechStop:
		defer s.nudge()
		s.dictation.Stop()
		return nil
	}

	return contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
		"Unknown message type", msg.Type)
}

// translate submits whatever the active tab holds
func (s *hubSession) translate(ctx context.Context, msg ClientMessage) error {
	snap := s.ctrl.Snapshot()
	source := pick(msg.Source, snap.SourceLanguage)
	target := pick(msg.Target, snap.TargetLanguage)

	switch snap.Mode {
	case models.ModeImage:
		return s.ctrl.SubmitImage(ctx, s.image)
	case models.ModeAudio:
		return s.submitAudio(ctx, source, target)
	default:
		text := msg.Text
		if text == "" {
			text = snap.InputText
		}
		return s.ctrl.SubmitText(ctx, text, source, target)
	}
}

func (s *hubSession) submitAudio(ctx context.Context, source, target models.LanguageCode) error {
	payload, err := s.audio.Finished()
	if err != nil {
		// Recording problems go through the controller so the failure shows in state
		if reqErr, ok := models.AsRequestError(err); ok {
			return s.ctrl.Reject(ctx, models.ModeAudio, reqErr)
		}
		return err
	}
	return s.ctrl.SubmitAudio(ctx, payload, source, target)
}

// followSourceLanguage restarts a running dictation in the new source language
func (s *hubSession) followSourceLanguage(ctx context.Context) error {
	if !s.dictation.Listening() {
		return nil
	}
	return s.dictation.SetLanguage(ctx, s.ctrl.Snapshot().SourceLanguage)
}

func (s *hubSession) writePump(ctx context.Context, updates <-chan models.Snapshot) {
	ticker := time.NewTicker(config.WebsocketPingPeriod)
	defer ticker.Stop()

	for {
		var msg ServerMessage
		select {
		case <-ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(config.WebsocketWriteWait))
			_ = s.conn.Close()
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			msg = s.stateMessage(snap)
		case <-s.refresh:
			msg = s.stateMessage(s.ctrl.Snapshot())
		case msg = <-s.outbox:
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(config.WebsocketWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.conn.Close()
				return
			}
			continue
		}

		if err := s.write(msg); err != nil {
			s.logger.Warn(ctx, "Failed to write hub message", map[string]interface{}{
				"error":        err.Error(),
				"message_type": msg.Type,
			})
			// Closing unblocks readPump
			_ = s.conn.Close()
			return
		}
	}
}

func (s *hubSession) write(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return contextutils.WrapError(err, "failed to encode hub message")
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(config.WebsocketWriteWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *hubSession) stateMessage(snap models.Snapshot) ServerMessage {
	return ServerMessage{
		Type:  MsgState,
		State: &snap,
		Capture: &CaptureState{
			Listening:  s.dictation.Listening(),
			Recording:  s.audio.State() == capture.StateRecording,
			Transcript: s.dictation.Transcript(),
		},
	}
}

func (s *hubSession) sendError(ctx context.Context, err error) {
	msg := ServerMessage{Type: MsgError, Error: errorPayload(err)}
	select {
	case s.outbox <- msg:
	default:
		s.logger.Warn(ctx, "Dropping hub error message, outbox full", map[string]interface{}{"error": err.Error()})
	}
}

// nudge asks the writer for a fresh state frame after a capture change
func (s *hubSession) nudge() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func pick(value string, fallback models.LanguageCode) models.LanguageCode {
	if value == "" {
		return fallback
	}
	return models.LanguageCode(value)
}
