package handlers

import (
	"encoding/json"

	"translatorhub/internal/models"
	contextutils "translatorhub/internal/utils"
)

// Client message types
const (
	MsgSetMode       = "set_mode"
	MsgSetInput      = "set_input"
	MsgSetLanguages  = "set_languages"
	MsgSwapLanguages = "swap_languages"
	MsgTranslate     = "translate"
	MsgSubmitImage   = "submit_image"
	MsgSubmitAudio   = "submit_audio"
	MsgRecordStart   = "record_start"
	MsgRecordChunk   = "record_chunk"
	MsgRecordStop    = "record_stop"
	MsgCancel        = "cancel"
	MsgReset         = "reset"
	MsgSpeechStart   = "speech_start"
	MsgSpeechResult  = "speech_result"
	MsgSpeechStop    = "speech_stop"
)

// Server message types
const (
	MsgState = "state"
	MsgError = "error"
)

// ClientMessage is one command from the browser. Fields not used by Type are ignored.
type ClientMessage struct {
	Type       string `json:"type" validate:"required,oneof=set_mode set_input set_languages swap_languages translate submit_image submit_audio record_start record_chunk record_stop cancel reset speech_start speech_result speech_stop"`
	Mode       string `json:"mode,omitempty" validate:"required_if=Type set_mode"`
	Text       string `json:"text,omitempty"`
	Source     string `json:"source,omitempty" validate:"required_if=Type set_languages"`
	Target     string `json:"target,omitempty" validate:"required_if=Type set_languages"`
	DataURI    string `json:"dataUri,omitempty" validate:"required_if=Type submit_image"`
	Name       string `json:"name,omitempty" validate:"max=255"`
	Chunk      string `json:"chunk,omitempty" validate:"required_if=Type record_chunk"`
	Transcript string `json:"transcript,omitempty"`
	Final      bool   `json:"final,omitempty"`
}

// CaptureState reports the speech and recording bridges alongside the controller snapshot
type CaptureState struct {
	Listening  bool   `json:"listening"`
	Recording  bool   `json:"recording"`
	Transcript string `json:"transcript,omitempty"`
}

// ServerMessage is one frame sent to the browser
type ServerMessage struct {
	Type    string                 `json:"type"`
	State   *models.Snapshot       `json:"state,omitempty"`
	Capture *CaptureState          `json:"capture,omitempty"`
	Error   map[string]interface{} `json:"error,omitempty"`
}

// ParseClientMessage decodes and validates one websocket text frame
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityWarn,
			"Invalid message format", err.Error(), err)
	}
	if err := contextutils.ValidateStruct(msg); err != nil {
		return ClientMessage{}, err
	}
	return msg, nil
}
