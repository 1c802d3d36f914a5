// Package models holds the domain types shared by the controller, backend clients and handlers.
package models

import (
	"errors"
	"fmt"
)

// LanguageCode is a short language tag such as "en", "si" or "zh-TW"
type LanguageCode string

func (c LanguageCode) String() string { return string(c) }

// Mode is the active input tab
type Mode string

// Input modes
const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
	ModeAudio Mode = "audio"
)

// Valid reports whether m is one of the known modes
func (m Mode) Valid() bool {
	switch m {
	case ModeText, ModeImage, ModeAudio:
		return true
	}
	return false
}

// Status is the lifecycle state of the controller's single request
type Status string

// Request statuses
const (
	StatusIdle      Status = "idle"
	StatusInFlight  Status = "in_flight"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrorKind classifies a failed request
type ErrorKind string

// Error kinds
const (
	ErrorKindValidation        ErrorKind = "validation_error"
	ErrorKindAlreadyInFlight   ErrorKind = "already_in_flight"
	ErrorKindServer            ErrorKind = "server_error"
	ErrorKindNoResponse        ErrorKind = "no_response"
	ErrorKindRequestSetup      ErrorKind = "request_setup_error"
	ErrorKindMalformedResponse ErrorKind = "malformed_response"
)

// User-visible messages
const (
	MsgEmptyText         = "Please enter some text to translate."
	MsgAlreadyInFlight   = "A translation is already in progress."
	MsgNoResponse        = "No response from server. Check backend."
	MsgMalformedResponse = "Unexpected response format from backend."
	MsgNoImage           = "Please select an image first."
	MsgNotAnImage        = "Please choose an image file."
	MsgNoRecording       = "Please record some audio first."
	MsgStillRecording    = "Stop the recording before translating."
	MsgNotAudio          = "Please choose an audio file."
)

// RequestError is the failure of a single request. It never escapes as a panic;
// the controller stores it and callers render UserMessage.
type RequestError struct {
	Kind ErrorKind
	// StatusCode is set for ErrorKindServer only
	StatusCode int
	// Message is the validation text or the setup failure detail
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	msg := e.UserMessage()
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *RequestError) Unwrap() error { return e.Cause }

// ErrorKind returns the kind as a plain string for span attributes
func (e *RequestError) ErrorKind() string { return string(e.Kind) }

// UserMessage is the string shown in the error area
func (e *RequestError) UserMessage() string {
	switch e.Kind {
	case ErrorKindServer:
		return fmt.Sprintf("Server error: %d", e.StatusCode)
	case ErrorKindNoResponse:
		return MsgNoResponse
	case ErrorKindRequestSetup:
		return fmt.Sprintf("Request error: %s", e.Message)
	case ErrorKindMalformedResponse:
		return MsgMalformedResponse
	case ErrorKindAlreadyInFlight:
		return MsgAlreadyInFlight
	default:
		return e.Message
	}
}

// NewValidationError reports a local precondition failure
func NewValidationError(message string) *RequestError {
	return &RequestError{Kind: ErrorKindValidation, Message: message}
}

// NewAlreadyInFlightError reports a submit rejected because a request is running
func NewAlreadyInFlightError() *RequestError {
	return &RequestError{Kind: ErrorKindAlreadyInFlight, Message: MsgAlreadyInFlight}
}

// NewServerError reports a non-2xx response
func NewServerError(statusCode int, cause error) *RequestError {
	return &RequestError{Kind: ErrorKindServer, StatusCode: statusCode, Cause: cause}
}

// NewNoResponseError reports a request that was sent but never answered
func NewNoResponseError(cause error) *RequestError {
	return &RequestError{Kind: ErrorKindNoResponse, Cause: cause}
}

// NewRequestSetupError reports a failure building or sending the request
func NewRequestSetupError(message string, cause error) *RequestError {
	return &RequestError{Kind: ErrorKindRequestSetup, Message: message, Cause: cause}
}

// NewMalformedResponseError reports a 2xx body without a string output
func NewMalformedResponseError(cause error) *RequestError {
	return &RequestError{Kind: ErrorKindMalformedResponse, Cause: cause}
}

// AsRequestError unwraps err to a *RequestError
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err is not a request failure
func KindOf(err error) ErrorKind {
	if reqErr, ok := AsRequestError(err); ok {
		return reqErr.Kind
	}
	return ""
}

// Attachment describes the image or audio payload currently held for submission
type Attachment struct {
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Snapshot is the render model of a controller at one instant
type Snapshot struct {
	Mode           Mode         `json:"mode"`
	SourceLanguage LanguageCode `json:"sourceLanguage"`
	TargetLanguage LanguageCode `json:"targetLanguage"`
	InputText      string       `json:"inputText"`
	Attachment     *Attachment  `json:"attachment,omitempty"`
	Status         Status       `json:"status"`
	IsLoading      bool         `json:"isLoading"`
	Result         *string      `json:"result"`
	ErrorKind      ErrorKind    `json:"errorKind,omitempty"`
	StatusCode     int          `json:"statusCode,omitempty"`
	ErrorMessage   string       `json:"errorMessage"`
	RevealedOutput string       `json:"revealedOutput"`
	RevealComplete bool         `json:"revealComplete"`
	Generation     uint64       `json:"generation"`
}
