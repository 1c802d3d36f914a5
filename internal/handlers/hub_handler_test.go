package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"translatorhub/internal/backend"
	"translatorhub/internal/config"
	"translatorhub/internal/controller"
	"translatorhub/internal/languages"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"
	"translatorhub/internal/reveal"
	contextutils "translatorhub/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	wavBytes = []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x40\x1f\x00\x00\x80\x3e\x00\x00\x02\x00\x10\x00data\x00\x00\x00\x00")
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Translate(ctx context.Context, req backend.TextRequest) (backend.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(backend.Result), args.Error(1)
}

func (m *mockBackend) ExtractText(ctx context.Context, req backend.ImageRequest) (backend.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(backend.Result), args.Error(1)
}

func (m *mockBackend) TranscribeTranslate(ctx context.Context, req backend.AudioRequest) (backend.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(backend.Result), args.Error(1)
}

func newTestRouter(t *testing.T, client backend.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	factory := func() (*controller.Controller, error) {
		return controller.New(controller.Options{
			Client:   client,
			Animator: reveal.New(time.Millisecond),
		}), nil
	}
	return NewRouter(config.Default(), languages.Default(), factory, observability.NewNopLogger(), nil, nil)
}

func dialHub(t *testing.T, client backend.Client) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(newTestRouter(t, client))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/hub"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	initial := readUntil(t, conn, func(m ServerMessage) bool { return m.Type == MsgState })
	require.Equal(t, models.StatusIdle, initial.State.Status)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(ServerMessage) bool) ServerMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var msg ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func isState(check func(models.Snapshot, CaptureState) bool) func(ServerMessage) bool {
	return func(m ServerMessage) bool {
		return m.Type == MsgState && m.State != nil && m.Capture != nil && check(*m.State, *m.Capture)
	}
}

func isError(m ServerMessage) bool { return m.Type == MsgError }

func TestHub_TranslateProducesInFlightThenRevealedResult(t *testing.T) {
	release := make(chan struct{})
	client := new(mockBackend)
	client.On("Translate", mock.Anything, backend.TextRequest{Text: "Hello", SourceLang: "en", Target: "si"}).
		Run(func(mock.Arguments) { <-release }).
		Return(backend.Result{Output: "හෙලෝ"}, nil).Once()
	conn := dialHub(t, client)

	send(t, conn, map[string]interface{}{"type": MsgSetInput, "text": "Hello"})
	send(t, conn, map[string]interface{}{"type": MsgTranslate})

	inFlight := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.Status == models.StatusInFlight
	}))
	assert.True(t, inFlight.State.IsLoading)
	assert.Empty(t, inFlight.State.ErrorMessage)
	close(release)

	done := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.Status == models.StatusSucceeded && s.RevealComplete
	}))
	require.NotNil(t, done.State.Result)
	assert.Equal(t, "හෙලෝ", *done.State.Result)
	assert.Equal(t, "හෙලෝ", done.State.RevealedOutput)
	assert.False(t, done.State.IsLoading)
	client.AssertExpectations(t)
}

func TestHub_EmptyTextIsRejectedWithoutNetwork(t *testing.T) {
	client := new(mockBackend)
	conn := dialHub(t, client)

	send(t, conn, map[string]interface{}{"type": MsgTranslate, "text": "   "})

	// The error reply and the failed state may arrive in either order
	failedState := isState(func(s models.Snapshot, _ CaptureState) bool { return s.Status == models.StatusFailed })
	var errMsg, failed *ServerMessage
	readUntil(t, conn, func(m ServerMessage) bool {
		switch {
		case isError(m):
			errMsg = &m
		case failedState(m):
			failed = &m
		}
		return errMsg != nil && failed != nil
	})

	assert.Equal(t, string(models.ErrorKindValidation), errMsg.Error["code"])
	assert.Equal(t, models.MsgEmptyText, errMsg.Error["message"])
	assert.Equal(t, models.MsgEmptyText, failed.State.ErrorMessage)
	client.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything)
}

func TestHub_BackendFailureShowsServerError(t *testing.T) {
	client := new(mockBackend)
	client.On("Translate", mock.Anything, mock.Anything).Return(backend.Result{}, models.NewServerError(503, nil)).Once()
	conn := dialHub(t, client)

	send(t, conn, map[string]interface{}{"type": MsgTranslate, "text": "Hello", "source": "en", "target": "ta"})

	failed := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.Status == models.StatusFailed
	}))
	assert.Equal(t, "Server error: 503", failed.State.ErrorMessage)
	assert.Equal(t, 503, failed.State.StatusCode)
	assert.Equal(t, models.LanguageCode("ta"), failed.State.TargetLanguage)
}

func TestHub_RejectsInvalidMessages(t *testing.T) {
	conn := dialHub(t, new(mockBackend))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	errMsg := readUntil(t, conn, isError)
	assert.Equal(t, string(contextutils.ErrorCodeInvalidFormat), errMsg.Error["code"])

	send(t, conn, map[string]interface{}{"type": "launch_rockets"})
	errMsg = readUntil(t, conn, isError)
	assert.Equal(t, string(contextutils.ErrorCodeValidationFailed), errMsg.Error["code"])

	send(t, conn, map[string]interface{}{"type": MsgSetMode})
	errMsg = readUntil(t, conn, isError)
	assert.Equal(t, string(contextutils.ErrorCodeValidationFailed), errMsg.Error["code"])

	send(t, conn, map[string]interface{}{"type": MsgSetMode, "mode": "video"})
	errMsg = readUntil(t, conn, isError)
	assert.Equal(t, string(contextutils.ErrorCodeInvalidInput), errMsg.Error["code"])

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	errMsg = readUntil(t, conn, isError)
	assert.Equal(t, string(contextutils.ErrorCodeInvalidFormat), errMsg.Error["code"])
}

func TestHub_SubmitImage(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)
	client := new(mockBackend)
	client.On("ExtractText", mock.Anything, backend.ImageRequest{Base64Image: encoded}).
		Return(backend.Result{Output: "scanned text"}, nil).Once()
	conn := dialHub(t, client)

	send(t, conn, map[string]interface{}{
		"type":    MsgSubmitImage,
		"name":    "scan.png",
		"dataUri": "data:image/png;base64," + encoded,
	})

	done := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.Status == models.StatusSucceeded
	}))
	assert.Equal(t, models.ModeImage, done.State.Mode)
	require.NotNil(t, done.State.Attachment)
	assert.Equal(t, "scan.png", done.State.Attachment.Name)
	assert.Equal(t, "image/png", done.State.Attachment.MIMEType)
}

func TestHub_TranslateInImageModeWithoutImage(t *testing.T) {
	conn := dialHub(t, new(mockBackend))

	send(t, conn, map[string]interface{}{"type": MsgSetMode, "mode": "image"})
	send(t, conn, map[string]interface{}{"type": MsgTranslate})

	failed := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.Status == models.StatusFailed
	}))
	assert.Equal(t, models.MsgNoImage, failed.State.ErrorMessage)
}

func TestHub_ModeSwitchDropsUploadedImage(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)
	client := new(mockBackend)
	client.On("ExtractText", mock.Anything, backend.ImageRequest{Base64Image: encoded}).
		Return(backend.Result{Output: "scanned text"}, nil).Once()
	conn := dialHub(t, client)

	send(t, conn, map[string]interface{}{
		"type":    MsgSubmitImage,
		"name":    "scan.png",
		"dataUri": "data:image/png;base64," + encoded,
	})
	readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.Status == models.StatusSucceeded
	}))

	send(t, conn, map[string]interface{}{"type": MsgSetMode, "mode": "text"})
	send(t, conn, map[string]interface{}{"type": MsgSetMode, "mode": "image"})
	send(t, conn, map[string]interface{}{"type": MsgTranslate})

	failed := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.Status == models.StatusFailed
	}))
	assert.Equal(t, models.MsgNoImage, failed.State.ErrorMessage)
	assert.Equal(t, models.ErrorKindValidation, failed.State.ErrorKind)
	assert.Nil(t, failed.State.Attachment)
	client.AssertNumberOfCalls(t, "ExtractText", 1)
}

func TestHub_ModeSwitchDropsRecording(t *testing.T) {
	client := new(mockBackend)
	conn := dialHub(t, client)

	send(t, conn, map[string]interface{}{"type": MsgSetMode, "mode": "audio"})
	send(t, conn, map[string]interface{}{
		"type":    MsgSubmitAudio,
		"name":    "clip.txt",
		"dataUri": "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("not audio")),
	})
	readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.Status == models.StatusFailed && s.ErrorMessage == models.MsgNotAudio
	}))

	send(t, conn, map[string]interface{}{"type": MsgSetMode, "mode": "text"})
	send(t, conn, map[string]interface{}{"type": MsgSetMode, "mode": "audio"})
	send(t, conn, map[string]interface{}{"type": MsgTranslate})

	failed := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.Status == models.StatusFailed && s.ErrorMessage == models.MsgNoRecording
	}))
	assert.Equal(t, models.ModeAudio, failed.State.Mode)
	assert.Nil(t, failed.State.Attachment)
	client.AssertNotCalled(t, "TranscribeTranslate", mock.Anything, mock.Anything)
}

func TestHub_RecordedAudioIsAssembledAndSubmitted(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(wavBytes)
	client := new(mockBackend)
	client.On("TranscribeTranslate", mock.Anything, backend.AudioRequest{Base64Audio: encoded, SourceLang: "en", Target: "si"}).
		Return(backend.Result{Output: "ආයුබෝවන්"}, nil).Once()
	conn := dialHub(t, client)

	send(t, conn, map[string]interface{}{"type": MsgSetMode, "mode": "audio"})
	send(t, conn, map[string]interface{}{"type": MsgRecordStart})
	readUntil(t, conn, isState(func(_ models.Snapshot, c CaptureState) bool { return c.Recording }))

	send(t, conn, map[string]interface{}{"type": MsgTranslate})
	failedState := isState(func(s models.Snapshot, _ CaptureState) bool { return s.Status == models.StatusFailed })
	var errMsg, stillRecording *ServerMessage
	readUntil(t, conn, func(m ServerMessage) bool {
		switch {
		case isError(m):
			errMsg = &m
		case failedState(m):
			stillRecording = &m
		}
		return errMsg != nil && stillRecording != nil
	})
	assert.Equal(t, models.MsgStillRecording, errMsg.Error["message"])
	assert.Equal(t, models.MsgStillRecording, stillRecording.State.ErrorMessage)
	assert.Equal(t, models.ErrorKindValidation, stillRecording.State.ErrorKind)

	send(t, conn, map[string]interface{}{"type": MsgRecordChunk, "chunk": base64.StdEncoding.EncodeToString(wavBytes[:20])})
	send(t, conn, map[string]interface{}{"type": MsgRecordChunk, "chunk": base64.StdEncoding.EncodeToString(wavBytes[20:])})
	send(t, conn, map[string]interface{}{"type": MsgRecordStop})
	readUntil(t, conn, isState(func(_ models.Snapshot, c CaptureState) bool { return !c.Recording }))

	send(t, conn, map[string]interface{}{"type": MsgSubmitAudio})
	done := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.Status == models.StatusSucceeded && s.RevealComplete
	}))
	assert.Equal(t, "ආයුබෝවන්", done.State.RevealedOutput)
	client.AssertExpectations(t)
}

func TestHub_SubmitAudioWithoutRecording(t *testing.T) {
	conn := dialHub(t, new(mockBackend))

	send(t, conn, map[string]interface{}{"type": MsgSubmitAudio})
	failed := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.Status == models.StatusFailed
	}))
	assert.Equal(t, models.MsgNoRecording, failed.State.ErrorMessage)
}

func TestHub_SpeechFillsInput(t *testing.T) {
	conn := dialHub(t, new(mockBackend))

	send(t, conn, map[string]interface{}{"type": MsgSpeechResult, "transcript": "too early"})
	errMsg := readUntil(t, conn, isError)
	assert.Equal(t, string(contextutils.ErrorCodeConflict), errMsg.Error["code"])

	send(t, conn, map[string]interface{}{"type": MsgSpeechStart})
	readUntil(t, conn, isState(func(_ models.Snapshot, c CaptureState) bool { return c.Listening }))

	send(t, conn, map[string]interface{}{"type": MsgSpeechResult, "transcript": "good"})
	send(t, conn, map[string]interface{}{"type": MsgSpeechResult, "transcript": "good morning", "final": true})
	filled := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool {
		return s.InputText == "good morning"
	}))
	assert.Equal(t, "good morning", filled.State.InputText)

	send(t, conn, map[string]interface{}{"type": MsgSpeechStop})
	readUntil(t, conn, isState(func(_ models.Snapshot, c CaptureState) bool { return !c.Listening }))
}

func TestHub_LanguagesAndReset(t *testing.T) {
	conn := dialHub(t, new(mockBackend))

	send(t, conn, map[string]interface{}{"type": MsgSetLanguages, "source": "ta", "target": "en"})
	readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool { return s.SourceLanguage == "ta" }))

	send(t, conn, map[string]interface{}{"type": MsgSwapLanguages})
	swapped := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool { return s.SourceLanguage == "en" }))
	assert.Equal(t, models.LanguageCode("ta"), swapped.State.TargetLanguage)

	send(t, conn, map[string]interface{}{"type": MsgSetLanguages, "source": "en", "target": "xx"})
	errMsg := readUntil(t, conn, isError)
	assert.Equal(t, "Unsupported language: xx", errMsg.Error["message"])

	send(t, conn, map[string]interface{}{"type": MsgSetInput, "text": "draft"})
	readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool { return s.InputText == "draft" }))
	send(t, conn, map[string]interface{}{"type": MsgReset})
	readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool { return s.InputText == "" }))
}

func TestHub_CancelDiscardsLateResult(t *testing.T) {
	release := make(chan struct{})
	client := new(mockBackend)
	client.On("Translate", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(backend.Result{Output: "late"}, nil).Once()
	conn := dialHub(t, client)

	send(t, conn, map[string]interface{}{"type": MsgTranslate, "text": "slow"})
	readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool { return s.Status == models.StatusInFlight }))

	send(t, conn, map[string]interface{}{"type": MsgCancel})
	idle := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool { return s.Status == models.StatusIdle }))
	assert.Nil(t, idle.State.Result)
	close(release)

	// A later command still sees the cancelled state; the late result was dropped
	send(t, conn, map[string]interface{}{"type": MsgSetInput, "text": "after"})
	after := readUntil(t, conn, isState(func(s models.Snapshot, _ CaptureState) bool { return s.InputText == "after" }))
	assert.Equal(t, models.StatusIdle, after.State.Status)
	assert.Nil(t, after.State.Result)
}

func TestHub_ControllerFactoryFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	factory := func() (*controller.Controller, error) {
		return nil, contextutils.ErrServiceUnavailable
	}
	router := NewRouter(config.Default(), languages.Default(), factory, nil, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/hub", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SERVICE_UNAVAILABLE", body["code"])
}

func TestHub_PlainHTTPRequestIsRejected(t *testing.T) {
	router := newTestRouter(t, new(mockBackend))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/hub", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckOrigin(t *testing.T) {
	assert.Nil(t, checkOrigin(nil))

	check := checkOrigin([]string{"https://hub.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/v1/hub", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "https://hub.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, checkOrigin([]string{"*"})(req))
}
