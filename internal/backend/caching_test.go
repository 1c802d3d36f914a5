package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"translatorhub/internal/models"
	"translatorhub/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Translate(ctx context.Context, req TextRequest) (Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Result), args.Error(1)
}

func (m *mockClient) ExtractText(ctx context.Context, req ImageRequest) (Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Result), args.Error(1)
}

func (m *mockClient) TranscribeTranslate(ctx context.Context, req AudioRequest) (Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Result), args.Error(1)
}

type memoryEntry struct {
	output    string
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	getErr  error
	putErr  error
	puts    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: map[string]memoryEntry{}}
}

func memoryKey(textHash string, source, target models.LanguageCode) string {
	return textHash + "|" + string(source) + "|" + string(target)
}

func (s *memoryStore) Get(ctx context.Context, textHash string, source, target models.LanguageCode) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	e, ok := s.entries[memoryKey(textHash, source, target)]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false, nil
	}
	return e.output, true, nil
}

func (s *memoryStore) Put(ctx context.Context, textHash, originalText string, source, target models.LanguageCode, output string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.entries[memoryKey(textHash, source, target)] = memoryEntry{output: output, expiresAt: time.Now().Add(ttl)}
	return nil
}

func TestHashText(t *testing.T) {
	assert.Equal(t, "185f8db32271fe25f561a6fc938b2e264306ec304eda518007d1764826381969", HashText("Hello"))
	assert.NotEqual(t, HashText("Hello"), HashText("hello"))
}

func TestCachingClient_SecondRequestServedFromStore(t *testing.T) {
	next := new(mockClient)
	req := TextRequest{Text: "Hello", SourceLang: "en", Target: "si"}
	next.On("Translate", mock.Anything, req).Return(Result{Output: "හෙලෝ"}, nil).Once()

	client := NewCachingClient(next, newMemoryStore(), time.Hour, nil, nil)

	first, err := client.Translate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := client.Translate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "හෙලෝ", second.Output)

	next.AssertExpectations(t)
}

func TestCachingClient_KeyIncludesLanguages(t *testing.T) {
	next := new(mockClient)
	next.On("Translate", mock.Anything, TextRequest{Text: "Hello", SourceLang: "en", Target: "si"}).Return(Result{Output: "si"}, nil).Once()
	next.On("Translate", mock.Anything, TextRequest{Text: "Hello", SourceLang: "en", Target: "ta"}).Return(Result{Output: "ta"}, nil).Once()

	client := NewCachingClient(next, newMemoryStore(), time.Hour, nil, nil)

	r1, err := client.Translate(context.Background(), TextRequest{Text: "Hello", SourceLang: "en", Target: "si"})
	require.NoError(t, err)
	r2, err := client.Translate(context.Background(), TextRequest{Text: "Hello", SourceLang: "en", Target: "ta"})
	require.NoError(t, err)

	assert.Equal(t, "si", r1.Output)
	assert.Equal(t, "ta", r2.Output)
	next.AssertExpectations(t)
}

func TestCachingClient_FailuresAreNotCached(t *testing.T) {
	next := new(mockClient)
	req := TextRequest{Text: "Hello", SourceLang: "en", Target: "si"}
	next.On("Translate", mock.Anything, req).Return(Result{}, models.NewServerError(503, nil)).Once()
	next.On("Translate", mock.Anything, req).Return(Result{Output: "ok"}, nil).Once()

	store := newMemoryStore()
	client := NewCachingClient(next, store, time.Hour, nil, nil)

	_, err := client.Translate(context.Background(), req)
	assert.Equal(t, models.ErrorKindServer, models.KindOf(err))
	assert.Equal(t, 0, store.puts)

	result, err := client.Translate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
}

func TestCachingClient_StoreErrorsAreLoggedOnly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := observability.NewLoggerFromZap(zap.New(core))

	next := new(mockClient)
	req := TextRequest{Text: "Hello", SourceLang: "en", Target: "si"}
	next.On("Translate", mock.Anything, req).Return(Result{Output: "ok"}, nil)

	store := newMemoryStore()
	store.getErr = errors.New("connection reset")
	store.putErr = errors.New("connection reset")

	result, err := NewCachingClient(next, store, time.Hour, logger, nil).Translate(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
	assert.Equal(t, 1, logs.FilterMessage("Translation cache lookup failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Failed to save translation to cache").Len())
}

func TestCachingClient_ImageAndAudioPassThrough(t *testing.T) {
	next := new(mockClient)
	next.On("ExtractText", mock.Anything, ImageRequest{Base64Image: "x"}).Return(Result{Output: "text"}, nil).Twice()
	next.On("TranscribeTranslate", mock.Anything, mock.AnythingOfType("backend.AudioRequest")).Return(Result{Output: "audio"}, nil).Once()

	store := newMemoryStore()
	client := NewCachingClient(next, store, time.Hour, nil, nil)

	for i := 0; i < 2; i++ {
		r, err := client.ExtractText(context.Background(), ImageRequest{Base64Image: "x"})
		require.NoError(t, err)
		assert.False(t, r.Cached)
	}
	_, err := client.TranscribeTranslate(context.Background(), AudioRequest{Base64Audio: "y"})
	require.NoError(t, err)

	assert.Equal(t, 0, store.puts)
	next.AssertExpectations(t)
}
