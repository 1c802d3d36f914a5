// Package controller owns the lifecycle of the single translation request behind a
// Translator Hub view and drives the typed reveal of its result.
package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"translatorhub/internal/backend"
	"translatorhub/internal/config"
	"translatorhub/internal/languages"
	"translatorhub/internal/media"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"
	"translatorhub/internal/reveal"
	contextutils "translatorhub/internal/utils"
)

// ErrClosed is returned by operations on a closed controller
var ErrClosed = contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityWarn,
	"controller is closed", "")

// Options configures a Controller
type Options struct {
	Client      backend.Client
	Animator    *reveal.Animator
	Languages   *languages.Table
	Uploads     config.UploadConfig
	Source      models.LanguageCode
	Target      models.LanguageCode
	Logger      *observability.Logger
	Instruments *observability.Instruments
}

// Controller is a TranslationRequestController. All state sits behind one mutex; network
// completions and reveal frames are applied under it only when their generation is current.
type Controller struct {
	client      backend.Client
	animator    *reveal.Animator
	languages   *languages.Table
	uploads     config.UploadConfig
	logger      *observability.Logger
	instruments *observability.Instruments

	mu          sync.Mutex
	mode        models.Mode
	source      models.LanguageCode
	target      models.LanguageCode
	inputText   string
	attachment  *models.Attachment
	status      models.Status
	result      *string
	err         *models.RequestError
	revealed    string
	revealDone  bool
	generation  uint64
	cancel      context.CancelFunc
	settled     chan struct{}
	revealSub   *reveal.Subscription
	revealEnded chan struct{}
	subscribers map[int]chan models.Snapshot
	nextSubID   int
	closed      bool

	wg sync.WaitGroup
}

// New creates a controller in the idle state
func New(opts Options) *Controller {
	if opts.Animator == nil {
		opts.Animator = reveal.New(reveal.DefaultInterval)
	}
	if opts.Languages == nil {
		opts.Languages = languages.Default()
	}
	if opts.Uploads.MaxImageBytes <= 0 {
		opts.Uploads.MaxImageBytes = config.DefaultMaxImageBytes
	}
	if opts.Uploads.MaxAudioBytes <= 0 {
		opts.Uploads.MaxAudioBytes = config.DefaultMaxAudioBytes
	}
	if opts.Source == "" {
		opts.Source = config.DefaultSourceLanguage
	}
	if opts.Target == "" {
		opts.Target = config.DefaultTargetLanguage
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewNopLogger()
	}

	return &Controller{
		client:      opts.Client,
		animator:    opts.Animator,
		languages:   opts.Languages,
		uploads:     opts.Uploads,
		logger:      opts.Logger,
		instruments: opts.Instruments,
		mode:        models.ModeText,
		source:      opts.Source,
		target:      opts.Target,
		status:      models.StatusIdle,
		subscribers: make(map[int]chan models.Snapshot),
	}
}

// SubmitText translates text from source to target
func (c *Controller) SubmitText(ctx context.Context, text string, source, target models.LanguageCode) (err error) {
	ctx, span := observability.TraceControllerFunction(ctx, "submit_text",
		observability.AttributeMode(string(models.ModeText)),
		observability.AttributeSourceLanguage(source.String()),
		observability.AttributeTargetLanguage(target.String()),
		observability.AttributeTextLength(len(text)),
	)
	defer observability.FinishSpan(span, &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.admitLocked(); err != nil {
		return err
	}

	c.mode = models.ModeText
	c.inputText = text
	c.source = source
	c.target = target
	c.attachment = nil

	if strings.TrimSpace(text) == "" {
		return c.rejectLocked(ctx, models.ModeText, models.NewValidationError(models.MsgEmptyText))
	}
	if reqErr := c.validateLanguagesLocked(source, target); reqErr != nil {
		return c.rejectLocked(ctx, models.ModeText, reqErr)
	}

	req := backend.TextRequest{Text: text, SourceLang: source, Target: target}
	gen := c.dispatchLocked(ctx, models.ModeText, func(ctx context.Context) (backend.Result, error) {
		return c.client.Translate(ctx, req)
	})
	span.SetAttributes(observability.AttributeGeneration(gen))
	return nil
}

// SubmitImage extracts text from an image payload
func (c *Controller) SubmitImage(ctx context.Context, payload media.Payload) (err error) {
	ctx, span := observability.TraceControllerFunction(ctx, "submit_image",
		observability.AttributeMode(string(models.ModeImage)),
		observability.AttributePayloadBytes(payload.Size),
	)
	defer observability.FinishSpan(span, &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.admitLocked(); err != nil {
		return err
	}

	c.mode = models.ModeImage
	c.attachment = payload.Attachment()

	switch {
	case payload.Empty():
		return c.rejectLocked(ctx, models.ModeImage, models.NewValidationError(models.MsgNoImage))
	case !payload.IsImage():
		return c.rejectLocked(ctx, models.ModeImage, models.NewValidationError(models.MsgNotAnImage))
	case payload.Size > c.uploads.MaxImageBytes:
		return c.rejectLocked(ctx, models.ModeImage, models.NewValidationError(tooLargeMessage(c.uploads.MaxImageBytes)))
	}

	req := backend.ImageRequest{Base64Image: payload.Base64}
	gen := c.dispatchLocked(ctx, models.ModeImage, func(ctx context.Context) (backend.Result, error) {
		return c.client.ExtractText(ctx, req)
	})
	span.SetAttributes(observability.AttributeGeneration(gen))
	return nil
}

// SubmitAudio transcribes and translates a finished recording
func (c *Controller) SubmitAudio(ctx context.Context, payload media.Payload, source, target models.LanguageCode) (err error) {
	ctx, span := observability.TraceControllerFunction(ctx, "submit_audio",
		observability.AttributeMode(string(models.ModeAudio)),
		observability.AttributeSourceLanguage(source.String()),
		observability.AttributeTargetLanguage(target.String()),
		observability.AttributePayloadBytes(payload.Size),
	)
	defer observability.FinishSpan(span, &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.admitLocked(); err != nil {
		return err
	}

	c.mode = models.ModeAudio
	c.source = source
	c.target = target
	c.attachment = payload.Attachment()

	switch {
	case payload.Empty():
		return c.rejectLocked(ctx, models.ModeAudio, models.NewValidationError(models.MsgNoRecording))
	case !payload.IsAudio():
		return c.rejectLocked(ctx, models.ModeAudio, models.NewValidationError(models.MsgNotAudio))
	case payload.Size > c.uploads.MaxAudioBytes:
		return c.rejectLocked(ctx, models.ModeAudio, models.NewValidationError(tooLargeMessage(c.uploads.MaxAudioBytes)))
	}
	if reqErr := c.validateLanguagesLocked(source, target); reqErr != nil {
		return c.rejectLocked(ctx, models.ModeAudio, reqErr)
	}

	req := backend.AudioRequest{Base64Audio: payload.Base64, SourceLang: source, Target: target}
	gen := c.dispatchLocked(ctx, models.ModeAudio, func(ctx context.Context) (backend.Result, error) {
		return c.client.TranscribeTranslate(ctx, req)
	})
	span.SetAttributes(observability.AttributeGeneration(gen))
	return nil
}

// Reject records a validation failure found before a submit could be built, such as a
// recording that is still running. Nothing reaches the network.
func (c *Controller) Reject(ctx context.Context, mode models.Mode, reqErr *models.RequestError) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.admitLocked(); err != nil {
		return err
	}
	c.mode = mode
	return c.rejectLocked(ctx, mode, reqErr)
}

// CancelInFlight abandons the running request. The transport may still finish; its
// response is discarded.
func (c *Controller) CancelInFlight() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != models.StatusInFlight {
		return
	}
	c.supersedeLocked()
	c.status = models.StatusIdle
	c.logger.Info(context.Background(), "Request cancelled", map[string]interface{}{
		"mode":       c.mode,
		"generation": c.generation,
	})
	c.publishLocked()
}

// Reset abandons any request, stops the reveal and clears the form
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.clearLocked()
	c.inputText = ""
	c.publishLocked()
}

// SetMode switches the input tab. Switching clears the request, result and attachment.
func (c *Controller) SetMode(mode models.Mode) error {
	if !mode.Valid() {
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
			fmt.Sprintf("unknown mode %q", mode), "")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.mode == mode {
		return nil
	}
	c.clearLocked()
	c.mode = mode
	c.publishLocked()
	return nil
}

// SetInput replaces the text box contents
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.inputText == text {
		return
	}
	c.inputText = text
	c.publishLocked()
}

// SetLanguages changes the picker selection. Both codes must be in the table.
func (c *Controller) SetLanguages(source, target models.LanguageCode) error {
	if err := c.languages.Validate(source); err != nil {
		return err
	}
	if err := c.languages.Validate(target); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.source = source
	c.target = target
	c.publishLocked()
	return nil
}

// SwapLanguages exchanges source and target
func (c *Controller) SwapLanguages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.source, c.target = c.target, c.source
	c.publishLocked()
}

// Close cancels the request, tears down the animator and waits for background work
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.supersedeLocked()
	c.stopRevealLocked()
	c.animator.Close()
	for id, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, id)
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// admitLocked rejects a submit while closed or while a request is running
func (c *Controller) admitLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.status == models.StatusInFlight {
		return models.NewAlreadyInFlightError()
	}
	return nil
}

func (c *Controller) validateLanguagesLocked(source, target models.LanguageCode) *models.RequestError {
	for _, code := range []models.LanguageCode{source, target} {
		if err := c.languages.Validate(code); err != nil {
			msg := err.Error()
			if appErr, ok := err.(*contextutils.AppError); ok {
				msg = appErr.Message
			}
			return models.NewValidationError(msg)
		}
	}
	return nil
}

// rejectLocked records a local validation failure. Nothing reaches the network.
func (c *Controller) rejectLocked(ctx context.Context, mode models.Mode, reqErr *models.RequestError) error {
	c.clearResultLocked()
	c.status = models.StatusFailed
	c.err = reqErr
	c.instruments.RecordOutcome(ctx, string(mode), string(reqErr.Kind), 0)
	c.logger.Debug(ctx, "Request rejected", map[string]interface{}{
		"mode":    mode,
		"message": reqErr.UserMessage(),
	})
	c.publishLocked()
	return reqErr
}

// dispatchLocked moves to in_flight and runs call on a goroutine under a new generation
func (c *Controller) dispatchLocked(ctx context.Context, mode models.Mode, call func(context.Context) (backend.Result, error)) uint64 {
	c.supersedeLocked()
	c.clearResultLocked()
	c.status = models.StatusInFlight

	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.settled = make(chan struct{})
	gen := c.generation

	c.instruments.RecordSubmission(ctx, string(mode))
	c.logger.Info(ctx, "Request dispatched", map[string]interface{}{
		"mode":       mode,
		"generation": gen,
	})
	c.publishLocked()

	started := time.Now()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		result, err := call(reqCtx)
		c.complete(reqCtx, gen, mode, started, result, err)
	}()
	return gen
}

// complete applies a backend outcome if gen is still current
func (c *Controller) complete(ctx context.Context, gen uint64, mode models.Mode, started time.Time, result backend.Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.closed {
		c.instruments.RecordStaleResponse(ctx, string(mode))
		c.logger.Debug(ctx, "Discarding stale response", map[string]interface{}{
			"mode":               mode,
			"generation":         gen,
			"current_generation": c.generation,
		})
		return
	}

	elapsed := time.Since(started)
	c.cancel = nil

	if err != nil {
		reqErr, ok := models.AsRequestError(err)
		if !ok {
			reqErr = models.NewRequestSetupError(err.Error(), err)
		}
		c.status = models.StatusFailed
		c.err = reqErr
		c.instruments.RecordOutcome(ctx, string(mode), string(reqErr.Kind), elapsed)
		c.logger.Warn(ctx, "Request failed", map[string]interface{}{
			"mode":        mode,
			"generation":  gen,
			"error_kind":  reqErr.Kind,
			"status_code": reqErr.StatusCode,
			"error":       reqErr.Error(),
		})
	} else {
		output := result.Output
		c.status = models.StatusSucceeded
		c.result = &output
		c.instruments.RecordOutcome(ctx, string(mode), string(models.StatusSucceeded), elapsed)
		c.logger.Info(ctx, "Request succeeded", map[string]interface{}{
			"mode":          mode,
			"generation":    gen,
			"output_length": len(output),
			"cached":        result.Cached,
			"elapsed_ms":    elapsed.Milliseconds(),
		})
		c.startRevealLocked(output)
	}

	c.settleLocked()
	c.publishLocked()
}

// supersedeLocked invalidates the running request, if any
func (c *Controller) supersedeLocked() {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.settleLocked()
}

func (c *Controller) settleLocked() {
	if c.settled != nil {
		close(c.settled)
		c.settled = nil
	}
}

// clearLocked returns request and reveal state to idle, keeping mode, languages and input
func (c *Controller) clearLocked() {
	c.supersedeLocked()
	c.clearResultLocked()
	c.attachment = nil
	c.status = models.StatusIdle
}

func (c *Controller) clearResultLocked() {
	c.stopRevealLocked()
	c.result = nil
	c.err = nil
	c.revealed = ""
	c.revealDone = false
}

func (c *Controller) startRevealLocked(text string) {
	c.stopRevealLocked()

	sub := c.animator.Start(text)
	ended := make(chan struct{})
	c.revealSub = sub
	c.revealEnded = ended
	c.revealed = ""
	c.revealDone = false

	c.wg.Add(1)
	go c.pump(sub, ended)
}

// stopRevealLocked cancels the running reveal. The pump may still hold one frame;
// it drops it because revealSub no longer matches.
func (c *Controller) stopRevealLocked() {
	if c.revealSub == nil {
		return
	}
	c.revealSub = nil
	c.revealEnded = nil
	c.animator.Stop()
}

func (c *Controller) pump(sub *reveal.Subscription, ended chan struct{}) {
	defer c.wg.Done()
	defer close(ended)

	for frame := range sub.Frames() {
		c.mu.Lock()
		if c.revealSub == sub {
			c.revealed = frame
			c.publishLocked()
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revealSub == sub && c.revealed == sub.Text() {
		c.revealDone = true
		c.revealSub = nil
		c.revealEnded = nil
		c.publishLocked()
	}
}

// Snapshot returns the current render model
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		Mode:           c.mode,
		SourceLanguage: c.source,
		TargetLanguage: c.target,
		InputText:      c.inputText,
		Status:         c.status,
		IsLoading:      c.status == models.StatusInFlight,
		RevealedOutput: c.revealed,
		RevealComplete: c.revealDone,
		Generation:     c.generation,
	}
	if c.attachment != nil {
		a := *c.attachment
		snap.Attachment = &a
	}
	if c.result != nil {
		r := *c.result
		snap.Result = &r
	}
	if c.err != nil {
		snap.ErrorKind = c.err.Kind
		snap.StatusCode = c.err.StatusCode
		snap.ErrorMessage = c.err.UserMessage()
	}
	return snap
}

// Subscribe returns a stream of snapshots in mutation order. Each subscriber holds
// only the latest undelivered snapshot; a slow reader skips intermediate ones.
// The channel starts with the current snapshot and closes on unsubscribe or Close.
func (c *Controller) Subscribe() (<-chan models.Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan models.Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				close(sub)
				delete(c.subscribers, id)
			}
		})
	}
}

func (c *Controller) publishLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Wait blocks until the current request settles: it succeeds, fails, or is
// cancelled, reset or superseded. It returns at once when nothing is in flight.
func (c *Controller) Wait(ctx context.Context) (models.Snapshot, error) {
	c.mu.Lock()
	settled := c.settled
	if c.status != models.StatusInFlight || settled == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()

	select {
	case <-settled:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// WaitReveal blocks until the reveal of the current result has finished or been stopped
func (c *Controller) WaitReveal(ctx context.Context) (models.Snapshot, error) {
	c.mu.Lock()
	ended := c.revealEnded
	c.mu.Unlock()

	if ended == nil {
		return c.Snapshot(), nil
	}
	select {
	case <-ended:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// Err returns the current failure, or nil
func (c *Controller) Err() *models.RequestError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("File is too large. Maximum size is %s.", formatBytes(limit))
}

func formatBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%d KB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
