// Package reveal produces the typed reveal of translated output: a paced sequence of
// growing prefixes that never splits a character.
package reveal

import (
	"sync"
	"time"
	"unicode/utf8"
)

// DefaultInterval is the pause between revealed units
const DefaultInterval = 30 * time.Millisecond

// Animator owns at most one running reveal. Starting a new reveal stops the previous
// one and waits for its goroutine to exit before the new sequence begins.
type Animator struct {
	interval time.Duration

	mu      sync.Mutex
	current *Subscription
	closed  bool
}

// New creates an animator ticking every interval; non-positive means DefaultInterval
func New(interval time.Duration) *Animator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Animator{interval: interval}
}

// Interval returns the tick period
func (a *Animator) Interval() time.Duration {
	return a.interval
}

// Subscription is one reveal run
type Subscription struct {
	text   string
	ends   []int
	frames chan string
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// Frames delivers "" then one more unit per tick, ending with the full text.
// The channel is unbuffered and closes when the run ends or is cancelled.
func (s *Subscription) Frames() <-chan string {
	return s.frames
}

// Done closes once the run's goroutine has exited and its ticker is stopped
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Text is the full text being revealed
func (s *Subscription) Text() string {
	return s.text
}

// Units is the number of atomic units in the text
func (s *Subscription) Units() int {
	return len(s.ends)
}

// Cancel stops the run and waits for it to release its ticker. Safe to call repeatedly.
func (s *Subscription) Cancel() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// Start begins revealing fullText, cancelling whatever was running
func (a *Animator) Start(fullText string) *Subscription {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil {
		a.current.Cancel()
		a.current = nil
	}

	sub := &Subscription{
		text:   fullText,
		ends:   unitEnds(fullText),
		frames: make(chan string),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	if a.closed {
		close(sub.frames)
		close(sub.done)
		return sub
	}

	a.current = sub
	go a.run(sub)
	return sub
}

// Stop cancels the current run, if any
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		a.current.Cancel()
		a.current = nil
	}
}

// Close stops the current run; later Starts complete immediately without frames.
// No tick fires after Close returns.
func (a *Animator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.current != nil {
		a.current.Cancel()
		a.current = nil
	}
}

func (a *Animator) run(sub *Subscription) {
	defer close(sub.done)
	defer close(sub.frames)

	if !sub.emit("") || len(sub.ends) == 0 {
		return
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for _, end := range sub.ends {
		select {
		case <-sub.stop:
			return
		case <-ticker.C:
		}
		if !sub.emit(sub.text[:end]) {
			return
		}
	}
}

func (s *Subscription) emit(frame string) bool {
	// A closed stop wins over a ready receiver
	select {
	case <-s.stop:
		return false
	default:
	}
	select {
	case s.frames <- frame:
		return true
	case <-s.stop:
		return false
	}
}

// unitEnds returns the byte offset after each code point. Invalid UTF-8 bytes are
// units of their own so the last prefix is always byte-identical to text.
func unitEnds(text string) []int {
	ends := make([]int, 0, utf8.RuneCountInString(text))
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
		ends = append(ends, i)
	}
	return ends
}

// Prefixes returns every frame Start would emit for text, without pacing
func Prefixes(text string) []string {
	ends := unitEnds(text)
	out := make([]string, 0, len(ends)+1)
	out = append(out, "")
	for _, end := range ends {
		out = append(out, text[:end])
	}
	return out
}
