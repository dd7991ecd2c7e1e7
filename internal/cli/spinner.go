package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a one-line status on w until it is stopped or its
// context ends. The message may change while it runs.
type Spinner struct {
	w      io.Writer
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	message string
	width   int
	frame   int

	started  bool
	stopped  chan struct{}
	stopOnce sync.Once
}

func newSpinner(ctx context.Context, w io.Writer, message string) *Spinner {
	sctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		parent:  ctx,
		ctx:     sctx,
		cancel:  cancel,
		message: message,
		stopped: make(chan struct{}),
	}
}

// Start draws the first frame and keeps animating in the background.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.draw()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.draw()
			}
		}
	}()
}

// SetMessage replaces the status text shown next to the spinner.
func (s *Spinner) SetMessage(format string, args ...any) {
	s.mu.Lock()
	s.message = fmt.Sprintf(format, args...)
	s.mu.Unlock()
}

func (s *Spinner) draw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	glyph := spinnerFrames[s.frame%len(spinnerFrames)]
	s.frame++
	pad := ""
	if w := len([]rune(s.message)) + 2; w < s.width {
		pad = strings.Repeat(" ", s.width-w)
	} else {
		s.width = w
	}
	fmt.Fprintf(s.w, "\r%s %s%s", styleIconSpinner.Render(glyph), StyleDim.Render(s.message), pad)
}

// Stop ends the animation and erases the status line. It may be called
// more than once, and before Start.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if !started {
			return
		}
		<-s.stopped
		s.mu.Lock()
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
		s.mu.Unlock()
	})
}

// Fail stops the spinner and reports message as an error.
func (s *Spinner) Fail(message string) {
	s.Stop()
	printError("%s", message)
}

// Canceled reports whether the caller's context ended, as opposed to an
// explicit Stop.
func (s *Spinner) Canceled() bool {
	return s.parent.Err() != nil
}
