package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matzehuels/decrepit/pkg/observability"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner draws a single status line counting finished lookups. It only
// makes sense on a terminal; callers check that before starting one.
type spinner struct {
	w     io.Writer
	total int
	done  atomic.Int64

	mu      sync.Mutex
	width   int // widest line drawn so far, for clearing
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newSpinner(w io.Writer, total int) *spinner {
	return &spinner{
		w:       w,
		total:   total,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// status is the text drawn next to the current frame.
func (s *spinner) status() string {
	return fmt.Sprintf("Checking distributions (%d/%d)", s.done.Load(), s.total)
}

// advance records one finished lookup.
func (s *spinner) advance() {
	s.done.Add(1)
}

// Start animates until Stop is called or ctx is done.
func (s *spinner) Start(ctx context.Context) {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

func (s *spinner) draw(frame string) {
	status := s.status()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(status)+2)
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(status))
}

// Stop ends the animation and clears the line. It is safe to call more
// than once.
func (s *spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.stopped

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
	}
}

// spinnerHooks advances a spinner on every finished lookup.
type spinnerHooks struct {
	observability.NoopResolveHooks
	s *spinner
}

func (h spinnerHooks) OnResolveComplete(context.Context, string, string, string, time.Duration, error) {
	h.s.advance()
}
