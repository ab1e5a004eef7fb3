package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matzehuels/cargo-ab-lint/pkg/observability"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates a one-line status on w until stopped or ctx ends.
type spinner struct {
	w   io.Writer
	ctx context.Context

	mu      sync.Mutex
	message string
	width   int // printed width of the last frame

	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newSpinner(ctx context.Context, w io.Writer, message string) *spinner {
	return &spinner{
		w:       w,
		ctx:     ctx,
		message: message,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start runs the animation in the background.
func (s *spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

// SetMessage replaces the text shown next to the frame.
func (s *spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop ends the animation and erases the line. It may be called repeatedly.
func (s *spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.stopped

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
		s.width = 0
	}
}

func (s *spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := frame + " " + s.message
	pad := ""
	if n := len(line); n < s.width {
		pad = strings.Repeat(" ", s.width-n)
	}
	fmt.Fprintf(s.w, "\r%s %s%s", styleIconSpinner.Render(frame), StyleDim.Render(s.message), pad)
	s.width = max(s.width, len(line))
}

// memberProgress feeds analysis progress into a spinner message.
type memberProgress struct {
	observability.NoopPipelineHooks

	spin  *spinner
	label string
	total atomic.Int64
	done  atomic.Int64
}

func (p *memberProgress) OnAnalyzeStart(_ context.Context, _ string, members int) {
	p.total.Store(int64(members))
	p.done.Store(0)
	p.update()
}

func (p *memberProgress) OnMemberComplete(context.Context, string, int, time.Duration, error) {
	p.done.Add(1)
	p.update()
}

func (p *memberProgress) update() {
	p.spin.SetMessage(fmt.Sprintf("%s %d/%d members", p.label, p.done.Load(), p.total.Load()))
}
