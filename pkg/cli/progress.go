package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports progress of a batch such as verifying every
// audit partition.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

const progressWidth = 24

// SimpleProgress redraws one status line with a carriage return. It prints
// nothing for an empty batch.
type SimpleProgress struct {
	w    io.Writer
	unit string
	now  func() time.Time

	mu      sync.Mutex
	total   int64
	done    int64
	started time.Time
}

// NewProgressReporter returns a SimpleProgress writing to w (stderr when
// nil) that counts unit, "items" by default.
func NewProgressReporter(w io.Writer, unit string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	if unit == "" {
		unit = "items"
	}
	return &SimpleProgress{w: w, unit: unit, now: time.Now}
}

func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total, p.done, p.started = total, 0, p.now()
	p.draw()
}

func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = current
	p.draw()
}

// Finish draws the completed line and ends it.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total <= 0 {
		return
	}
	p.done = p.total
	p.draw()
	fmt.Fprintln(p.w)
}

func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\n✗ Error: %v\n", err)
}

func (p *SimpleProgress) draw() {
	if p.total <= 0 {
		return
	}
	done := min(p.done, p.total)
	filled := int(done * progressWidth / p.total)
	fmt.Fprintf(p.w, "\r[%s%s] %d/%d %s (%s)",
		strings.Repeat("█", filled), strings.Repeat("░", progressWidth-filled),
		done, p.total, p.unit, p.now().Sub(p.started).Round(time.Millisecond))
}
