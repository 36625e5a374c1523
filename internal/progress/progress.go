// Package progress reports how many bundles and packages of a build are done.
package progress

import (
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Bar is a progress bar whose maximum grows as work is discovered. A nil
// *Bar is valid and reports nothing.
type Bar struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
	max int
}

// New returns a bar writing to w, or nil if enabled is false.
func New(w io.Writer, description string, enabled bool) *Bar {
	if !enabled {
		return nil
	}
	if w == nil {
		w = os.Stderr
	}
	return &Bar{bar: progressbar.NewOptions(0,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)}
}

func (b *Bar) AddMax(n int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.max += n
	b.bar.ChangeMax(b.max)
}

func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Add(n)
}

// Describe changes the text shown next to the bar.
func (b *Bar) Describe(description string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar.Describe(description)
}

func (b *Bar) Finish() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Finish()
}
