package main

import (
	"sync"

	"github.com/pterm/pterm"

	"docgen-progress/internal/present"
)

var _ present.Renderer = (*barRenderer)(nil)

// barRenderer draws the progress with a pterm progress bar.
type barRenderer struct {
	mu   sync.Mutex
	bar  *pterm.ProgressbarPrinter
	last int
}

func newBarRenderer() *barRenderer {
	bar, _ := pterm.DefaultProgressbar.
		WithTotal(100).
		WithTitle("starting").
		WithShowElapsedTime(true).
		Start()
	return &barRenderer{bar: bar}
}

func (r *barRenderer) Render(percent int, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar == nil {
		return
	}
	r.bar.UpdateTitle(phase)
	if percent > r.last {
		r.bar.Add(percent - r.last)
		r.last = percent
	}
}

func (r *barRenderer) Done(outputRef string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar == nil {
		return
	}
	if r.last < 100 {
		r.bar.Add(100 - r.last)
		r.last = 100
	}
	_, _ = r.bar.Stop()
	r.bar = nil
	if outputRef != "" {
		pterm.Success.Printfln("documents ready: %s", outputRef)
	} else {
		pterm.Success.Printfln("documents ready")
	}
}

func (r *barRenderer) Fail(code, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_, _ = r.bar.Stop()
		r.bar = nil
	}
	pterm.Error.Printfln("generation failed (%s): %s", code, message)
}
