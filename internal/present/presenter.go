// Package present drives a visual progress indicator from stream events.
package present

import (
	"sync"
	"time"
)

// Renderer is the output surface. cmd/watch plugs in a terminal progress
// bar; tests plug in a recorder.
type Renderer interface {
	Render(percent int, phase string)
	Done(outputRef string)
	Fail(code, message string)
}

type syntheticStep struct {
	value float64
	after time.Duration
}

// Presenter animates displayed progress toward received values. Until the
// first real event arrives it shows a few synthetic interim values so the
// user gets feedback while the stream is still connecting. Displayed
// progress never moves backward: lower incoming values clamp instead.
type Presenter struct {
	r            Renderer
	animateEvery time.Duration
	synthetic    []syntheticStep

	mu        sync.Mutex
	displayed float64
	target    float64
	phase     string
	realSeen  bool // first real event arrived; synthetic values stop applying
	completed bool
	outputRef string
	stopped   bool
	timers    []*time.Timer

	doneOnce sync.Once
	done     chan struct{}
}

func New(r Renderer) *Presenter {
	return &Presenter{
		r:            r,
		animateEvery: 100 * time.Millisecond,
		synthetic: []syntheticStep{
			{value: 10, after: 300 * time.Millisecond},
			{value: 20, after: 800 * time.Millisecond},
			{value: 30, after: 1500 * time.Millisecond},
		},
		phase: "starting",
		done:  make(chan struct{}),
	}
}

// Start schedules the synthetic interim values and begins the animation
// loop. Call exactly once.
func (p *Presenter) Start() {
	p.mu.Lock()
	for _, step := range p.synthetic {
		step := step
		p.timers = append(p.timers, time.AfterFunc(step.after, func() {
			p.mu.Lock()
			if !p.realSeen && !p.stopped && step.value > p.target {
				p.target = step.value
			}
			p.mu.Unlock()
		}))
	}
	p.mu.Unlock()

	go p.animate()
}

// SetProgress feeds a real progress value. Real values take over from the
// synthetic ones permanently.
func (p *Presenter) SetProgress(percent float64, phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.realSeen = true
	p.cancelTimersLocked()
	if phase != "" {
		p.phase = phase
	}
	if percent > p.target {
		p.target = percent
	}
	// lower values clamp: target stays where it is
}

// Complete animates to 100 and then reports Done on the renderer.
func (p *Presenter) Complete(outputRef string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.realSeen = true
	p.cancelTimersLocked()
	p.completed = true
	p.outputRef = outputRef
	p.target = 100
	p.phase = "done"
}

// FailJob reports a structured job failure and stops the presenter.
func (p *Presenter) FailJob(code, message string) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.cancelTimersLocked()
	p.mu.Unlock()

	p.r.Fail(code, message)
	p.closeDone()
}

// Stop halts the presenter without a terminal rendering (client destroyed,
// retries exhausted).
func (p *Presenter) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.cancelTimersLocked()
	p.mu.Unlock()
	p.closeDone()
}

// Done is closed when the presenter finished rendering a terminal outcome
// or was stopped.
func (p *Presenter) Done() <-chan struct{} { return p.done }

// animate steps the displayed value toward the target on a fixed cadence,
// so received values glide in instead of jumping.
func (p *Presenter) animate() {
	ticker := time.NewTicker(p.animateEvery)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.stopped {
			p.mu.Unlock()
			return
		}
		if p.displayed < p.target {
			step := (p.target - p.displayed) / 4
			if step < 1 {
				step = 1
			}
			p.displayed += step
			if p.displayed > p.target {
				p.displayed = p.target
			}
		}
		percent := int(p.displayed)
		phase := p.phase
		finished := p.completed && p.displayed >= 100
		outputRef := p.outputRef
		if finished {
			p.stopped = true
		}
		p.mu.Unlock()

		p.r.Render(percent, phase)
		if finished {
			p.r.Done(outputRef)
			p.closeDone()
			return
		}
	}
}

func (p *Presenter) cancelTimersLocked() {
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
}

func (p *Presenter) closeDone() {
	p.doneOnce.Do(func() { close(p.done) })
}
