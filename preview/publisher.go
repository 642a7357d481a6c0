package preview

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// RenderFunc produces page to publish.
type RenderFunc func() (string, error)

// Publisher collapses bursts of change requests into single render and
// publish cycle. Request while an update is scheduled reschedules it.
type Publisher struct {
	delay   time.Duration
	render  RenderFunc
	publish func(string)
	log     *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	closed bool
	// serializes render and publish
	run sync.Mutex
}

func NewPublisher(delay time.Duration, render RenderFunc, publish func(string), log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{delay: delay, render: render, publish: publish, log: log}
}

// Request schedules update after debounce delay.
func (p *Publisher) Request() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(p.delay, func() { p.fire(gen) })
}

// Pending reports whether update is scheduled.
func (p *Publisher) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

func (p *Publisher) fire(gen uint64) {
	p.mu.Lock()
	// timer may fire while being rescheduled
	if p.closed || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.mu.Unlock()

	p.Flush()
}

// Flush renders and publishes immediately.
func (p *Publisher) Flush() error {
	p.run.Lock()
	defer p.run.Unlock()

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil
	}

	start := time.Now()
	page, err := p.render()
	if err != nil {
		p.log.Error("Unable to render preview", zap.Error(err))
		return err
	}
	p.publish(page)
	p.log.Debug("Preview published", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Close cancels scheduled update, later requests are ignored.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
