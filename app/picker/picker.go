package picker

import (
	"context"
	"sync"
	"time"

	"skymock/app/models"
)

// Feed is the lookup side of the feed adapter.
type Feed interface {
	FetchPostsByHandle(ctx context.Context, handle string) models.PostsResult
	FetchPostByURL(ctx context.Context, url string) models.PostResult
}

// Handlers receive the picker's outputs. Any of them may be nil. They are
// called one dispatch at a time, in dispatch order, and must not call back
// into the Picker.
type Handlers struct {
	OnChange func(State)
	OnRender func(models.PostData)
	OnNotify func(Notify)
}

// Picker runs Reduce against a live feed: it owns the state, performs
// fetches in the background and debounces URL input.
type Picker struct {
	mutex    sync.Mutex
	state    State
	cfg      Config
	feed     Feed
	ctx      context.Context
	handlers Handlers

	// publish is taken before mutex is released so handlers observe states
	// in the order they were reduced.
	publish sync.Mutex

	inflight sync.WaitGroup
	debounce *Debouncer
}

// New creates a Picker. ctx bounds every fetch it starts.
func New(ctx context.Context, feed Feed, cfg Config, handlers Handlers) *Picker {
	cfg = cfg.withDefaults()
	p := &Picker{
		state:    Initial(cfg.PageSize),
		cfg:      cfg,
		feed:     feed,
		ctx:      ctx,
		handlers: handlers,
	}
	p.debounce = NewDebouncer(&p.inflight)
	return p
}

// State returns the current state.
func (p *Picker) State() State {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state
}

// Dispatch feeds an action through the reducer and runs its effects.
func (p *Picker) Dispatch(a Action) {
	p.mutex.Lock()
	next, effects := Reduce(p.cfg, p.state, a)
	p.state = next
	p.publish.Lock()
	p.mutex.Unlock()
	defer p.publish.Unlock()

	if p.handlers.OnChange != nil {
		p.handlers.OnChange(next)
	}
	for _, e := range effects {
		p.run(e)
	}
}

func (p *Picker) run(e Effect) {
	switch e := e.(type) {
	case FetchHandle:
		p.inflight.Add(1)
		go func() {
			defer p.inflight.Done()
			result := p.feed.FetchPostsByHandle(p.ctx, e.Handle)
			p.Dispatch(PostsLoaded{Token: e.Token, Result: result})
		}()
	case FetchURL:
		p.inflight.Add(1)
		go func() {
			defer p.inflight.Done()
			result := p.feed.FetchPostByURL(p.ctx, e.URL)
			p.Dispatch(PostLoaded{Token: e.Token, Result: result})
		}()
	case StartDebounce:
		url := e.URL
		p.debounce.Trigger(e.Delay, func() {
			p.Dispatch(URLSettled{URL: url})
		})
	case Render:
		if p.handlers.OnRender != nil {
			p.handlers.OnRender(e.Post)
		}
	case Notify:
		if p.handlers.OnNotify != nil {
			p.handlers.OnNotify(e)
		}
	}
}

// Wait blocks until pending debounces and fetches have finished.
func (p *Picker) Wait() {
	p.inflight.Wait()
}

// Close cancels any pending debounce. In-flight fetches finish on their own.
func (p *Picker) Close() {
	p.debounce.Stop()
}

// Debouncer runs only the last of a burst of triggers, once the burst has
// been quiet for the trigger's delay.
type Debouncer struct {
	mutex   sync.Mutex
	timer   *time.Timer
	pending *sync.WaitGroup
}

// NewDebouncer creates a Debouncer. pending, if set, counts scheduled runs.
func NewDebouncer(pending *sync.WaitGroup) *Debouncer {
	if pending == nil {
		pending = &sync.WaitGroup{}
	}
	return &Debouncer{pending: pending}
}

// Trigger (re)starts the quiet period; fn replaces any earlier pending fn.
func (d *Debouncer) Trigger(delay time.Duration, fn func()) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.stopLocked()
	d.pending.Add(1)
	d.timer = time.AfterFunc(delay, func() {
		defer d.pending.Done()
		fn()
	})
}

// Stop drops the pending fn, if any.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.stopLocked()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil && d.timer.Stop() {
		d.pending.Done()
	}
	d.timer = nil
}
