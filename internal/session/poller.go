package session

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the refresh period when none is configured.
const DefaultInterval = 1500 * time.Millisecond

// Poller drives a session's refresh cycle for the selected node.
// Refreshes run one at a time on the Run goroutine, so at most one fetch is
// in flight per session.
type Poller struct {
	session  *Session
	interval time.Duration

	mu   sync.Mutex
	node string

	wake chan struct{}
}

// NewPoller creates a poller that starts on node.
func NewPoller(s *Session, node string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		session:  s,
		interval: interval,
		node:     node,
		wake:     make(chan struct{}, 1),
	}
}

// Node returns the currently selected node.
func (p *Poller) Node() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.node
}

// Select switches the polled node and requests an immediate refresh.
func (p *Poller) Select(node string) {
	p.mu.Lock()
	p.node = node
	p.mu.Unlock()
	p.Trigger()
}

// Trigger requests a refresh as soon as the current one (if any) completes.
// Repeated triggers while one is pending collapse into a single refresh.
func (p *Poller) Trigger() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run refreshes immediately, then on every tick or trigger, passing each frame
// to sink. It returns when ctx is done; a fetch in flight at that point is
// canceled and its frame discarded.
func (p *Poller) Run(ctx context.Context, sink func(Frame)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx, sink)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.wake:
			ticker.Reset(p.interval)
		}
		p.refresh(ctx, sink)
	}
}

func (p *Poller) refresh(ctx context.Context, sink func(Frame)) {
	frame := p.session.Refresh(ctx, p.Node())
	if ctx.Err() != nil {
		return
	}
	sink(frame)
}
