// Package connectivity tracks whether the settlement endpoint is reachable
// and notifies subscribers on transitions. The transfer queue processor is
// driven by these events instead of polling ambient global state.
package connectivity

import (
	"context"
	"log"
	"sync"
	"time"
)

// State is the current link state.
type State string

const (
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// Event is a connectivity transition.
type Event struct {
	State State
	At    time.Time
}

// Observer reports the current link state and emits transitions.
type Observer interface {
	Online() bool
	Subscribe() <-chan Event
}

// HealthChecker is the minimal gateway surface the probe needs.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Probe is an Observer that derives the link state from periodic gateway
// health checks.
type Probe struct {
	checker  HealthChecker
	interval time.Duration

	mu     sync.Mutex
	online bool
	subs   []chan Event
	stop   chan struct{}
	once   sync.Once
}

// NewProbe creates a probe. The state starts offline until the first
// successful health check.
func NewProbe(checker HealthChecker, interval time.Duration) *Probe {
	if checker == nil {
		panic("health checker is required")
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Probe{
		checker:  checker,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (p *Probe) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *Probe) Subscribe() <-chan Event {
	ch := make(chan Event, 4)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

// Start runs the probe loop until Stop is called.
func (p *Probe) Start(ctx context.Context) {
	p.check(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.check(ctx)
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop terminates the probe loop.
func (p *Probe) Stop() {
	p.once.Do(func() { close(p.stop) })
}

func (p *Probe) check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	err := p.checker.Health(checkCtx)
	p.setState(err == nil)
}

// SetOnline forces the state. Exposed for wiring tests and manual triggers
// (an app-foreground ping reuses this path).
func (p *Probe) SetOnline(online bool) {
	p.setState(online)
}

func (p *Probe) setState(online bool) {
	p.mu.Lock()
	changed := p.online != online
	p.online = online
	subs := make([]chan Event, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	if !changed {
		return
	}

	state := StateOffline
	if online {
		state = StateOnline
	}
	log.Printf("connectivity: %s", state)

	ev := Event{State: state, At: time.Now()}
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than block the probe.
		}
	}
}
