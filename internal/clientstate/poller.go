package clientstate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LahoumaBarik/SchoolBag/pkg/logger"
)

// DefaultPollInterval matches the badge refresh cadence of the web client.
const DefaultPollInterval = 30 * time.Second

// Poller periodically refreshes the unread badge count. A failed poll keeps
// the previous count; the next tick simply tries again.
type Poller struct {
	state    *State
	interval time.Duration
	log      *zap.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewPoller constructs a Poller. A non-positive interval falls back to the
// default.
func NewPoller(state *State, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		state:    state,
		interval: interval,
		log:      logger.WithComponent("clientstate"),
	}
}

// Start launches the polling loop. Starting an already-running poller is a
// no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stop, p.done)
}

// Stop halts the polling loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (p *Poller) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	if err := p.state.RefreshCount(ctx); err != nil {
		p.log.Warn("unread count poll failed", zap.Error(err))
	}
}
