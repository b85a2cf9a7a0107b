package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while a Breaker is refusing calls.
var ErrBreakerOpen = errors.New("breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// Breaker stops calling a flaky optional dependency after FailureThreshold
// consecutive failures. Once Cooldown has passed a single probe call is let
// through; its outcome closes or re-opens the breaker.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "breaker", "name", name),
	}
}

// Do runs fn unless the breaker is open, in which case it returns
// ErrBreakerOpen without calling fn.
func (b *Breaker) Do(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return fmt.Errorf("%w: %s", ErrBreakerOpen, b.name)
		}
		b.state = StateHalfOpen
		b.probing = true
		b.logger.Info("breaker half-open, probing")
	case StateHalfOpen:
		if b.probing {
			return fmt.Errorf("%w: %s (probe in flight)", ErrBreakerOpen, b.name)
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	if err == nil {
		if b.state != StateClosed {
			b.logger.Info("breaker closed")
		}
		b.state = StateClosed
		b.failures = 0
		return
	}
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		if b.state != StateOpen {
			b.logger.Warn("breaker opened", "consecutive_failures", b.failures, "cooldown", b.cfg.Cooldown)
		}
		b.state = StateOpen
		b.openedAt = b.now()
	}
}
