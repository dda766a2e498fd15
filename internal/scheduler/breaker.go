package scheduler

import (
	"sync"
	"time"
)

// BreakerStatus is a read-only snapshot of one provider's circuit.
type BreakerStatus struct {
	Provider string    `json:"provider"`
	Failures int       `json:"failures"`
	Open     bool      `json:"open"`
	OpenedAt time.Time `json:"opened_at,omitempty"`
}

type circuit struct {
	failures int
	openedAt time.Time
}

// Breaker tracks consecutive failures per provider and opens the
// circuit at a threshold. An open circuit half-opens after the
// cool-down, letting one attempt through; success closes it, failure
// re-arms the cool-down. Manual Reset closes everything.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	coolDown  time.Duration
	circuits  map[string]*circuit
	now       func() time.Time
}

func NewBreaker(threshold int, coolDown time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		coolDown:  coolDown,
		circuits:  make(map[string]*circuit),
		now:       time.Now,
	}
}

// Allow reports whether the provider may be invoked.
func (b *Breaker) Allow(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[provider]
	if !ok || c.failures < b.threshold {
		return true
	}
	return b.coolDown > 0 && b.now().Sub(c.openedAt) >= b.coolDown
}

// Success closes the provider's circuit and zeroes its counter.
func (b *Breaker) Success(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.circuits, provider)
}

// Failure increments the consecutive-failure counter; crossing the
// threshold (or failing the half-open probe) stamps the open time.
func (b *Breaker) Failure(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[provider]
	if !ok {
		c = &circuit{}
		b.circuits[provider] = c
	}
	c.failures++
	if c.failures >= b.threshold {
		c.openedAt = b.now()
	}
}

// Reset closes all circuits.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.circuits = make(map[string]*circuit)
}

// Statuses reports all providers with a non-zero failure count.
func (b *Breaker) Statuses() []BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]BreakerStatus, 0, len(b.circuits))
	for name, c := range b.circuits {
		out = append(out, BreakerStatus{
			Provider: name,
			Failures: c.failures,
			Open:     c.failures >= b.threshold,
			OpenedAt: c.openedAt,
		})
	}
	return out
}
