// Package credential implements a rotating pool of access credentials
// for quota-limited providers. Selection sticks with one credential
// until it runs out of headroom, then rotates to the next; exhaustion
// state resets at UTC midnight or on manual reset.
package credential

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/niananto/online-news-scrapers/internal/domain"
)

// Credential is one opaque access token with a daily unit ceiling.
// All fields are guarded by the owning pool's mutex.
type Credential struct {
	Key       string
	Ceiling   int
	Used      int
	Exhausted bool
}

// hash gives a loggable identifier that never exposes the key itself.
func (c *Credential) hash() string {
	sum := md5.Sum([]byte(c.Key))
	return hex.EncodeToString(sum[:])[:8]
}

// Status is a read-only snapshot of one credential for the control
// surface.
type Status struct {
	Index     int    `json:"index"`
	Hash      string `json:"hash"`
	Used      int    `json:"used"`
	Ceiling   int    `json:"ceiling"`
	Exhausted bool   `json:"exhausted"`
}

type Pool struct {
	mu      sync.Mutex
	creds   []*Credential
	current int
	resetAt time.Time
	now     func() time.Time
	logger  *slog.Logger
}

func NewPool(keys []string, ceiling int, logger *slog.Logger) (*Pool, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("at least one credential is required")
	}

	creds := make([]*Credential, len(keys))
	for i, key := range keys {
		creds[i] = &Credential{Key: key, Ceiling: ceiling}
	}

	p := &Pool{
		creds:  creds,
		now:    time.Now,
		logger: logger,
	}
	p.resetAt = nextUTCMidnight(p.now())

	logger.Info("credential pool initialized",
		"credentials", len(creds),
		"daily_ceiling", ceiling,
		"next_reset", p.resetAt,
	)
	return p, nil
}

// Acquire returns a credential with at least cost units of headroom,
// or domain.ErrQuotaExhausted when no credential qualifies. The pool
// keeps serving the same credential until it no longer fits, then
// rotates forward.
func (p *Pool) Acquire(cost int) (*Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetIfDue()

	for attempts := 0; attempts < len(p.creds); attempts++ {
		idx := (p.current + attempts) % len(p.creds)
		c := p.creds[idx]
		if c.Exhausted || c.Ceiling-c.Used < cost {
			continue
		}
		if idx != p.current {
			p.logger.Info("rotating credential",
				"from", p.creds[p.current].hash(),
				"to", c.hash(),
			)
			p.current = idx
		}
		return c, nil
	}

	return nil, fmt.Errorf("%w: %d credentials, next reset %s",
		domain.ErrQuotaExhausted, len(p.creds), p.resetAt.Format(time.RFC3339))
}

// ReportUsage charges cost units against the credential and flags it
// exhausted once the ceiling is reached.
func (p *Pool) ReportUsage(c *Credential, cost int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c.Used += cost
	if c.Used >= c.Ceiling && !c.Exhausted {
		c.Exhausted = true
		p.logger.Warn("credential reached ceiling", "credential", c.hash(), "used", c.Used)
	}
}

// ReportFailure inspects a provider error; a quota violation exhausts
// the credential immediately even if local accounting is under the
// ceiling. The provider's own signal is authoritative.
func (p *Pool) ReportFailure(c *Credential, err error) {
	if !domain.IsQuotaViolation(err) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !c.Exhausted {
		c.Exhausted = true
		p.logger.Warn("credential exhausted by provider signal",
			"credential", c.hash(),
			"error", err,
		)
	}
}

// Reset zeroes usage and clears exhaustion for every credential. Called
// automatically at the UTC day boundary and manually via the control
// surface.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

func (p *Pool) reset() {
	for _, c := range p.creds {
		c.Used = 0
		c.Exhausted = false
	}
	p.resetAt = nextUTCMidnight(p.now())
	p.logger.Info("credential pool reset", "next_reset", p.resetAt)
}

func (p *Pool) resetIfDue() {
	if !p.now().Before(p.resetAt) {
		p.reset()
	}
}

// Statuses reports a snapshot of every credential.
func (p *Pool) Statuses() []Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Status, len(p.creds))
	for i, c := range p.creds {
		out[i] = Status{
			Index:     i + 1,
			Hash:      c.hash(),
			Used:      c.Used,
			Ceiling:   c.Ceiling,
			Exhausted: c.Exhausted,
		}
	}
	return out
}

func nextUTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
}
