// Package throttle limits how often a keyed operation may run.
package throttle

import (
	"sync"

	"github.com/Laisky/errors/v2"
	"golang.org/x/time/rate"
)

// Config configures a Throttle. Rates are events per second.
type Config struct {
	TotalPerSec float64
	TotalBurst  int
	EachPerSec  float64
	EachBurst   int
}

// DefaultLoginConfig allows a burst of 5 attempts per user refilled every 12s,
// and 20 attempts overall per second.
var DefaultLoginConfig = Config{
	TotalPerSec: 20,
	TotalBurst:  40,
	EachPerSec:  1.0 / 12,
	EachBurst:   5,
}

// Throttle applies a shared limit plus one limit per key.
type Throttle struct {
	mu    sync.Mutex
	cfg   Config
	total *rate.Limiter
	each  map[string]*rate.Limiter
}

// New creates a Throttle.
func New(cfg Config) (*Throttle, error) {
	if cfg.TotalPerSec <= 0 || cfg.EachPerSec <= 0 {
		return nil, errors.New("per second rate must be bigger than 0")
	}
	if cfg.TotalBurst < 1 || cfg.EachBurst < 1 {
		return nil, errors.New("burst must be at least 1")
	}

	return &Throttle{
		cfg:   cfg,
		total: rate.NewLimiter(rate.Limit(cfg.TotalPerSec), cfg.TotalBurst),
		each:  make(map[string]*rate.Limiter),
	}, nil
}

// MustNew is like New but panics on an invalid config.
func MustNew(cfg Config) *Throttle {
	t, err := New(cfg)
	if err != nil {
		panic(err)
	}

	return t
}

// Allow reports whether key may proceed now. A rejected key does not consume
// a token from the shared limit.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	l, ok := t.each[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(t.cfg.EachPerSec), t.cfg.EachBurst)
		t.each[key] = l
	}
	t.mu.Unlock()

	return l.Allow() && t.total.Allow()
}

// Reset forgets key, e.g. after a successful login.
func (t *Throttle) Reset(key string) {
	t.mu.Lock()
	delete(t.each, key)
	t.mu.Unlock()
}
