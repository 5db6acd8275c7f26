package offline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// Connectivity answers "are we online right now". The coordinator consults
// it before every operation; it never probes mid-mutation.
type Connectivity interface {
	IsOnline() bool
}

// Flag is a manually driven connectivity switch, set by the embedding
// application from its platform online/offline notifications.
type Flag struct {
	online atomic.Bool
}

// NewFlag creates a Flag with the given initial state.
func NewFlag(online bool) *Flag {
	f := &Flag{}
	f.online.Store(online)
	return f
}

func (f *Flag) IsOnline() bool { return f.online.Load() }

// Set flips the connectivity state.
func (f *Flag) Set(online bool) { f.online.Store(online) }

// Prober checks reachability of the API base URL with a short-lived cached
// verdict, for environments without a platform connectivity signal.
type Prober struct {
	client *resty.Client
	ttl    time.Duration

	mu        sync.Mutex
	checkedAt time.Time
	verdict   bool
}

// NewProber creates a Prober against baseURL, caching each verdict for ttl.
func NewProber(baseURL string, ttl time.Duration) *Prober {
	return &Prober{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(3 * time.Second),
		ttl:    ttl,
	}
}

func (p *Prober) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.checkedAt) < p.ttl {
		return p.verdict
	}

	_, err := p.client.R().Head("/")
	p.verdict = err == nil
	p.checkedAt = time.Now()
	return p.verdict
}
