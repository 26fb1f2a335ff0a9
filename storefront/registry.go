package storefront

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"snapshop/notify"
)

// Factory builds the client of one browser session. Toasts raised by the
// client must go to notifier.
type Factory func(sessionID string, notifier notify.Notifier) (*Client, error)

// Session is a started client together with the toasts it raised.
type Session struct {
	ID     string
	Client *Client
	Toasts *notify.Queue

	ctx context.Context
}

// WatchCart starts the cart subscription for the session's signed-in user.
// It lives as long as the session does.
func (s *Session) WatchCart() error {
	return s.Client.LoadCartAndOrders(s.ctx)
}

// Registry owns one client per browser session. Clients are started on first
// use: user list loaded, stored session restored, cart subscribed.
type Registry struct {
	ctx     context.Context
	factory Factory
	idle    time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	session  *Session
	cancel   context.CancelFunc
	ready    chan struct{}
	err      error
	lastSeen time.Time
}

// NewRegistry ties every client's subscriptions to ctx.
func NewRegistry(ctx context.Context, factory Factory, idle time.Duration) *Registry {
	return &Registry{
		ctx:     ctx,
		factory: factory,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Get returns the session, starting its client if needed. It waits for the
// client to be ready or ctx to be done.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Session, error) {
	e, err := r.entry(sessionID)
	if err != nil {
		return nil, err
	}

	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.err != nil {
		r.evict(sessionID, e)
		return nil, e.err
	}
	return e.session, nil
}

func (r *Registry) entry(sessionID string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[sessionID]; ok {
		e.lastSeen = r.now()
		return e, nil
	}

	queue := notify.NewQueue()
	client, err := r.factory(sessionID, notify.Multi{queue, notify.Logger{Prefix: "[" + sessionID[:min(8, len(sessionID))] + "] "}})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(r.ctx)
	e := &entry{
		session:  &Session{ID: sessionID, Client: client, Toasts: queue, ctx: ctx},
		cancel:   cancel,
		ready:    make(chan struct{}),
		lastSeen: r.now(),
	}
	r.entries[sessionID] = e
	go r.start(ctx, e)
	return e, nil
}

func (r *Registry) start(ctx context.Context, e *entry) {
	defer close(e.ready)

	client := e.session.Client
	if err := client.LoadUserList(ctx); err != nil {
		e.err = err
		return
	}

	err := client.RestoreSession()
	if errors.Is(err, ErrNoSession) {
		return
	}
	if err != nil {
		log.Printf("⚠️ restore session %s: %v", e.session.ID, err)
		return
	}
	if err := e.session.WatchCart(); err != nil {
		log.Printf("⚠️ cart subscription for session %s: %v", e.session.ID, err)
	}
}

func (r *Registry) evict(sessionID string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries[sessionID] == e {
		delete(r.entries, sessionID)
	}
	e.cancel()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts sessions not used for longer than the idle timeout and
// returns how many were evicted.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	evicted := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			e.cancel()
			delete(r.entries, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps idle sessions until ctx is done, then stops every client.
func (r *Registry) Run(ctx context.Context) error {
	interval := r.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			for id, e := range r.entries {
				e.cancel()
				delete(r.entries, id)
			}
			r.mu.Unlock()
			return nil
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Printf("🧹 Evicted %d idle sessions", n)
			}
		}
	}
}
