package database

import (
	"context"
	"sync"

	"snapshop/models"
)

// Feed shares one user-collection subscription between many subscribers.
// It wraps a Store and replaces its WatchUsers; the other methods pass
// through. Run must be running for subscribers to receive anything.
type Feed struct {
	Store

	mu     sync.RWMutex
	latest []models.User
	ready  bool
	subs   map[chan struct{}]struct{}
}

func NewFeed(store Store) *Feed {
	return &Feed{
		Store: store,
		subs:  make(map[chan struct{}]struct{}),
	}
}

// Run holds the upstream subscription until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	return f.Store.WatchUsers(ctx, f.publish)
}

func (f *Feed) publish(users []models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest = users
	f.ready = true
	for ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (f *Feed) WatchUsers(ctx context.Context, fn func([]models.User)) error {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	if f.ready {
		ch <- struct{}{}
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			fn(f.snapshot())
		}
	}
}

func (f *Feed) snapshot() []models.User {
	f.mu.RLock()
	defer f.mu.RUnlock()

	users := make([]models.User, len(f.latest))
	for i, u := range f.latest {
		users[i] = cloneUser(u)
	}
	return users
}
