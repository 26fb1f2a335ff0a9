package database

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"snapshop/models"
)

// MemoryStore is a Store kept in process memory. Changes are delivered to
// watchers asynchronously, and a burst of changes may reach a watcher as a
// single snapshot.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	ids      []string
	watchers map[*memoryWatcher]struct{}
	failWith error
}

type memoryWatcher struct {
	userID  string // empty watches the whole collection
	changed chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		watchers: make(map[*memoryWatcher]struct{}),
	}
}

// SetFailure makes every following write return err. nil restores normal behaviour.
func (s *MemoryStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *MemoryStore) Get(id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (s *MemoryStore) List() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.ids))
	for _, id := range s.ids {
		users = append(users, cloneUser(s.users[id]))
	}
	return users
}

func (s *MemoryStore) WatchUsers(ctx context.Context, fn func([]models.User)) error {
	w := s.register("")
	defer s.unregister(w)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.changed:
			fn(s.List())
		}
	}
}

func (s *MemoryStore) WatchUser(ctx context.Context, id string, fn func(models.User)) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	w := s.register(id)
	defer s.unregister(w)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.changed:
			user, err := s.Get(id)
			if err != nil {
				return err
			}
			fn(user)
		}
	}
}

func (s *MemoryStore) register(userID string) *memoryWatcher {
	w := &memoryWatcher{userID: userID, changed: make(chan struct{}, 1)}
	w.changed <- struct{}{}

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()
	return w
}

func (s *MemoryStore) unregister(w *memoryWatcher) {
	s.mu.Lock()
	delete(s.watchers, w)
	s.mu.Unlock()
}

// notify must be called with s.mu held.
func (s *MemoryStore) notify(userID string) {
	for w := range s.watchers {
		if w.userID != "" && w.userID != userID {
			continue
		}
		select {
		case w.changed <- struct{}{}:
		default:
		}
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, user models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return "", s.failWith
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return "", ErrDuplicateEmail
		}
	}

	user = cloneUser(normalize(user))
	user.ID = uuid.NewString()
	s.users[user.ID] = user
	s.ids = append(s.ids, user.ID)
	s.notify(user.ID)
	return user.ID, nil
}

func (s *MemoryStore) SetCart(ctx context.Context, userID string, cart []models.CartItem) error {
	return s.update(userID, func(u *models.User) {
		u.Cart = append([]models.CartItem{}, cart...)
	})
}

func (s *MemoryStore) AddToCart(ctx context.Context, userID string, item models.CartItem) error {
	return s.update(userID, func(u *models.User) {
		for _, existing := range u.Cart {
			if existing == item {
				return
			}
		}
		u.Cart = append(u.Cart, item)
	})
}

func (s *MemoryStore) RemoveFromCart(ctx context.Context, userID string, item models.CartItem) error {
	return s.update(userID, func(u *models.User) {
		kept := make([]models.CartItem, 0, len(u.Cart))
		for _, existing := range u.Cart {
			if existing != item {
				kept = append(kept, existing)
			}
		}
		u.Cart = kept
	})
}

func (s *MemoryStore) AddOrder(ctx context.Context, userID string, order models.Order) error {
	order.List = append([]models.CartItem{}, order.List...)
	return s.update(userID, func(u *models.User) {
		for _, existing := range u.Orders {
			if reflect.DeepEqual(existing, order) {
				return
			}
		}
		u.Orders = append(u.Orders, order)
	})
}

func (s *MemoryStore) update(userID string, mutate func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	mutate(&user)
	s.users[userID] = user
	s.notify(userID)
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func cloneUser(u models.User) models.User {
	u.Cart = append([]models.CartItem{}, u.Cart...)
	orders := make([]models.Order, len(u.Orders))
	for i, o := range u.Orders {
		o.List = append([]models.CartItem{}, o.List...)
		orders[i] = o
	}
	u.Orders = orders
	return u
}
