package cache

import (
	"container/list"
	"sync"
)

// Store is a bounded per-user key/value cache. Each user owns an isolated
// bucket of entries; when the user limit is exceeded the least recently used
// user's bucket is evicted whole. Buckets never leak across users.
type Store struct {
	mu       sync.Mutex
	maxUsers int
	order    *list.List               // front = most recently used
	users    map[string]*list.Element // userID -> element holding *bucket
}

type bucket struct {
	userID  string
	entries map[string]string
}

// New creates a cache that keeps entries for at most maxUsers users
func New(maxUsers int) *Store {
	if maxUsers <= 0 {
		maxUsers = 1
	}
	return &Store{
		maxUsers: maxUsers,
		order:    list.New(),
		users:    make(map[string]*list.Element),
	}
}

func (s *Store) Get(userID, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.users[userID]
	if !ok {
		return "", false
	}
	s.order.MoveToFront(elem)
	value, ok := elem.Value.(*bucket).entries[key]
	return value, ok
}

func (s *Store) Put(userID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.users[userID]
	if !ok {
		if len(s.users) >= s.maxUsers {
			s.evictOldest()
		}
		elem = s.order.PushFront(&bucket{userID: userID, entries: make(map[string]string)})
		s.users[userID] = elem
	} else {
		s.order.MoveToFront(elem)
	}
	elem.Value.(*bucket).entries[key] = value
}

// Evict removes every cached entry for a user
func (s *Store) Evict(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.users[userID]; ok {
		s.order.Remove(elem)
		delete(s.users, userID)
	}
}

// Users reports how many user buckets are currently held
func (s *Store) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) evictOldest() {
	back := s.order.Back()
	if back == nil {
		return
	}
	s.order.Remove(back)
	delete(s.users, back.Value.(*bucket).userID)
}
