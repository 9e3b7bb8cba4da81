package set

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Returned when an added key already exists in the set.
var ErrCollision = errors.New("key already exists")

// Returned when a requested item does not exist in the set.
var ErrMissing = errors.New("item does not exist")

// Returned when a nil item is added.
var ErrNil = errors.New("item value must not be nil")

// Set is a keyed collection safe for concurrent use. Keys are compared
// case-insensitively.
type Set struct {
	sync.RWMutex
	lookup    map[string]Item
	normalize func(string) string
}

// New creates a new set with case-insensitive keys
func New() *Set {
	return &Set{
		lookup:    map[string]Item{},
		normalize: normalize,
	}
}

// Len returns the size of the set right now.
func (s *Set) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.lookup)
}

// Get returns an item with the given key.
func (s *Set) Get(key string) (Item, error) {
	key = s.normalize(key)
	s.RLock()
	item, ok := s.lookup[key]
	s.RUnlock()
	if !ok {
		return nil, ErrMissing
	}
	return item, nil
}

// AddNew adds item to this set if its key does not exist already.
func (s *Set) AddNew(item Item) error {
	if item == nil || item.Value() == nil {
		return ErrNil
	}
	key := s.normalize(item.Key())

	s.Lock()
	defer s.Unlock()

	if _, found := s.lookup[key]; found {
		return ErrCollision
	}
	s.lookup[key] = item
	return nil
}

// Remove item from this set.
func (s *Set) Remove(key string) error {
	key = s.normalize(key)

	s.Lock()
	defer s.Unlock()

	if _, found := s.lookup[key]; !found {
		return ErrMissing
	}
	delete(s.lookup, key)
	return nil
}

// Replace oldKey with a new item, which might be a new key.
// Can be used to rename items. Fails with ErrCollision when the new key
// belongs to another item and leaves the set untouched.
func (s *Set) Replace(oldKey string, item Item) error {
	if item == nil || item.Value() == nil {
		return ErrNil
	}
	newKey := s.normalize(item.Key())
	oldKey = s.normalize(oldKey)

	s.Lock()
	defer s.Unlock()

	if _, found := s.lookup[oldKey]; !found {
		return ErrMissing
	}
	if newKey != oldKey {
		if _, found := s.lookup[newKey]; found {
			return ErrCollision
		}
		delete(s.lookup, oldKey)
	}
	s.lookup[newKey] = item
	return nil
}

// Items returns a snapshot of the set, ordered by normalized key.
func (s *Set) Items() []Item {
	s.RLock()
	keys := make([]string, 0, len(s.lookup))
	for key := range s.lookup {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	r := make([]Item, 0, len(keys))
	for _, key := range keys {
		r = append(r, s.lookup[key])
	}
	s.RUnlock()
	return r
}

func normalize(key string) string {
	return strings.ToLower(key)
}
