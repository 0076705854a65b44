// Package selection holds the active (category, region) filter pair, the
// catalog those values come from, and the picker that is allowed to change it.
package selection

import (
	"sort"
	"sync"
)

// FilterSelection is the active filter pair. Category is a plain string on
// purpose: new categories are catalog data, not code.
type FilterSelection struct {
	Category *string
	Region   *string
}

// CategoryValue returns the category or "" when none is selected.
func (s FilterSelection) CategoryValue() string {
	if s.Category == nil {
		return ""
	}
	return *s.Category
}

// RegionValue returns the region or "" when none is selected.
func (s FilterSelection) RegionValue() string {
	if s.Region == nil {
		return ""
	}
	return *s.Region
}

func (s FilterSelection) HasCategory() bool {
	return s.Category != nil
}

func (s FilterSelection) Equal(other FilterSelection) bool {
	return equalPtr(s.Category, other.Category) && equalPtr(s.Region, other.Region)
}

func (s FilterSelection) clone() FilterSelection {
	return FilterSelection{Category: copyPtr(s.Category), Region: copyPtr(s.Region)}
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Listener is called after the selection changed, outside the state lock.
type Listener func(prev, next FilterSelection)

// State is the single active FilterSelection. Anyone may read it or subscribe;
// only a Picker can write it.
type State struct {
	mu        sync.RWMutex
	current   FilterSelection
	listeners map[int]Listener
	nextID    int
}

func NewState() *State {
	return &State{listeners: make(map[int]Listener)}
}

// Current returns a copy of the active selection.
func (s *State) Current() FilterSelection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Subscribe registers fn for change notifications. The returned func removes it
// and is safe to call more than once.
func (s *State) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// set replaces the selection and notifies listeners in subscription order.
// It reports whether anything changed.
func (s *State) set(next FilterSelection) bool {
	return s.update(func(FilterSelection) (FilterSelection, bool) {
		return next, true
	})
}

// update derives the next selection from the current one under the lock, then
// notifies listeners after releasing it. fn returning false leaves the
// selection as it is.
func (s *State) update(fn func(current FilterSelection) (FilterSelection, bool)) bool {
	s.mu.Lock()
	next, ok := fn(s.current.clone())
	if !ok || s.current.Equal(next) {
		s.mu.Unlock()
		return false
	}
	prev := s.current.clone()
	s.current = next.clone()

	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(prev, next.clone())
	}
	return true
}
