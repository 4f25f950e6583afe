package analytics

import (
	"context"
	"sync"
)

// Fake records tracked events for test assertions.
type Fake struct {
	mu     sync.Mutex
	events []Event
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Track(_ context.Context, name string, properties map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, Event{Name: name, Properties: properties})
}

// Events returns a copy of everything tracked so far.
func (f *Fake) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event{}, f.events...)
}

// Tracked reports whether an event with the given name was recorded.
func (f *Fake) Tracked(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Count returns how many events with the given name were recorded.
func (f *Fake) Count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Name == name {
			n++
		}
	}
	return n
}
