package hooks

import "sync"

// Bus broadcasts game events to "all" and "by category" listener sets so UI
// code can filter without hook authors knowing about presentation.
type Bus struct {
	mu         sync.Mutex
	nextID     uint64
	all        map[uint64]func(GameEvent)
	byCategory map[string]map[uint64]func(GameEvent)
}

func NewBus() *Bus {
	return &Bus{
		all:        make(map[uint64]func(GameEvent)),
		byCategory: make(map[string]map[uint64]func(GameEvent)),
	}
}

// OnEvent subscribes to every event. The returned function unsubscribes.
func (b *Bus) OnEvent(cb func(GameEvent)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.all[id] = cb
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.all, id)
		b.mu.Unlock()
	}
}

// OnEventCategory subscribes to one category. The returned function
// unsubscribes.
func (b *Bus) OnEventCategory(category string, cb func(GameEvent)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	set, ok := b.byCategory[category]
	if !ok {
		set = make(map[uint64]func(GameEvent))
		b.byCategory[category] = set
	}
	set[id] = cb
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		if set, ok := b.byCategory[category]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(b.byCategory, category)
			}
		}
		b.mu.Unlock()
	}
}

// Publish fans the event out to the "all" set and the matching category set.
// Callbacks run on the publisher's goroutine.
func (b *Bus) Publish(ev GameEvent) {
	b.mu.Lock()
	callbacks := make([]func(GameEvent), 0, len(b.all))
	for _, cb := range b.all {
		callbacks = append(callbacks, cb)
	}
	if set, ok := b.byCategory[ev.Category]; ok {
		for _, cb := range set {
			callbacks = append(callbacks, cb)
		}
	}
	b.mu.Unlock()

	for _, cb := range callbacks {
		cb(ev)
	}
}
