package wallet

import "sync"

// Broadcaster delivers snapshots to listeners. Deliveries are serialized, so every listener
// observes snapshots in emission order. Listeners may unsubscribe from within a delivery but
// must not emit.
type Broadcaster struct {
	emitMu sync.Mutex

	mu      sync.Mutex
	current CurrentUser
	failed  bool
	subs    map[uint64]Listener
	next    uint64
}

// NewBroadcaster returns a broadcaster whose current snapshot is initial.
func NewBroadcaster(initial CurrentUser) *Broadcaster {
	return &Broadcaster{current: initial, subs: map[uint64]Listener{}}
}

// Subscribe delivers the current snapshot to fn and registers it for later ones.
func (b *Broadcaster) Subscribe(fn Listener) func() {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	current := b.current
	b.mu.Unlock()

	fn(current, nil)

	var once sync.Once

	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
		})
	}
}

// Current returns the last emitted snapshot.
func (b *Broadcaster) Current() CurrentUser {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.current
}

// Failed reports whether the last delivery was an error.
func (b *Broadcaster) Failed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.failed
}

// Emit stores u as the current snapshot and delivers it.
func (b *Broadcaster) Emit(u CurrentUser) {
	b.deliver(func() { b.current, b.failed = u, false }, u, nil)
}

// Fail delivers err. The current snapshot is kept, but Failed reports true until the next Emit.
func (b *Broadcaster) Fail(err error) {
	b.deliver(func() { b.failed = true }, CurrentUser{}, err)
}

func (b *Broadcaster) deliver(update func(), u CurrentUser, err error) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	b.mu.Lock()
	update()
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.mu.Lock()
		fn, ok := b.subs[id]
		b.mu.Unlock()
		if ok {
			fn(u, err)
		}
	}
}
