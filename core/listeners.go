package core

import "sync"

// listeners is an ordered callback list with stable unsubscribe handles.
// Callbacks run outside the lock so they may subscribe or unsubscribe.
type listeners[F any] struct {
	mu     sync.Mutex
	nextID int
	ids    []int
	fns    []F
}

func (l *listeners[F]) add(fn F) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.ids = append(l.ids, id)
	l.fns = append(l.fns, fn)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners[F]) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, got := range l.ids {
		if got == id {
			l.ids = append(l.ids[:i], l.ids[i+1:]...)
			l.fns = append(l.fns[:i], l.fns[i+1:]...)
			return
		}
	}
}

func (l *listeners[F]) each(call func(F)) {
	l.mu.Lock()
	fns := append([]F(nil), l.fns...)
	l.mu.Unlock()
	for _, fn := range fns {
		call(fn)
	}
}

func (l *listeners[F]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}
