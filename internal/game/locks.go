package game

import "sync"

// keyLocks выдаёт мьютекс на конкретную сессию: операции разных сессий
// не блокируют друг друга, операции одной сессии сериализуются.
type keyLocks struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{entries: make(map[int64]*lockEntry)}
}

// lock захватывает мьютекс сессии и возвращает функцию освобождения.
func (k *keyLocks) lock(id int64) func() {
	k.mu.Lock()
	e, ok := k.entries[id]
	if !ok {
		e = &lockEntry{}
		k.entries[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, id)
		}
		k.mu.Unlock()
	}
}
