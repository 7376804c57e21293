package gacha

import "sync"

// playerLocks serializes work per player id. Entries are dropped once no
// goroutine holds or waits on them, so the map only grows with concurrency,
// not with the player base.
type playerLocks struct {
	mu sync.Mutex
	m  map[string]*playerLock
}

type playerLock struct {
	mu   sync.Mutex
	refs int
}

func newPlayerLocks() *playerLocks {
	return &playerLocks{m: make(map[string]*playerLock)}
}

// lock blocks until id is free and returns the matching unlock.
func (p *playerLocks) lock(id string) func() {
	p.mu.Lock()
	l, ok := p.m[id]
	if !ok {
		l = &playerLock{}
		p.m[id] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.m, id)
		}
		p.mu.Unlock()
	}
}

func (p *playerLocks) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
