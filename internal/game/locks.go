package game

import (
	"context"
	"sync"
)

// Locker serializes read-modify-write cycles on a single party.
type Locker interface {
	Lock(ctx context.Context, partyID string) (unlock func(), err error)
}

// partyLocks is the in-process Locker: one mutex per party, dropped when
// nobody holds or waits for it.
type partyLocks struct {
	mu    sync.Mutex
	locks map[string]*partyLock
}

type partyLock struct {
	ch      chan struct{} // buffered(1); holding the token means holding the lock
	waiters int
}

func newPartyLocks() *partyLocks {
	return &partyLocks{locks: make(map[string]*partyLock)}
}

// Lock waits for the party's lock or ctx.
func (l *partyLocks) Lock(ctx context.Context, partyID string) (func(), error) {
	l.mu.Lock()
	pl, ok := l.locks[partyID]
	if !ok {
		pl = &partyLock{ch: make(chan struct{}, 1)}
		l.locks[partyID] = pl
	}
	pl.waiters++
	l.mu.Unlock()

	select {
	case pl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(partyID, pl, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(partyID, pl, true) }) }, nil
}

func (l *partyLocks) release(partyID string, pl *partyLock, held bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held {
		<-pl.ch
	}
	pl.waiters--
	if pl.waiters == 0 {
		delete(l.locks, partyID)
	}
}

// chainLocks takes each lock in order, so a local mutex can front a
// distributed one and spare it contention from the same process.
type chainLocks []Locker

func (c chainLocks) Lock(ctx context.Context, partyID string) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	undo := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, l := range c {
		u, err := l.Lock(ctx, partyID)
		if err != nil {
			undo()
			return nil, err
		}
		unlocks = append(unlocks, u)
	}
	return undo, nil
}
