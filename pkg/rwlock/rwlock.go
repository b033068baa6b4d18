// Package rwlock is a reader/writer lock whose acquisitions honour context
// cancellation, with read scopes that can be upgraded to write scopes.
package rwlock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// maxReaders bounds concurrent read scopes. A write scope holds all of them.
const maxReaders = 1 << 20

// Release ends a scope. Calling it more than once is harmless.
type Release func()

// RWLock hands out shared read scopes and exclusive write scopes. Waiters are
// served in arrival order, so a waiting writer holds back readers that
// arrive after it.
type RWLock struct {
	readers *semaphore.Weighted
	// held by writers and by upgradeable readers, so at most one of them can
	// be waiting to become exclusive
	upgrade *semaphore.Weighted
}

func New() *RWLock {
	return &RWLock{
		readers: semaphore.NewWeighted(maxReaders),
		upgrade: semaphore.NewWeighted(1),
	}
}

// Read acquires a shared scope.
func (l *RWLock) Read(ctx context.Context) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.readers.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return once(func() { l.readers.Release(1) }), nil
}

// Write acquires an exclusive scope.
func (l *RWLock) Write(ctx context.Context) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.upgrade.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := l.readers.Acquire(ctx, maxReaders); err != nil {
		l.upgrade.Release(1)
		return nil, err
	}
	return once(func() {
		l.readers.Release(maxReaders)
		l.upgrade.Release(1)
	}), nil
}

// UpgradeableRead acquires a shared scope that may later become exclusive.
// Only one upgradeable scope exists at a time; plain readers run alongside
// it.
func (l *RWLock) UpgradeableRead(ctx context.Context) (*UpgradeableScope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.upgrade.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := l.readers.Acquire(ctx, 1); err != nil {
		l.upgrade.Release(1)
		return nil, err
	}
	return &UpgradeableScope{l: l}, nil
}

type UpgradeableScope struct {
	l *RWLock

	mu       sync.Mutex
	upgraded bool
	released bool
}

// Upgrade waits for the other readers to leave and makes the scope
// exclusive until the returned Release is called.
func (s *UpgradeableScope) Upgrade(ctx context.Context) (Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || s.upgraded {
		return nil, errUpgrade(s.released)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.l.readers.Acquire(ctx, maxReaders-1); err != nil {
		return nil, err
	}
	s.upgraded = true

	return once(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.upgraded {
			s.l.readers.Release(maxReaders - 1)
			s.upgraded = false
		}
	}), nil
}

// Release ends the scope, including any upgrade still in effect.
func (s *UpgradeableScope) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	if s.upgraded {
		s.l.readers.Release(maxReaders - 1)
		s.upgraded = false
	}
	s.l.readers.Release(1)
	s.l.upgrade.Release(1)
	s.released = true
}

func once(f func()) Release {
	return Release(sync.OnceFunc(f))
}
