package rwlock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/msbuildls/pkg/rwlock"
)

func shortCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestReadersShare(t *testing.T) {
	l := rwlock.New()
	ctx := context.Background()

	r1, err := l.Read(ctx)
	require.NoError(t, err)
	r2, err := l.Read(ctx)
	require.NoError(t, err)

	r1()
	r2()
	r2()
}

func TestWriterExcludesReaders(t *testing.T) {
	l := rwlock.New()
	ctx := context.Background()

	r, err := l.Read(ctx)
	require.NoError(t, err)

	_, err = l.Write(shortCtx(t))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	r()

	w, err := l.Write(ctx)
	require.NoError(t, err)

	_, err = l.Read(shortCtx(t))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	w()

	r, err = l.Read(ctx)
	require.NoError(t, err)
	r()
}

func TestCancelledBeforeAcquire(t *testing.T) {
	l := rwlock.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Read(ctx)
	require.ErrorIs(t, err, context.Canceled)
	_, err = l.Write(ctx)
	require.ErrorIs(t, err, context.Canceled)
	_, err = l.UpgradeableRead(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// nothing leaked
	w, err := l.Write(context.Background())
	require.NoError(t, err)
	w()
}

func TestFailedWriteReleasesItsClaim(t *testing.T) {
	l := rwlock.New()
	ctx := context.Background()

	r, err := l.Read(ctx)
	require.NoError(t, err)

	_, err = l.Write(shortCtx(t))
	require.Error(t, err)

	// the abandoned writer must not block new upgradeable readers
	u, err := l.UpgradeableRead(shortCtx(t))
	require.NoError(t, err)
	u.Release()
	r()
}

func TestUpgradeableRead(t *testing.T) {
	l := rwlock.New()
	ctx := context.Background()

	u, err := l.UpgradeableRead(ctx)
	require.NoError(t, err)

	// plain readers run alongside
	r, err := l.Read(ctx)
	require.NoError(t, err)

	// a second upgradeable reader waits
	_, err = l.UpgradeableRead(shortCtx(t))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// upgrading waits for the plain reader
	_, err = u.Upgrade(shortCtx(t))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	r()

	downgrade, err := u.Upgrade(ctx)
	require.NoError(t, err)

	_, err = u.Upgrade(ctx)
	require.ErrorIs(t, err, rwlock.ErrAlreadyUpgraded)

	_, err = l.Read(shortCtx(t))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	downgrade()

	r, err = l.Read(ctx)
	require.NoError(t, err)
	r()

	u.Release()
	u.Release()

	_, err = u.Upgrade(ctx)
	require.ErrorIs(t, err, rwlock.ErrReleased)

	w, err := l.Write(ctx)
	require.NoError(t, err)
	w()
}

func TestReleaseWhileUpgraded(t *testing.T) {
	l := rwlock.New()
	ctx := context.Background()

	u, err := l.UpgradeableRead(ctx)
	require.NoError(t, err)
	downgrade, err := u.Upgrade(ctx)
	require.NoError(t, err)

	u.Release()
	downgrade()

	w, err := l.Write(shortCtx(t))
	require.NoError(t, err)
	w()
}

func TestWritesAreSerialized(t *testing.T) {
	l := rwlock.New()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
		counter int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(write bool) {
			defer wg.Done()
			var release rwlock.Release
			var err error
			if write {
				release, err = l.Write(ctx)
			} else {
				release, err = l.Read(ctx)
			}
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			if write {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				counter++
				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
			}
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 10, counter)
}
