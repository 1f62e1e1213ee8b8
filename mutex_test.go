package httpcache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutexExcludesConcurrentHolders(t *testing.T) {
	km := newKeyedMutex()
	var active atomic.Int32
	var maxActive atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := km.Acquire("same-key")
			defer l.Release()

			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), maxActive.Load())
}

func TestKeyedMutexDifferentKeysDoNotBlock(t *testing.T) {
	km := newKeyedMutex()
	done := make(chan struct{})

	l1 := km.Acquire("a")
	go func() {
		l2 := km.Acquire("b")
		defer l2.Release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquiring a different key should not block")
	}
	l1.Release()
}

func TestKeyedMutexEntryRemovedAfterRelease(t *testing.T) {
	km := newKeyedMutex()
	l := km.Acquire("k")
	l.Release()

	km.mu.Lock()
	_, exists := km.entries["k"]
	km.mu.Unlock()
	require.False(t, exists)
}

func TestLeaseReleaseIsIdempotent(t *testing.T) {
	km := newKeyedMutex()
	l := km.Acquire("k")
	l.Release()
	require.NotPanics(t, func() { l.Release() })
}
