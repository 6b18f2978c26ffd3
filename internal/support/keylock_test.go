package support

import (
	"sync"
	"testing"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	kl := NewKeyLock()

	const goroutines = 16
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("example.com|_spf.google.com")
			counter++
			kl.Unlock("example.com|_spf.google.com")
		}()
	}
	wg.Wait()

	if counter != goroutines {
		t.Fatalf("counter is %d, want %d", counter, goroutines)
	}

	kl.mu.Lock()
	remaining := len(kl.locks)
	kl.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("lock table still holds %d entries, want 0", remaining)
	}
}

func TestKeyLockIndependentKeys(t *testing.T) {
	kl := NewKeyLock()

	kl.Lock("a")

	done := make(chan struct{})
	go func() {
		kl.Lock("b")
		kl.Unlock("b")
		close(done)
	}()

	<-done
	kl.Unlock("a")
}

func TestKeyTracker(t *testing.T) {
	var tracker KeyTracker

	if !tracker.TryAcquire("1/example.com") {
		t.Fatal("TryAcquire on a free key returned false")
	}
	if tracker.TryAcquire("1/example.com") {
		t.Fatal("TryAcquire on a held key returned true")
	}
	if !tracker.TryAcquire("2/example.com") {
		t.Fatal("TryAcquire on a different key returned false")
	}

	tracker.Release("1/example.com")
	if !tracker.TryAcquire("1/example.com") {
		t.Fatal("TryAcquire after Release returned false")
	}
}
