package support

import (
	"context"
	"sync"
	"testing"
)

func TestSharedKeyLockSerializesSameKey(t *testing.T) {
	skl := NewSharedKeyLock()
	ctx := context.Background()

	const goroutines = 8
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := skl.Lock(ctx, "1/example.com/_spf.google.com")
			if err != nil {
				t.Errorf("Lock returned %v", err)
				return
			}
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != goroutines {
		t.Fatalf("counter is %d, want %d", counter, goroutines)
	}
}

func TestSharedKeyLockIndependentKeys(t *testing.T) {
	skl := NewSharedKeyLock()
	ctx := context.Background()

	unlockA, err := skl.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock(a) returned %v", err)
	}

	done := make(chan struct{})
	go func() {
		unlockB, err := skl.Lock(ctx, "b")
		if err != nil {
			t.Errorf("Lock(b) returned %v", err)
		} else {
			unlockB()
		}
		close(done)
	}()

	<-done
	unlockA()
}
