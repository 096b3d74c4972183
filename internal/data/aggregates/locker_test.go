package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexLockerSerializesOneBoat(t *testing.T) {
	l := NewKeyedMutexLocker()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), 7)
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxSeen)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.locks) != 0 {
		t.Fatalf("expected lock table to drain, has %d", len(l.locks))
	}
}

func TestKeyedMutexLockerIndependentBoats(t *testing.T) {
	l := NewKeyedMutexLocker()
	unlockA, err := l.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("Lock A: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, 2)
	if err != nil {
		t.Fatalf("Lock B while A held: %v", err)
	}
	unlockB()
}

func TestKeyedMutexLockerHonoursContext(t *testing.T) {
	l := NewKeyedMutexLocker()
	unlock, err := l.Lock(context.Background(), 3)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, 3); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	unlock()
	unlock()

	again, err := l.Lock(context.Background(), 3)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}

func TestBoatLockKey(t *testing.T) {
	if got := boatLockKey(42); got != "fleet:boat-lock:42" {
		t.Fatalf("boatLockKey: %s", got)
	}
}
