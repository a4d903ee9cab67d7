package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal()
	var inside, peak int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Obtain(context.Background(), "period")
			if err != nil {
				t.Errorf("Obtain: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	if peak != 1 {
		t.Errorf("peak holders = %d, want 1", peak)
	}
}

func TestLocal_ContextTimeout(t *testing.T) {
	l := NewLocal()
	release, err := l.Obtain(context.Background(), "k")
	if err != nil {
		t.Fatalf("Obtain: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Obtain(ctx, "k"); !errors.Is(err, ErrNotObtained) {
		t.Fatalf("err = %v, want ErrNotObtained", err)
	}

	// Other keys are independent.
	other, err := l.Obtain(context.Background(), "other")
	if err != nil {
		t.Fatalf("Obtain other: %v", err)
	}
	other()
}

func TestLocal_ReleaseTwice(t *testing.T) {
	l := NewLocal()
	release, _ := l.Obtain(context.Background(), "k")
	release()
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	again, err := l.Obtain(ctx, "k")
	if err != nil {
		t.Fatalf("Obtain after release: %v", err)
	}
	again()
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := NewRedis(ctx, "127.0.0.1:1", time.Second); err == nil {
		t.Fatal("NewRedis should fail against a closed port")
	}
}
