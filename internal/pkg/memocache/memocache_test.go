package memocache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func fakeClock(now *time.Time) Clock {
	return func() time.Time { return *now }
}

func TestGetOrRefreshCachesWithinTTL(t *testing.T) {
	now := time.Now()
	s := New[int](time.Minute, fakeClock(&now))
	fetches := 0
	fetch := func(ctx context.Context) (int, error) {
		fetches++
		return fetches, nil
	}

	for i := 0; i < 3; i++ {
		v, err := s.GetOrRefresh(context.Background(), fetch)
		if err != nil || v != 1 {
			t.Fatalf("call %d: (%d, %v), want (1, nil)", i, v, err)
		}
	}
	now = now.Add(2 * time.Minute)
	if v, _ := s.GetOrRefresh(context.Background(), fetch); v != 2 {
		t.Errorf("after expiry got %d, want refetched 2", v)
	}
}

func TestGetOrRefreshStaleOnError(t *testing.T) {
	now := time.Now()
	s := New[string](time.Minute, fakeClock(&now))

	if _, err := s.GetOrRefresh(context.Background(), func(ctx context.Context) (string, error) {
		return "good", nil
	}); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Minute)
	v, err := s.GetOrRefresh(context.Background(), func(ctx context.Context) (string, error) {
		return "", errors.New("source down")
	})
	if err == nil {
		t.Error("want the fetch error surfaced")
	}
	if v != "good" {
		t.Errorf("stale value = %q, want good", v)
	}
}

func TestGetOrRefreshColdErrorReturnsZero(t *testing.T) {
	s := New[int](time.Minute, nil)
	v, err := s.GetOrRefresh(context.Background(), func(ctx context.Context) (int, error) {
		return 9, errors.New("source down")
	})
	if err == nil || v != 0 {
		t.Errorf("(%d, %v), want (0, error)", v, err)
	}
}

// A slow refresh must not block other operations on the store: callers
// with a stale value get it immediately and Invalidate returns without
// waiting for the fetch.
func TestGetOrRefreshDoesNotHoldLockDuringFetch(t *testing.T) {
	now := time.Now()
	s := New[int](time.Minute, fakeClock(&now))

	if _, err := s.GetOrRefresh(context.Background(), func(ctx context.Context) (int, error) {
		return 1, nil
	}); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = s.GetOrRefresh(context.Background(), func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 2, nil
		})
	}()
	<-started

	got := make(chan int, 1)
	go func() {
		v, _ := s.GetOrRefresh(context.Background(), func(ctx context.Context) (int, error) {
			t.Error("second caller must not fetch while a refresh is in flight")
			return 0, nil
		})
		got <- v
	}()

	select {
	case v := <-got:
		if v != 1 {
			t.Errorf("concurrent reader got %d, want stale 1", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent reader blocked behind the in-flight fetch")
	}

	invalidated := make(chan struct{})
	go func() {
		s.Invalidate()
		close(invalidated)
	}()
	select {
	case <-invalidated:
	case <-time.After(2 * time.Second):
		t.Fatal("Invalidate blocked behind the in-flight fetch")
	}

	close(release)
}

func TestGetOrRefreshSingleFlightColdCache(t *testing.T) {
	s := New[int](time.Minute, nil)
	var fetches atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]int, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := s.GetOrRefresh(context.Background(), func(ctx context.Context) (int, error) {
				fetches.Add(1)
				<-release
				return 7, nil
			})
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := fetches.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1 (waiters share the in-flight result)", n)
	}
	for i, v := range results {
		if v != 7 {
			t.Errorf("caller %d got %d, want 7", i, v)
		}
	}
}

func TestGetOrRefreshWaiterHonorsContext(t *testing.T) {
	s := New[int](time.Minute, nil)
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = s.GetOrRefresh(context.Background(), func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.GetOrRefresh(ctx, func(ctx context.Context) (int, error) {
		return 2, nil
	}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
