package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKey_NamespacesArguments(t *testing.T) {
	t.Parallel()

	got := Key("standings", 10, 2, 3)
	want := "mt:dao:standings:10:2:3"
	if got != want {
		t.Fatalf("unexpected key: got %s want %s", got, want)
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := context.Background()

	store.Set(ctx, "k", "v", 0)
	if v, ok := store.Get(ctx, "k"); !ok || v.(string) != "v" {
		t.Fatalf("expected cache hit with v, got %v %t", v, ok)
	}

	store.Delete(ctx, "k")
	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestStore_GetExpired(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := context.Background()

	store.Set(ctx, "k", "v", time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after ttl expiry")
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := context.Background()

	store.Set(ctx, Key("standings", 1), "a", 0)
	store.Set(ctx, Key("standings", 2), "b", 0)
	store.Set(ctx, Key("matches", 1), "c", 0)

	store.DeletePrefix(ctx, Key("standings"))

	if _, ok := store.Get(ctx, Key("standings", 1)); ok {
		t.Fatalf("expected standings:1 to be invalidated")
	}
	if _, ok := store.Get(ctx, Key("standings", 2)); ok {
		t.Fatalf("expected standings:2 to be invalidated")
	}
	if _, ok := store.Get(ctx, Key("matches", 1)); !ok {
		t.Fatalf("expected matches:1 to survive")
	}
}

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "same-key", time.Minute, loader)
			if err != nil {
				errCh <- err
				return
			}
			if got, _ := v.(string); got != "value" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_UsesCachedValueAfterFirstLoad(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return "cached", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", time.Minute, loader); err != nil {
		t.Fatalf("first GetOrLoad error: %v", err)
	}
	if _, err := store.GetOrLoad(context.Background(), "k", time.Minute, loader); err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_LoaderErrorNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32
	boom := errors.New("load failed")

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, boom
	}

	if _, err := store.GetOrLoad(context.Background(), "k", time.Minute, loader); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if _, err := store.GetOrLoad(context.Background(), "k", time.Minute, loader); !errors.Is(err, boom) {
		t.Fatalf("expected loader error on retry, got %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("loader called %d times, want 2", got)
	}
}

func TestStore_NilStoreIsDisabled(t *testing.T) {
	t.Parallel()

	var store *Store
	ctx := context.Background()

	store.Set(ctx, "k", "v", time.Minute)
	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatalf("nil store must always miss")
	}

	v, err := store.GetOrLoad(ctx, "k", time.Minute, func(context.Context) (any, error) {
		return "direct", nil
	})
	if err != nil {
		t.Fatalf("GetOrLoad on nil store: %v", err)
	}
	if v.(string) != "direct" {
		t.Fatalf("expected loader passthrough, got %v", v)
	}
}

func TestStore_IncrementWindows(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := context.Background()

	count, _ := store.Increment(ctx, "k", 30*time.Millisecond)
	if count != 1 {
		t.Fatalf("first increment: got %d want 1", count)
	}
	count, _ = store.Increment(ctx, "k", 30*time.Millisecond)
	if count != 2 {
		t.Fatalf("second increment: got %d want 2", count)
	}

	time.Sleep(50 * time.Millisecond)

	count, _ = store.Increment(ctx, "k", 30*time.Millisecond)
	if count != 1 {
		t.Fatalf("increment after window reset: got %d want 1", count)
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
