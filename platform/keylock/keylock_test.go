package keylock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func lockers(t *testing.T) map[string]Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Locker{
		"memory": NewMemory(),
		"redis":  NewRedis(client, "test:lock:", time.Second),
	}
}

func TestLockerSerialisesSameKey(t *testing.T) {
	for name, locker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				inside  int
				maxSeen int
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, release, err := locker.Acquire(context.Background(), "deal:1")
					if err != nil {
						t.Errorf("acquire: %v", err)
						return
					}
					mu.Lock()
					inside++
					if inside > maxSeen {
						maxSeen = inside
					}
					mu.Unlock()

					time.Sleep(2 * time.Millisecond)

					mu.Lock()
					inside--
					mu.Unlock()
					release()
				}()
			}
			wg.Wait()
			if maxSeen != 1 {
				t.Fatalf("expected at most one holder, saw %d", maxSeen)
			}
		})
	}
}

func TestLockerIsReentrantThroughContext(t *testing.T) {
	for name, locker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx, release, err := locker.Acquire(context.Background(), "deal:2")
			if err != nil {
				t.Fatalf("acquire: %v", err)
			}
			defer release()

			nestedCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
			defer cancel()
			_, nestedRelease, err := locker.Acquire(nestedCtx, "deal:2")
			if err != nil {
				t.Fatalf("nested acquire must not block: %v", err)
			}
			nestedRelease()
		})
	}
}

func TestLockerHonoursContextWhileWaiting(t *testing.T) {
	for name, locker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			_, release, err := locker.Acquire(context.Background(), "deal:3")
			if err != nil {
				t.Fatalf("acquire: %v", err)
			}
			defer release()

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			if _, _, err := locker.Acquire(ctx, "deal:3"); err == nil {
				t.Fatal("expected waiting acquire to fail once the context expires")
			} else if !errors.Is(err, ErrLockTimeout) && !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRedisReleaseOnlyDropsOwnToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := NewRedis(client, "lk:", time.Second)
	_, release, err := locker.Acquire(context.Background(), "deal:4")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	mr.Set("lk:deal:4", "someone-else")
	release()

	if got, _ := mr.Get("lk:deal:4"); got != "someone-else" {
		t.Fatalf("release removed a lock it did not own, value now %q", got)
	}
}

func TestRedisRenewsHeldLockPastTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := NewRedis(client, "lk:", 300*time.Millisecond)
	_, release, err := locker.Acquire(context.Background(), "deal:5")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// A second of simulated time passes while the holder is still working.
	for i := 0; i < 5; i++ {
		time.Sleep(250 * time.Millisecond)
		mr.FastForward(200 * time.Millisecond)
	}
	if !mr.Exists("lk:deal:5") {
		t.Fatal("held lock expired while its holder was still running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, _, err := locker.Acquire(ctx, "deal:5"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected a second holder to wait, got %v", err)
	}

	release()
	if mr.Exists("lk:deal:5") {
		t.Fatal("expected release to delete the key")
	}
}
