package claims_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Iron-Ham/squadron/internal/claims"
	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/event"
	"github.com/Iron-Ham/squadron/internal/store"
)

// tickingClock returns a clock that advances one millisecond per call.
func tickingClock() func() time.Time {
	var n atomic.Int64
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		return start.Add(time.Duration(n.Add(1)) * time.Millisecond)
	}
}

type backendFactory func(t *testing.T) claims.Backend

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"sqlite": func(t *testing.T) claims.Backend {
			s, err := store.OpenInMemory()
			if err != nil {
				t.Fatalf("OpenInMemory() error = %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"redis": func(t *testing.T) claims.Backend {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return claims.NewRedisBackend(client, "test:claims")
		},
	}
}

func TestStore_ClaimScenario(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := claims.NewStore(newBackend(t), claims.WithClock(tickingClock()))

			res, err := st.Claim(ctx, "build-step-3", "worker-1")
			if err != nil {
				t.Fatalf("Claim(worker-1) error = %v", err)
			}
			if !res.Granted || res.Owner != "worker-1" {
				t.Errorf("Claim(worker-1) = %+v, want granted to worker-1", res)
			}

			res, err = st.Claim(ctx, "build-step-3", "worker-2")
			if err != nil {
				t.Fatalf("Claim(worker-2) error = %v", err)
			}
			if res.Granted || res.Owner != "worker-1" {
				t.Errorf("Claim(worker-2) = %+v, want denied with owner worker-1", res)
			}

			_, err = st.Release(ctx, "build-step-3", "worker-2")
			var ownErr *errors.OwnershipError
			if !errors.As(err, &ownErr) {
				t.Fatalf("Release(worker-2) error = %v, want OwnershipError", err)
			}
			if ownErr.Owner != "worker-1" {
				t.Errorf("OwnershipError.Owner = %q, want %q", ownErr.Owner, "worker-1")
			}

			active, err := st.ActiveClaims(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(active) != 1 || active[0].ClaimedBy != "worker-1" {
				t.Errorf("ActiveClaims() = %+v, want worker-1 holding build-step-3", active)
			}
		})
	}
}

func TestStore_ReleaseThenReclaim(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := claims.NewStore(newBackend(t), claims.WithClock(tickingClock()))

			if _, err := st.Claim(ctx, "k", "worker-1"); err != nil {
				t.Fatal(err)
			}
			released, err := st.Release(ctx, "k", "worker-1")
			if err != nil {
				t.Fatalf("Release(owner) error = %v", err)
			}
			if released.ReleasedAt == nil || released.ClaimedBy != "worker-1" {
				t.Errorf("Release() = %+v, want released claim of worker-1", released)
			}

			res, err := st.Claim(ctx, "k", "worker-2")
			if err != nil || !res.Granted {
				t.Errorf("Claim(worker-2) after release = %+v, %v, want granted", res, err)
			}

			_, err = st.Release(ctx, "never-claimed", "worker-1")
			if !errors.Is(err, &errors.NotFoundError{}) {
				t.Errorf("Release(never-claimed) error = %v, want NotFoundError", err)
			}
		})
	}
}

func TestStore_ClaimExclusivity(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := claims.NewStore(newBackend(t), claims.WithClock(tickingClock()))

			const n = 32
			var (
				wg      sync.WaitGroup
				granted atomic.Int32
				owners  = make([]string, n)
			)
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := st.Claim(ctx, "contended", fmt.Sprintf("worker-%d", i))
					if err != nil {
						t.Errorf("Claim() error = %v", err)
						return
					}
					if res.Granted {
						granted.Add(1)
					}
					owners[i] = res.Owner
				}()
			}
			wg.Wait()

			if got := granted.Load(); got != 1 {
				t.Fatalf("granted = %d, want exactly 1", got)
			}
			for i, o := range owners {
				if o != owners[0] {
					t.Errorf("owners[%d] = %q, want %q", i, o, owners[0])
				}
			}
		})
	}
}

func TestStore_ReclaimByOwnerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus(nil)
	var grants atomic.Int32
	bus.Subscribe(event.TypeClaimGranted, func(event.Event) { grants.Add(1) })

	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	st := claims.NewStore(s, claims.WithClock(tickingClock()), claims.WithEventBus(bus))

	first, err := st.Claim(ctx, "k", "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.Claim(ctx, "k", "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Granted || !second.ClaimedAt.Equal(first.ClaimedAt) {
		t.Errorf("re-Claim() = %+v, want granted with original ClaimedAt %v", second, first.ClaimedAt)
	}
	if got := grants.Load(); got != 1 {
		t.Errorf("claim.granted events = %d, want 1", got)
	}
}

func TestStore_ReleaseAll(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := claims.NewStore(newBackend(t), claims.WithClock(tickingClock()))
			for _, k := range []string{"a", "b"} {
				if _, err := st.Claim(ctx, k, "worker-1"); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := st.Claim(ctx, "c", "worker-2"); err != nil {
				t.Fatal(err)
			}

			released, err := st.ReleaseAll(ctx, "worker-1")
			if err != nil {
				t.Fatal(err)
			}
			if len(released) != 2 || released[0].TaskKey != "a" || released[1].TaskKey != "b" {
				t.Errorf("ReleaseAll() = %+v, want a and b", released)
			}

			active, _ := st.ActiveClaims(ctx)
			if len(active) != 1 || active[0].TaskKey != "c" {
				t.Errorf("ActiveClaims() = %+v, want only c", active)
			}

			released, err = st.ReleaseAll(ctx, "nobody")
			if err != nil || len(released) != 0 {
				t.Errorf("ReleaseAll(nobody) = %v, %v, want empty", released, err)
			}
		})
	}
}

func TestStore_Validation(t *testing.T) {
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	st := claims.NewStore(s)
	ctx := context.Background()

	tests := []struct {
		name    string
		taskKey string
		member  string
	}{
		{"empty key", "", "worker-1"},
		{"blank key", "   ", "worker-1"},
		{"empty member", "k", ""},
		{"long key", string(make([]byte, claims.MaxTaskKeyLength+1)), "worker-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := st.Claim(ctx, tt.taskKey, tt.member); !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("Claim() error = %v, want ErrInvalidInput", err)
			}
			if _, err := st.Release(ctx, tt.taskKey, tt.member); !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("Release() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}
