package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPoolRotate(t *testing.T) {
	ctx := context.Background()
	f := newFakeFactory()
	pool := NewCredentialPool([]string{"k1", "k2", "k3"}, f.factory, nil)

	be, epoch, err := pool.Backend(ctx)
	if err != nil {
		t.Fatalf("Backend() error = %v", err)
	}
	if be.(*fakeBackend).cred != "k1" || epoch != 0 {
		t.Errorf("initial backend = %s epoch %d, want k1 epoch 0", be.(*fakeBackend).cred, epoch)
	}

	if !pool.Rotate(ctx) {
		t.Fatal("Rotate() = false with 3 credentials")
	}
	be, epoch, _ = pool.Backend(ctx)
	if be.(*fakeBackend).cred != "k2" || epoch != 1 {
		t.Errorf("after rotate backend = %s epoch %d, want k2 epoch 1", be.(*fakeBackend).cred, epoch)
	}

	pool.Rotate(ctx)
	pool.Rotate(ctx)
	be, _, _ = pool.Backend(ctx)
	if be.(*fakeBackend).cred != "k1" {
		t.Errorf("rotation did not wrap, backend = %s", be.(*fakeBackend).cred)
	}
}

func TestPoolRotateSingleCredential(t *testing.T) {
	pool := NewCredentialPool([]string{"solo"}, newFakeFactory().factory, nil)
	if pool.Rotate(context.Background()) {
		t.Error("Rotate() = true with a single credential")
	}
	if pool.Epoch() != 0 {
		t.Errorf("Epoch() = %d after refused rotation, want 0", pool.Epoch())
	}
}

func TestPoolEmpty(t *testing.T) {
	pool := NewCredentialPool(nil, newFakeFactory().factory, nil)
	if pool.Enabled() {
		t.Error("Enabled() = true for empty pool")
	}
	if _, _, err := pool.Backend(context.Background()); err == nil {
		t.Error("Backend() error = nil for empty pool")
	}
}

func TestRunWithRotationExhaustsAllCredentials(t *testing.T) {
	f := newFakeFactory()
	pool := NewCredentialPool([]string{"k1", "k2", "k3"}, f.factory, nil)
	breaker := NewCircuitBreaker(time.Minute, nil)

	var attempts []string
	err := runWithRotation(context.Background(), pool, breaker, func(be Backend, _ uint64) error {
		attempts = append(attempts, be.(*fakeBackend).cred)
		return fmt.Errorf("generate: %w", ErrQuotaExceeded)
	})

	if len(attempts) != 3 {
		t.Fatalf("attempts = %v, want one per credential", attempts)
	}
	if attempts[0] != "k1" || attempts[1] != "k2" || attempts[2] != "k3" {
		t.Errorf("attempt order = %v, want k1 k2 k3", attempts)
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("error = %v, want ErrQuotaExceeded", err)
	}
	if !breaker.Open() {
		t.Error("breaker not tripped after exhausting all credentials")
	}
}

func TestRunWithRotationStopsOnSuccess(t *testing.T) {
	f := newFakeFactory()
	pool := NewCredentialPool([]string{"k1", "k2"}, f.factory, nil)
	breaker := NewCircuitBreaker(time.Minute, nil)

	calls := 0
	err := runWithRotation(context.Background(), pool, breaker, func(be Backend, _ uint64) error {
		calls++
		if calls == 1 {
			return ErrQuotaExceeded
		}
		return nil
	})
	if err != nil {
		t.Fatalf("error = %v, want nil", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if breaker.Open() {
		t.Error("breaker tripped despite eventual success")
	}
}

func TestRunWithRotationNonQuotaAborts(t *testing.T) {
	f := newFakeFactory()
	pool := NewCredentialPool([]string{"k1", "k2"}, f.factory, nil)
	breaker := NewCircuitBreaker(time.Minute, nil)

	boom := errors.New("network down")
	calls := 0
	err := runWithRotation(context.Background(), pool, breaker, func(be Backend, _ uint64) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no rotation on non-quota errors)", calls)
	}
	if pool.Epoch() != 0 {
		t.Error("pool rotated on a non-quota error")
	}
	if breaker.Open() {
		t.Error("breaker tripped on a non-quota error")
	}
}

func TestRunWithRotationBlockedByBreaker(t *testing.T) {
	pool := NewCredentialPool([]string{"k1"}, newFakeFactory().factory, nil)
	breaker := NewCircuitBreaker(time.Minute, nil)
	breaker.Trip()

	err := runWithRotation(context.Background(), pool, breaker, func(Backend, uint64) error {
		t.Error("fn called while breaker open")
		return nil
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("error = %v, want ErrBreakerOpen", err)
	}
}

func TestProbeRotatesPastDeadKeys(t *testing.T) {
	f := newFakeFactory()
	dead := &fakeBackend{cred: "k1"}
	dead.generateFn = func(context.Context, string, string) (string, error) {
		return "", ErrQuotaExceeded
	}
	f.backends["k1"] = dead

	pool := NewCredentialPool([]string{"k1", "k2"}, f.factory, nil)
	breaker := NewCircuitBreaker(time.Minute, nil)

	pool.Probe(context.Background(), breaker)

	be, _, _ := pool.Backend(context.Background())
	if be.(*fakeBackend).cred != "k2" {
		t.Errorf("active credential after probe = %s, want k2", be.(*fakeBackend).cred)
	}
	if breaker.Open() {
		t.Error("breaker tripped although a live credential exists")
	}
}

func TestProbeTripsWhenAllDead(t *testing.T) {
	f := newFakeFactory()
	for _, k := range []string{"k1", "k2"} {
		be := &fakeBackend{cred: k}
		be.generateFn = func(context.Context, string, string) (string, error) {
			return "", ErrQuotaExceeded
		}
		f.backends[k] = be
	}

	pool := NewCredentialPool([]string{"k1", "k2"}, f.factory, nil)
	breaker := NewCircuitBreaker(time.Minute, nil)

	pool.Probe(context.Background(), breaker)
	if !breaker.Open() {
		t.Error("breaker not tripped with every credential dead")
	}
}
