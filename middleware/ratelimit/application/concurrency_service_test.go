package application

import (
	"context"
	"testing"
	"time"

	"ambilab-gateway/middleware/ratelimit/infra"
)

func TestConcurrencyService_NoPoolAlwaysAcquires(t *testing.T) {
	release, ok := ConcurrencyService{}.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected ok")
	}
	release()
}

func TestConcurrencyService_TimesOutWhenFull(t *testing.T) {
	svc := ConcurrencyService{Pool: infra.NewChanPool(1), AcquireTimeout: 10 * time.Millisecond}

	release, ok := svc.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}

	if _, ok := svc.Acquire(context.Background()); ok {
		t.Fatalf("expected timeout while the only slot is taken")
	}

	release()
	release2, ok := svc.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected acquire after release")
	}
	release2()
}

func TestConcurrencyService_NoTimeoutHonorsContext(t *testing.T) {
	svc := ConcurrencyService{Pool: infra.NewChanPool(1)}
	release, _ := svc.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := svc.Acquire(ctx); ok {
		t.Fatalf("expected cancelled context to abort acquire")
	}
}

func TestConcurrencyService_LoadAndDoubleRelease(t *testing.T) {
	svc := ConcurrencyService{Pool: infra.NewChanPool(2)}
	if inUse, capacity := (ConcurrencyService{}).Load(); inUse != 0 || capacity != 0 {
		t.Fatalf("expected (0, 0) without pool, got (%d, %d)", inUse, capacity)
	}

	release, ok := svc.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected ok")
	}
	if inUse, capacity := svc.Load(); inUse != 1 || capacity != 2 {
		t.Fatalf("expected (1, 2), got (%d, %d)", inUse, capacity)
	}

	release()
	release()
	if inUse, _ := svc.Load(); inUse != 0 {
		t.Fatalf("double release must return the slot once, inUse=%d", inUse)
	}
}
