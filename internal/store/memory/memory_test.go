package memory

import (
	"context"
	"sync"
	"testing"
)

func TestGetMissing(t *testing.T) {
	b := New()
	v, ok, err := b.Get(context.Background(), "missing")
	if err != nil || ok || v != nil {
		t.Errorf("Get(missing) = %v, %v, %v; want nil, false, nil", v, ok, err)
	}
}

func TestSetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	b := New()

	in := []byte("hello")
	if err := b.Set(ctx, "k", in); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	in[0] = 'j'

	out, ok, err := b.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get failed: %v, ok=%v", err, ok)
	}
	if string(out) != "hello" {
		t.Errorf("stored value mutated through caller slice: %q", out)
	}

	out[0] = 'y'
	again, _, _ := b.Get(ctx, "k")
	if string(again) != "hello" {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	b := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = b.Set(ctx, "k", []byte("v"))
		}()
		go func() {
			defer wg.Done()
			_, _, _ = b.Get(ctx, "k")
		}()
	}
	wg.Wait()

	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
}
