package sbuf

import (
	"errors"
	"math"
	"testing"
)

func TestBuffer_ZeroSizeDoesNotAllocate(t *testing.T) {
	var b Buffer
	got, err := b.Ensure(0, 0)
	if err != nil {
		t.Fatalf("Ensure(0) error: %v", err)
	}
	if got != nil {
		t.Errorf("Ensure(0) = %v, want nil", got)
	}
	if b.Cap() != 0 {
		t.Errorf("Cap() = %d, want 0", b.Cap())
	}
}

func TestBuffer_GrowsMonotonically(t *testing.T) {
	var b Buffer

	sizes := []uint64{4, 16, 8, 16, 1, 32}
	wantCap := []int{4, 16, 16, 16, 16, 32}

	for i, n := range sizes {
		got, err := b.Ensure(n, 0)
		if err != nil {
			t.Fatalf("Ensure(%d) error: %v", n, err)
		}
		if uint64(len(got)) != n {
			t.Errorf("len(Ensure(%d)) = %d, want %d", n, len(got), n)
		}
		if b.Cap() != wantCap[i] {
			t.Errorf("after Ensure(%d): Cap() = %d, want %d", n, b.Cap(), wantCap[i])
		}
	}
}

func TestBuffer_ReusesStorage(t *testing.T) {
	var b Buffer
	first, _ := b.Ensure(64, 0)
	second, _ := b.Ensure(10, 0)
	if &first[0] != &second[0] {
		t.Error("smaller Ensure reallocated instead of reusing storage")
	}
}

func TestBuffer_LimitIsOutOfMemory(t *testing.T) {
	var b Buffer
	_, err := b.Ensure(1025, 1024)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("Ensure over limit error = %v, want ErrOutOfMemory", err)
	}
	if b.Cap() != 0 {
		t.Errorf("Cap() = %d after failed Ensure, want 0", b.Cap())
	}

	if _, err := b.Ensure(1024, 1024); err != nil {
		t.Errorf("Ensure at limit error = %v, want nil", err)
	}
}

func TestBuffer_DefaultLimit(t *testing.T) {
	var b Buffer
	_, err := b.Ensure(DefaultLimit+1, 0)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("Ensure over default limit error = %v, want ErrOutOfMemory", err)
	}
	if b.Cap() != 0 {
		t.Errorf("Cap() = %d after failed Ensure, want 0", b.Cap())
	}

	// A terabyte request must fail before anything is allocated.
	if _, err := b.Ensure(1<<40, 0); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("Ensure(1<<40) error = %v, want ErrOutOfMemory", err)
	}
}

func TestBuffer_AddressSpaceIsOutOfMemory(t *testing.T) {
	var b Buffer
	_, err := b.Ensure(math.MaxUint64, math.MaxUint64)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("Ensure(MaxUint64) error = %v, want ErrOutOfMemory", err)
	}
}

func TestBuffer_UnallocatableIsOutOfMemory(t *testing.T) {
	var b Buffer
	// Fits in int but exceeds the runtime's maximum allocation.
	_, err := b.Ensure(math.MaxInt64, math.MaxUint64)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("Ensure(MaxInt64) error = %v, want ErrOutOfMemory", err)
	}
}
