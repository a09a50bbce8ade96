package memory

import (
	"errors"
	"testing"
)

func TestStackPoolAllocFree(t *testing.T) {
	p := NewStackPool(5, 4096)

	var stacks []Stack
	for i := 0; i < 5; i++ {
		s, ok := p.Alloc(4096)
		if !ok {
			t.Fatalf("Alloc() ok = false at stack %d, want true", i)
		}
		if len(s.Mem) != 4096 {
			t.Fatalf("len(Mem) = %d, want 4096", len(s.Mem))
		}
		stacks = append(stacks, s)
	}
	if _, ok := p.Alloc(4096); ok {
		t.Fatal("Alloc() ok = true when pool is exhausted, want false")
	}
	if got := p.InUse(); got != 5 {
		t.Fatalf("InUse() = %d, want 5", got)
	}

	for i, s := range stacks {
		if err := p.Free(s); err != nil {
			t.Fatalf("Free(stack %d) = %v, want nil", i, err)
		}
	}
	if err := p.Free(stacks[0]); !errors.Is(err, ErrDoubleFree) {
		t.Fatalf("second Free() = %v, want ErrDoubleFree", err)
	}
}

func TestStackPoolRejectsForeignStack(t *testing.T) {
	p := NewStackPool(2, 256)
	other := NewStackPool(2, 256)

	s, ok := other.Alloc(256)
	if !ok {
		t.Fatal("Alloc() ok = false, want true")
	}
	if err := p.Free(s); !errors.Is(err, ErrNotInPool) {
		t.Fatalf("Free(foreign) = %v, want ErrNotInPool", err)
	}
	if err := p.Free(Stack{}); !errors.Is(err, ErrNotInPool) {
		t.Fatalf("Free(null) = %v, want ErrNotInPool", err)
	}
}

func TestStackPoolReusesLowestSlotAndClears(t *testing.T) {
	p := NewStackPool(3, 64)
	a, _ := p.Alloc(64)
	b, _ := p.Alloc(64)
	a.Mem[0] = 0xAA

	if err := p.Free(a); err != nil {
		t.Fatalf("Free() = %v, want nil", err)
	}
	c, ok := p.Alloc(64)
	if !ok {
		t.Fatal("Alloc() ok = false, want true")
	}
	if c.Slot() != a.Slot() {
		t.Fatalf("Alloc() slot = %d, want %d", c.Slot(), a.Slot())
	}
	if c.Mem[0] != 0 {
		t.Fatalf("reused stack byte = %#x, want 0", c.Mem[0])
	}
	if b.Slot() == c.Slot() {
		t.Fatal("Alloc() returned a stack that is still in use")
	}
}

func TestStackPoolOversizeRequest(t *testing.T) {
	p := NewStackPool(1, 128)
	if _, ok := p.Alloc(129); ok {
		t.Fatal("Alloc(129) ok = true, want false")
	}
}

func TestBitmapFirstZero(t *testing.T) {
	b := NewBitmap(40)
	for i := 0; i < 33; i++ {
		b.Set(i)
	}
	if got := b.FirstZero(); got != 33 {
		t.Fatalf("FirstZero() = %d, want 33", got)
	}
	b.Clear(7)
	if got := b.FirstZero(); got != 7 {
		t.Fatalf("FirstZero() = %d, want 7", got)
	}
	for i := 0; i < 40; i++ {
		b.Set(i)
	}
	if got := b.FirstZero(); got != -1 {
		t.Fatalf("FirstZero() on full bitmap = %d, want -1", got)
	}
	if got := b.Count(); got != 40 {
		t.Fatalf("Count() = %d, want 40", got)
	}
}
