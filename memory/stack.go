// Package memory holds the fixed stack pool handed to processes.
package memory

import "errors"

const (
	// DefaultStackSize is the size of one process stack.
	DefaultStackSize = 4096
	// DefaultStacks is the number of stacks in a default pool.
	DefaultStacks = 16
)

var (
	ErrDoubleFree = errors.New("memory: stack already free")
	ErrNotInPool  = errors.New("memory: stack not in pool")
)

// Stack is a handle to one pool stack. The zero value is the null handle.
type Stack struct {
	slot int // slot+1; 0 means null
	Mem  []byte
}

// Valid reports whether s refers to a pool stack.
func (s Stack) Valid() bool { return s.slot != 0 }

// Slot returns the pool index of the stack, or -1 for the null handle.
func (s Stack) Slot() int { return s.slot - 1 }

// StackPool hands out equal-size stacks from one backing array.
//
// It is not safe for concurrent use; callers serialize access (the kernel does so
// with interrupts masked).
type StackPool struct {
	size int
	mem  []byte
	used Bitmap
}

// NewStackPool creates a pool of n stacks of size bytes each.
// Non-positive arguments select the defaults.
func NewStackPool(n, size int) *StackPool {
	if n <= 0 {
		n = DefaultStacks
	}
	if size <= 0 {
		size = DefaultStackSize
	}
	size = (size + 15) &^ 15
	return &StackPool{
		size: size,
		mem:  make([]byte, n*size),
		used: NewBitmap(n),
	}
}

// StackSize returns the size of every stack in the pool.
func (p *StackPool) StackSize() int { return p.size }

// Cap returns the number of stacks in the pool.
func (p *StackPool) Cap() int { return p.used.Len() }

// InUse returns the number of allocated stacks.
func (p *StackPool) InUse() int { return p.used.Count() }

// Alloc returns a free stack, or false when the pool is exhausted or size exceeds
// the pool's stack size.
func (p *StackPool) Alloc(size int) (Stack, bool) {
	if size > p.size {
		return Stack{}, false
	}
	i := p.used.FirstZero()
	if i < 0 {
		return Stack{}, false
	}
	p.used.Set(i)
	mem := p.mem[i*p.size : (i+1)*p.size : (i+1)*p.size]
	clear(mem)
	return Stack{slot: i + 1, Mem: mem}, true
}

// Free returns s to the pool.
func (p *StackPool) Free(s Stack) error {
	i := s.Slot()
	if i < 0 || i >= p.used.Len() {
		return ErrNotInPool
	}
	if len(s.Mem) > 0 && &s.Mem[0] != &p.mem[i*p.size] {
		return ErrNotInPool
	}
	if !p.used.Get(i) {
		return ErrDoubleFree
	}
	p.used.Clear(i)
	return nil
}
