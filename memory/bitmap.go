package memory

import "math/bits"

// Bitmap tracks used slots, one bit per slot.
type Bitmap struct {
	words []uint32
	n     int
}

// NewBitmap returns a bitmap with n clear bits.
func NewBitmap(n int) Bitmap {
	return Bitmap{words: make([]uint32, (n+31)/32), n: n}
}

// Len returns the number of slots.
func (b *Bitmap) Len() int { return b.n }

func (b *Bitmap) Set(i int)   { b.words[i/32] |= 1 << (i % 32) }
func (b *Bitmap) Clear(i int) { b.words[i/32] &^= 1 << (i % 32) }

func (b *Bitmap) Get(i int) bool {
	return b.words[i/32]&(1<<(i%32)) != 0
}

// FirstZero returns the lowest clear bit, or -1 when every slot is used.
func (b *Bitmap) FirstZero() int {
	for wi, w := range b.words {
		if w == 0xFFFFFFFF {
			continue
		}
		i := wi*32 + bits.TrailingZeros32(^w)
		if i >= b.n {
			return -1
		}
		return i
	}
	return -1
}

// Count returns the number of set bits.
func (b *Bitmap) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount32(w)
	}
	return n
}
