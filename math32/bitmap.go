package math32

// Bitmap is a growable set of non-negative node indices.
type Bitmap []uint64

// NewBitmap returns a bitmap with room for n bits.
func NewBitmap(n int) Bitmap {
	return make(Bitmap, (n+63)>>6)
}

// Set marks index x, growing the bitmap if necessary.
func (b *Bitmap) Set(x int32) {
	blk := int(x >> 6)
	if blk >= len(*b) {
		b.grow(blk)
	}
	(*b)[blk] |= 1 << uint(x&63)
}

// Remove clears index x. The bitmap never shrinks.
func (b Bitmap) Remove(x int32) {
	if blk := int(x >> 6); blk < len(b) {
		b[blk] &^= 1 << uint(x&63)
	}
}

// Contains reports whether index x is set.
func (b Bitmap) Contains(x int32) bool {
	blk := int(x >> 6)
	if x < 0 || blk >= len(b) {
		return false
	}
	return b[blk]&(1<<uint(x&63)) != 0
}

// Reset clears all bits, keeping capacity.
func (b Bitmap) Reset() {
	for i := range b {
		b[i] = 0
	}
}

func (b *Bitmap) grow(blk int) {
	if cap(*b) > blk {
		*b = (*b)[:blk+1]
		return
	}
	old := *b
	newCap := 2 * cap(old)
	if newCap < blk+1 {
		newCap = blk + 1
	}
	*b = make(Bitmap, blk+1, newCap)
	copy(*b, old)
}
