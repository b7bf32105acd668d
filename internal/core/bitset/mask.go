package bitset

import "math/bits"

// Words is the number of 64-bit words in a Mask.
const Words = 4

// Capacity is the number of distinct bits a Mask can hold.
const Capacity = Words * 64

// Mask is a fixed-width bitset, one bit per registered component kind.
// It is a value type and comparable, so it can key a map directly.
type Mask [Words]uint64

// Of builds a mask with the given bits set. Bits outside Capacity are ignored.
func Of(bits ...uint16) Mask {
	var m Mask
	for _, b := range bits {
		m = m.With(b)
	}
	return m
}

// With returns a copy of m with bit b set.
func (m Mask) With(b uint16) Mask {
	if int(b) >= Capacity {
		return m
	}
	m[b>>6] |= 1 << (b & 63)
	return m
}

// Without returns a copy of m with bit b cleared.
func (m Mask) Without(b uint16) Mask {
	if int(b) >= Capacity {
		return m
	}
	m[b>>6] &^= 1 << (b & 63)
	return m
}

// Has reports whether bit b is set.
func (m Mask) Has(b uint16) bool {
	if int(b) >= Capacity {
		return false
	}
	return m[b>>6]&(1<<(b&63)) != 0
}

// Contains reports whether every bit of sub is also set in m.
func (m Mask) Contains(sub Mask) bool {
	for i := 0; i < Words; i++ {
		if m[i]&sub[i] != sub[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether m and o share at least one bit.
func (m Mask) Intersects(o Mask) bool {
	for i := 0; i < Words; i++ {
		if m[i]&o[i] != 0 {
			return true
		}
	}
	return false
}

func (m Mask) Or(o Mask) Mask {
	for i := 0; i < Words; i++ {
		m[i] |= o[i]
	}
	return m
}

func (m Mask) AndNot(o Mask) Mask {
	for i := 0; i < Words; i++ {
		m[i] &^= o[i]
	}
	return m
}

func (m Mask) IsZero() bool {
	return m == Mask{}
}

// Count returns the number of set bits.
func (m Mask) Count() int {
	n := 0
	for i := 0; i < Words; i++ {
		n += bits.OnesCount64(m[i])
	}
	return n
}

// Bits returns the set bits in ascending order.
func (m Mask) Bits() []uint16 {
	out := make([]uint16, 0, m.Count())
	for i := 0; i < Words; i++ {
		w := m[i]
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			out = append(out, uint16(i*64+tz))
			w &= w - 1
		}
	}
	return out
}
