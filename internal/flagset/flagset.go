package flagset

// Typed bit-flag sets for register/feature words decoded out of firmware and
// object-file records. Each flag vocabulary declares which bit positions are
// reserved so rendering and enumeration skip them; validation code never goes
// through here, it tests named bits directly.

import "strings"

// Bits is the unsigned representation a flag word is stored in.
type Bits interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Flag is a named single-bit value. Every non-skipped single-bit value of the
// representation must convert to a valid flag of the vocabulary, so the
// bit-to-flag mapping is total.
type Flag interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
	String() string
}

// Type describes one flag vocabulary: the representation width and the
// reserved-bit policy. Declare one per flag word, package-level.
type Type[R Bits, F Flag] struct {
	skip func(bit int) bool
}

// NewType builds a vocabulary. skip reports whether a bit position is
// reserved/unused; nil means no position is skipped.
func NewType[R Bits, F Flag](skip func(bit int) bool) *Type[R, F] {
	return &Type[R, F]{skip: skip}
}

// Set is a flag word tagged with its vocabulary.
type Set[R Bits, F Flag] struct {
	bits R
	typ  *Type[R, F]
}

// FromBits wraps a raw decoded word.
func (t *Type[R, F]) FromBits(bits R) Set[R, F] {
	return Set[R, F]{bits: bits, typ: t}
}

// Of builds a set from named flags. With no arguments it is the empty set.
func (t *Type[R, F]) Of(flags ...F) Set[R, F] {
	s := Set[R, F]{typ: t}
	for _, f := range flags {
		s.bits |= R(f)
	}
	return s
}

// Has reports whether the flag's bit is set.
func (s Set[R, F]) Has(f F) bool {
	return s.bits&R(f) != 0
}

// With returns a copy with the flag's bit set.
func (s Set[R, F]) With(f F) Set[R, F] {
	s.bits |= R(f)
	return s
}

// Bits returns the raw word.
func (s Set[R, F]) Bits() R {
	return s.bits
}

func (s Set[R, F]) skipped(bit int) bool {
	return s.typ != nil && s.typ.skip != nil && s.typ.skip(bit)
}

// String renders the set as FLAG_A|FLAG_B in ascending bit order, leaving out
// reserved positions.
func (s Set[R, F]) String() string {
	var b strings.Builder
	for bit := 0; ; bit++ {
		mask := R(1) << bit
		if mask == 0 {
			break // shifted past the representation width
		}
		if s.skipped(bit) || s.bits&mask == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(F(mask).String())
	}
	return b.String()
}
