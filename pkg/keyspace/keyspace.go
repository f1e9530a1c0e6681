package keyspace

import (
	"fmt"
	"iter"
	"math/big"
	"strconv"
	"strings"

	errs "ytscan/pkg/errors"
)

// DefaultSymbols is the alphabet used for video identifiers: 62
// alphanumerics followed by "-", 63 symbols in total
const DefaultSymbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-"

// DefaultWidth is the length of a video identifier
const DefaultWidth = 11

// Separator joins vector components in the checkpoint record
const Separator = ":"

// Alphabet is an ordered set of unique symbols. It is immutable once built.
type Alphabet struct {
	symbols []rune
	index   map[rune]int
}

// NewAlphabet builds an alphabet from a string of unique symbols
func NewAlphabet(symbols string) (*Alphabet, error) {
	runes := []rune(symbols)
	if len(runes) == 0 {
		return nil, errs.New(errs.ErrorTypeConfig, "alphabet", "alphabet is empty")
	}

	index := make(map[rune]int, len(runes))
	for i, r := range runes {
		if _, dup := index[r]; dup {
			return nil, errs.New(errs.ErrorTypeConfig, "alphabet", fmt.Sprintf("duplicate symbol %q", r))
		}
		index[r] = i
	}

	return &Alphabet{symbols: runes, index: index}, nil
}

// Len returns the number of symbols
func (a *Alphabet) Len() int {
	return len(a.symbols)
}

// Symbol returns the symbol at index i
func (a *Alphabet) Symbol(i int) rune {
	return a.symbols[i]
}

// Index returns the position of r, or false if r is not in the alphabet
func (a *Alphabet) Index(r rune) (int, bool) {
	i, ok := a.index[r]
	return i, ok
}

// String returns the symbols in order
func (a *Alphabet) String() string {
	return string(a.symbols)
}

// Vector is the coordinate of one identifier: one symbol index per position,
// most significant position first.
type Vector []int

// Clone returns a copy of v
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Compare orders vectors lexicographically. Vectors must share a width.
func (v Vector) Compare(other Vector) int {
	for i := range v {
		switch {
		case v[i] < other[i]:
			return -1
		case v[i] > other[i]:
			return 1
		}
	}
	return 0
}

// String renders the vector as colon-joined integers
func (v Vector) String() string {
	return FormatVector(v)
}

// Space is the set of all fixed-width identifiers over an alphabet
type Space struct {
	alphabet *Alphabet
	width    int
}

// NewSpace creates an identifier space
func NewSpace(alphabet *Alphabet, width int) (*Space, error) {
	if alphabet == nil {
		return nil, errs.New(errs.ErrorTypeConfig, "space", "alphabet is required")
	}
	if width < 1 {
		return nil, errs.New(errs.ErrorTypeConfig, "space", fmt.Sprintf("width must be positive, got %d", width))
	}
	return &Space{alphabet: alphabet, width: width}, nil
}

// Default returns the space of 11-character video identifiers
func Default() *Space {
	alphabet, _ := NewAlphabet(DefaultSymbols)
	return &Space{alphabet: alphabet, width: DefaultWidth}
}

// Alphabet returns the space's alphabet
func (s *Space) Alphabet() *Alphabet {
	return s.alphabet
}

// Width returns the identifier length
func (s *Space) Width() int {
	return s.width
}

// Origin returns the all-zero vector
func (s *Space) Origin() Vector {
	return make(Vector, s.width)
}

// Last returns the maximal vector
func (s *Space) Last() Vector {
	v := make(Vector, s.width)
	for i := range v {
		v[i] = s.alphabet.Len() - 1
	}
	return v
}

// Valid reports whether v has the right width and in-range components
func (s *Space) Valid(v Vector) bool {
	if len(v) != s.width {
		return false
	}
	for _, c := range v {
		if c < 0 || c >= s.alphabet.Len() {
			return false
		}
	}
	return true
}

// Encode maps every component through the alphabet. v must be valid.
func (s *Space) Encode(v Vector) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, c := range v {
		b.WriteRune(s.alphabet.Symbol(c))
	}
	return b.String()
}

// Decode looks up each character of id in the alphabet
func (s *Space) Decode(id string) (Vector, error) {
	runes := []rune(id)
	if len(runes) != s.width {
		return nil, errs.New(errs.ErrorTypeWidthMismatch, "decode",
			fmt.Sprintf("identifier %q has length %d, want %d", id, len(runes), s.width))
	}

	v := make(Vector, s.width)
	for i, r := range runes {
		idx, ok := s.alphabet.Index(r)
		if !ok {
			return nil, errs.New(errs.ErrorTypeInvalidSymbol, "decode",
				fmt.Sprintf("symbol %q at position %d is not in the alphabet", r, i))
		}
		v[i] = idx
	}
	return v, nil
}

// Enumerate yields every vector of the Cartesian product of the ranges
// [start[i], |alphabet|) in ascending lexicographic order. When a position
// rolls over, lower positions return to their start bound, not to zero.
// The sequence is empty when start is not a valid vector.
func (s *Space) Enumerate(start Vector) iter.Seq[Vector] {
	return func(yield func(Vector) bool) {
		if !s.Valid(start) {
			return
		}

		n := s.alphabet.Len()
		cur := start.Clone()
		for {
			if !yield(cur.Clone()) {
				return
			}

			// Odometer step, last position fastest
			i := len(cur) - 1
			for ; i >= 0; i-- {
				cur[i]++
				if cur[i] < n {
					break
				}
				cur[i] = start[i]
			}
			if i < 0 {
				return
			}
		}
	}
}

// Size returns the number of vectors Enumerate(start) yields
func (s *Space) Size(start Vector) *big.Int {
	if len(start) != s.width {
		return big.NewInt(0)
	}

	total := big.NewInt(1)
	n := s.alphabet.Len()
	for _, c := range start {
		span := n - c
		if c < 0 || span <= 0 {
			return big.NewInt(0)
		}
		total.Mul(total, big.NewInt(int64(span)))
	}
	return total
}

// FormatVector renders v as colon-joined integers
func FormatVector(v Vector) string {
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, Separator)
}

// ParseVector parses a colon-joined record of width components in [0, size).
// size is the alphabet length, so with DefaultSymbols (63 symbols, "-"
// last) components up to 62 are accepted.
func ParseVector(s string, width, size int) (Vector, error) {
	fields := strings.Split(strings.TrimSpace(s), Separator)
	if len(fields) != width {
		return nil, errs.New(errs.ErrorTypeWidthMismatch, "parse vector",
			fmt.Sprintf("record has %d components, want %d", len(fields), width))
	}

	v := make(Vector, width)
	for i, f := range fields {
		c, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errs.New(errs.ErrorTypeInvalidSymbol, "parse vector",
				fmt.Sprintf("component %d (%q) is not an integer", i, f))
		}
		if c < 0 || c >= size {
			return nil, errs.New(errs.ErrorTypeInvalidSymbol, "parse vector",
				fmt.Sprintf("component %d (%d) is outside [0,%d)", i, c, size))
		}
		v[i] = c
	}
	return v, nil
}
