package shortcode

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// DefaultAlphabet is the 64-symbol set used when none is configured.
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

// DefaultLength is the code length used when none is configured.
const DefaultLength = 5

// Alphabet converts between ordinals and fixed-length codes over an ordered
// symbol set. Symbol order defines digit value, the rightmost position is the
// least significant digit. An Alphabet is immutable and safe for concurrent use.
type Alphabet struct {
	symbols []rune
	index   map[rune]int
	length  int
	space   uint64
}

// NewAlphabet validates symbols and length and returns the codec.
func NewAlphabet(symbols string, length int) (*Alphabet, error) {
	runes := []rune(symbols)
	if len(runes) < 2 {
		return nil, fmt.Errorf("%w: alphabet needs at least 2 symbols, got %d", ErrInvalidConfig, len(runes))
	}
	if length < 1 {
		return nil, fmt.Errorf("%w: code length must be at least 1, got %d", ErrInvalidConfig, length)
	}

	index := make(map[rune]int, len(runes))
	for i, r := range runes {
		if _, dup := index[r]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %q in alphabet", ErrInvalidConfig, r)
		}
		index[r] = i
	}

	space := uint64(1)
	radix := uint64(len(runes))
	for i := 0; i < length; i++ {
		hi, lo := bits.Mul64(space, radix)
		if hi != 0 || lo > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d^%d codes do not fit in 63 bits", ErrInvalidConfig, radix, length)
		}
		space = lo
	}

	return &Alphabet{
		symbols: runes,
		index:   index,
		length:  length,
		space:   space,
	}, nil
}

// Size returns the number of symbols (the radix N).
func (a *Alphabet) Size() int { return len(a.symbols) }

// Length returns the fixed code length L.
func (a *Alphabet) Length() int { return a.length }

// Space returns N^L, the number of distinct codes.
func (a *Alphabet) Space() uint64 { return a.space }

// Symbols returns the alphabet as a string.
func (a *Alphabet) Symbols() string { return string(a.symbols) }

// First returns the lowest code: every position holds the first symbol.
func (a *Alphabet) First() string {
	return strings.Repeat(string(a.symbols[0]), a.length)
}

// Valid reports whether code has the configured length and only known symbols.
func (a *Alphabet) Valid(code string) bool {
	_, err := a.digits(code)
	return err == nil
}

// Increment returns the successor of code. An empty code maps to First.
// ErrExhausted is returned when the carry runs past the most significant digit.
func (a *Alphabet) Increment(code string) (string, error) {
	if code == "" {
		return a.First(), nil
	}
	digits, err := a.digits(code)
	if err != nil {
		return "", err
	}

	top := len(a.symbols) - 1
	for i := len(digits) - 1; i >= 0; i-- {
		if digits[i] < top {
			digits[i]++
			return a.render(digits), nil
		}
		digits[i] = 0
	}
	return "", ErrExhausted
}

// Encode returns the code at position ordinal in base-N order.
func (a *Alphabet) Encode(ordinal uint64) (string, error) {
	if ordinal >= a.space {
		return "", fmt.Errorf("%w: ordinal %d outside code space of %d", ErrExhausted, ordinal, a.space)
	}
	radix := uint64(len(a.symbols))
	digits := make([]int, a.length)
	for i := a.length - 1; i >= 0; i-- {
		digits[i] = int(ordinal % radix)
		ordinal /= radix
	}
	return a.render(digits), nil
}

// Decode returns the ordinal position of code.
func (a *Alphabet) Decode(code string) (uint64, error) {
	digits, err := a.digits(code)
	if err != nil {
		return 0, err
	}
	radix := uint64(len(a.symbols))
	var ordinal uint64
	for _, d := range digits {
		ordinal = ordinal*radix + uint64(d)
	}
	return ordinal, nil
}

func (a *Alphabet) digits(code string) ([]int, error) {
	runes := []rune(code)
	if len(runes) != a.length {
		return nil, fmt.Errorf("%w: %q has length %d, want %d", ErrInvalidCode, code, len(runes), a.length)
	}
	digits := make([]int, len(runes))
	for i, r := range runes {
		d, ok := a.index[r]
		if !ok {
			return nil, fmt.Errorf("%w: symbol %q at position %d not in alphabet", ErrInvalidCode, r, i)
		}
		digits[i] = d
	}
	return digits, nil
}

func (a *Alphabet) render(digits []int) string {
	var b strings.Builder
	b.Grow(len(digits))
	for _, d := range digits {
		b.WriteRune(a.symbols[d])
	}
	return b.String()
}
