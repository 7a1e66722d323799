// Package word provides the input alphabet and immutable word types used by
// the learning algorithms.
package word

import (
	"fmt"
	"strings"
)

// ErrUnknownSymbol is returned when an input contains a symbol that is not
// part of the alphabet.
var ErrUnknownSymbol = fmt.Errorf("unknown symbol")

// Alphabet is a finite ordered set of input symbols with a bijective mapping
// to the index range 0..Size()-1.
type Alphabet struct {
	symbols []string
	index   map[string]int
}

// NewAlphabet creates an alphabet from the given symbols. Symbol order is
// preserved and determines indices.
func NewAlphabet(symbols ...string) (*Alphabet, error) {
	a := &Alphabet{
		symbols: make([]string, len(symbols)),
		index:   make(map[string]int, len(symbols)),
	}
	copy(a.symbols, symbols)
	for i, s := range symbols {
		if _, dup := a.index[s]; dup {
			return nil, fmt.Errorf("duplicate symbol %q", s)
		}
		a.index[s] = i
	}
	return a, nil
}

// MustAlphabet is like NewAlphabet but panics on error. Intended for tests
// and fixed literal alphabets.
func MustAlphabet(symbols ...string) *Alphabet {
	a, err := NewAlphabet(symbols...)
	if err != nil {
		panic(err)
	}
	return a
}

// Size returns the number of symbols.
func (a *Alphabet) Size() int {
	return len(a.symbols)
}

// Symbol returns the symbol at the given index.
func (a *Alphabet) Symbol(i int) string {
	return a.symbols[i]
}

// Symbols returns a copy of the symbol list.
func (a *Alphabet) Symbols() []string {
	out := make([]string, len(a.symbols))
	copy(out, a.symbols)
	return out
}

// Index returns the index of the given symbol.
func (a *Alphabet) Index(symbol string) (int, error) {
	i, ok := a.index[symbol]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	return i, nil
}

// Contains reports whether the symbol is part of the alphabet.
func (a *Alphabet) Contains(symbol string) bool {
	_, ok := a.index[symbol]
	return ok
}

// Word is an immutable finite sequence of symbols. The zero value is the
// empty word. Prefix, Suffix and Subword return views that share the
// underlying storage.
type Word struct {
	symbols []string
}

// Epsilon is the empty word.
var Epsilon = Word{}

// New creates a word from the given symbols.
func New(symbols ...string) Word {
	if len(symbols) == 0 {
		return Word{}
	}
	buf := make([]string, len(symbols))
	copy(buf, symbols)
	return Word{symbols: buf}
}

// FromLetter creates a single-symbol word.
func FromLetter(symbol string) Word {
	return Word{symbols: []string{symbol}}
}

// Len returns the length of the word.
func (w Word) Len() int {
	return len(w.symbols)
}

// IsEmpty reports whether the word is the empty word.
func (w Word) IsEmpty() bool {
	return len(w.symbols) == 0
}

// Symbol returns the symbol at position i.
func (w Word) Symbol(i int) string {
	return w.symbols[i]
}

// Prefix returns the prefix of length n, sharing storage with w.
func (w Word) Prefix(n int) Word {
	return Word{symbols: w.symbols[:n:n]}
}

// Suffix returns the suffix starting at position i, sharing storage with w.
func (w Word) Suffix(i int) Word {
	return Word{symbols: w.symbols[i:]}
}

// Subword returns the subword [from, to), sharing storage with w.
func (w Word) Subword(from, to int) Word {
	return Word{symbols: w.symbols[from:to:to]}
}

// Prepend returns a new word with the symbol prepended.
func (w Word) Prepend(symbol string) Word {
	buf := make([]string, 0, len(w.symbols)+1)
	buf = append(buf, symbol)
	buf = append(buf, w.symbols...)
	return Word{symbols: buf}
}

// Append returns a new word with the symbol appended.
func (w Word) Append(symbol string) Word {
	buf := make([]string, 0, len(w.symbols)+1)
	buf = append(buf, w.symbols...)
	buf = append(buf, symbol)
	return Word{symbols: buf}
}

// Concat returns the concatenation w·v.
func (w Word) Concat(v Word) Word {
	if w.IsEmpty() {
		return v
	}
	if v.IsEmpty() {
		return w
	}
	buf := make([]string, 0, len(w.symbols)+len(v.symbols))
	buf = append(buf, w.symbols...)
	buf = append(buf, v.symbols...)
	return Word{symbols: buf}
}

// Symbols returns the symbols of the word as a fresh slice.
func (w Word) Symbols() []string {
	out := make([]string, len(w.symbols))
	copy(out, w.symbols)
	return out
}

// Equal reports value equality of two words.
func (w Word) Equal(v Word) bool {
	if len(w.symbols) != len(v.symbols) {
		return false
	}
	for i, s := range w.symbols {
		if v.symbols[i] != s {
			return false
		}
	}
	return true
}

// Key returns a canonical string usable as a map key. Symbols are joined by
// a separator that must not occur inside symbols of well-formed alphabets.
func (w Word) Key() string {
	return strings.Join(w.symbols, "\x00")
}

// String renders the word for display; the empty word renders as ε.
func (w Word) String() string {
	if len(w.symbols) == 0 {
		return "ε"
	}
	return strings.Join(w.symbols, " ")
}

// Compare orders words by length first, then lexicographically by symbol.
// Returns -1, 0 or 1.
func (w Word) Compare(v Word) int {
	if len(w.symbols) != len(v.symbols) {
		if len(w.symbols) < len(v.symbols) {
			return -1
		}
		return 1
	}
	for i, s := range w.symbols {
		if s != v.symbols[i] {
			if s < v.symbols[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
