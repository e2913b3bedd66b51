package code11

import (
	"errors"
	"fmt"
	"strings"
)

// StartStop is the label of the start/stop sentinel that frames every barcode.
const StartStop = "S/S"

// Dash is the label of the hyphen symbol. It carries the value 10.
const Dash = "-"

var (
	// ErrUnknownSymbol is returned when a bar/space pattern is not one of the
	// 12 legal Code 11 symbols.
	ErrUnknownSymbol = errors.New("code11: unknown symbol")

	// ErrUnknownCharacter is returned when a label is not one of "0".."9", "-" or "S/S".
	ErrUnknownCharacter = errors.New("code11: unknown character")

	// ErrNotADigitSymbol is returned when a numeric value is requested for the
	// start/stop sentinel or for an unrecognized pattern.
	ErrNotADigitSymbol = errors.New("code11: not a digit symbol")
)

// Symbol is the bar/space element pattern of one Code 11 character.
// Each element is 0 or 1; legal symbols are 6 or 7 elements wide.
type Symbol []byte

// String renders the pattern as a run of '0' and '1'.
func (s Symbol) String() string {
	var b strings.Builder
	b.Grow(len(s))
	for _, e := range s {
		if e == 0 {
			b.WriteByte('0')
		} else {
			b.WriteByte('1')
		}
	}
	return b.String()
}

// Equal reports whether two patterns have the same elements.
func (s Symbol) Equal(other Symbol) bool {
	return string(s) == string(other)
}

// ParseSymbol parses a textual pattern such as "1011001".
// Any rune other than '0' or '1' yields ErrUnknownSymbol.
func ParseSymbol(pattern string) (Symbol, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrUnknownSymbol)
	}
	sym := make(Symbol, 0, len(pattern))
	for _, r := range pattern {
		switch r {
		case '0':
			sym = append(sym, 0)
		case '1':
			sym = append(sym, 1)
		default:
			return nil, fmt.Errorf("%w: %q contains %q", ErrUnknownSymbol, pattern, r)
		}
	}
	return sym, nil
}

// entry is one row of the symbol table.
type entry struct {
	label   string
	pattern Symbol
	value   int // -1 for the sentinel
}

// table lists the 12 legal symbols in display order.
var table = []entry{
	{"0", Symbol{1, 0, 1, 0, 1, 1}, 0},
	{"1", Symbol{1, 1, 0, 1, 0, 1, 1}, 1},
	{"2", Symbol{1, 0, 0, 1, 0, 1, 1}, 2},
	{"3", Symbol{1, 1, 0, 0, 1, 0, 1}, 3},
	{"4", Symbol{1, 0, 1, 1, 0, 1, 1}, 4},
	{"5", Symbol{1, 1, 0, 1, 1, 0, 1}, 5},
	{"6", Symbol{1, 0, 0, 1, 1, 0, 1}, 6},
	{"7", Symbol{1, 0, 1, 0, 0, 1, 1}, 7},
	{"8", Symbol{1, 1, 0, 1, 0, 0, 1}, 8},
	{"9", Symbol{1, 1, 0, 1, 0, 1}, 9},
	{Dash, Symbol{1, 0, 1, 1, 0, 1}, 10},
	{StartStop, Symbol{1, 0, 1, 1, 0, 0, 1}, -1},
}

// Lookup maps, built once from table and never written afterwards.
var (
	labelByPattern = make(map[string]string, len(table))
	patternByLabel = make(map[string]Symbol, len(table))
	valueByPattern = make(map[string]int, len(table)-1)
)

func init() {
	for _, e := range table {
		key := string(e.pattern)
		labelByPattern[key] = e.label
		patternByLabel[e.label] = e.pattern
		if e.value >= 0 {
			valueByPattern[key] = e.value
		}
	}
}

// SymbolToChar decodes a pattern to its label.
func SymbolToChar(sym Symbol) (string, error) {
	label, ok := labelByPattern[string(sym)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	return label, nil
}

// CharToSymbol encodes a label to its pattern. The returned slice is a copy
// and may be modified by the caller.
func CharToSymbol(label string) (Symbol, error) {
	sym, ok := patternByLabel[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharacter, label)
	}
	return append(Symbol(nil), sym...), nil
}

// SymbolToValue returns the numeric weight of a data symbol: digits map to
// themselves and "-" maps to 10. The sentinel has no value.
func SymbolToValue(sym Symbol) (int, error) {
	v, ok := valueByPattern[string(sym)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotADigitSymbol, sym)
	}
	return v, nil
}

// IsStartStop reports whether sym is the start/stop sentinel.
func IsStartStop(sym Symbol) bool {
	return string(sym) == string(table[len(table)-1].pattern)
}

// Labels returns the 12 legal labels in table order.
func Labels() []string {
	out := make([]string, len(table))
	for i, e := range table {
		out[i] = e.label
	}
	return out
}

// TableEntry describes one legal symbol for listing purposes.
type TableEntry struct {
	Label    string
	Pattern  Symbol
	Value    int
	HasValue bool
}

// Symbols returns a copy of the symbol table in display order.
func Symbols() []TableEntry {
	out := make([]TableEntry, len(table))
	for i, e := range table {
		out[i] = TableEntry{
			Label:    e.label,
			Pattern:  append(Symbol(nil), e.pattern...),
			Value:    e.value,
			HasValue: e.value >= 0,
		}
	}
	return out
}
