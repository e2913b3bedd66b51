package code11

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/code11/internal/barcode"
)

// Separator joins decoded labels in DisplayString.
const Separator = ", "

// minCheckedLength is start + one data symbol + check character + stop.
const minCheckedLength = 4

// validity is the cached outcome of validation.
type validity int

const (
	undetermined validity = iota
	valid
	invalid
)

// Barcode is a Code 11 symbol sequence together with the rules it is
// validated under.
//
// A Barcode caches its validity on first use and is therefore confined to a
// single goroutine; callers sharing one across goroutines must synchronize
// access themselves.
type Barcode struct {
	symbols   []Symbol
	useCheck  bool
	minDigits int

	checkChar string
	hasCheck  bool

	state    validity
	expected int
	computed bool

	// checksumRuns counts checksum evaluations.
	checksumRuns int
}

// Option configures a Barcode.
type Option func(*Barcode)

// WithCheck enables check character verification.
func WithCheck(useCheck bool) Option {
	return func(b *Barcode) { b.useCheck = useCheck }
}

// WithMinDigits sets the number of data symbols required when the check
// character is not in use. The default is 1.
func WithMinDigits(n int) Option {
	return func(b *Barcode) { b.minDigits = n }
}

// WithOptions applies symbology-neutral options.
func WithOptions(opts barcode.Options) Option {
	return func(b *Barcode) {
		b.useCheck = opts.UseCheck
		b.minDigits = opts.MinDigits
	}
}

// New builds a barcode from a symbol sequence. Structural checks run
// immediately; the checksum is deferred to the first Validate call. In check
// mode an unknown pattern in the check position fails with ErrUnknownSymbol.
func New(symbols []Symbol, opts ...Option) (*Barcode, error) {
	b := &Barcode{minDigits: 1}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.reset(symbols); err != nil {
		return nil, err
	}
	return b, nil
}

// FromCharacters encodes each label and builds a barcode from the result.
// The first unknown label aborts construction.
func FromCharacters(labels []string, opts ...Option) (*Barcode, error) {
	symbols := make([]Symbol, 0, len(labels))
	for i, label := range labels {
		sym, err := CharToSymbol(label)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		symbols = append(symbols, sym)
	}
	return New(symbols, opts...)
}

// Symbols returns the underlying sequence. The slice must not be modified;
// use SetSymbols to replace it.
func (b *Barcode) Symbols() []Symbol {
	return b.symbols
}

// SetSymbols replaces the sequence and discards any cached validity. On
// error the barcode keeps its previous sequence and state.
func (b *Barcode) SetSymbols(symbols []Symbol) error {
	return b.reset(symbols)
}

// Format implements barcode.Barcode.
func (b *Barcode) Format() barcode.Format {
	return barcode.FormatCode11
}

// UseCheck reports whether the check character is verified.
func (b *Barcode) UseCheck() bool { return b.useCheck }

// MinDigits returns the configured data symbol count.
func (b *Barcode) MinDigits() int { return b.minDigits }

// CheckChar returns the recorded check character. It is only present in
// check mode when the framing is correct and the character is a digit.
func (b *Barcode) CheckChar() (string, bool) {
	return b.checkChar, b.hasCheck
}

// Checksum returns the expected check value once it has been computed.
func (b *Barcode) Checksum() (int, bool) {
	return b.expected, b.computed
}

// Validate reports whether the barcode is well formed and, in check mode,
// whether the check character matches. The outcome is cached once known, so
// the checksum runs at most once. An unknown pattern among the data symbols
// fails with ErrUnknownSymbol and leaves the outcome undetermined.
func (b *Barcode) Validate() (bool, error) {
	switch b.state {
	case valid:
		return true, nil
	case invalid:
		return false, nil
	}

	ok, err := b.verifyChecksum()
	if err != nil {
		return false, err
	}
	if ok {
		b.state = valid
	} else {
		b.state = invalid
	}
	return ok, nil
}

// IsValid is Validate with errors reported as invalid.
func (b *Barcode) IsValid() bool {
	ok, err := b.Validate()
	return err == nil && ok
}

// DisplayString decodes every symbol and joins the labels with Separator.
func (b *Barcode) DisplayString() (string, error) {
	labels := make([]string, 0, len(b.symbols))
	for i, sym := range b.symbols {
		label, err := SymbolToChar(sym)
		if err != nil {
			return "", fmt.Errorf("position %d: %w", i, err)
		}
		labels = append(labels, label)
	}
	return strings.Join(labels, Separator), nil
}

// String implements fmt.Stringer.
func (b *Barcode) String() string {
	s, err := b.DisplayString()
	if err != nil {
		return "<invalid code11: " + err.Error() + ">"
	}
	return s
}

func (b *Barcode) reset(symbols []Symbol) error {
	state, checkChar, err := b.structure(symbols)
	if err != nil {
		return err
	}
	b.symbols = symbols
	b.checkChar, b.hasCheck = checkChar, checkChar != ""
	b.expected, b.computed = 0, false
	b.state = state
	return nil
}

// structure applies the framing and length rules to symbols and returns the
// initial state with the recorded check character, if any.
func (b *Barcode) structure(symbols []Symbol) (validity, string, error) {
	n := len(symbols)
	framed := n >= 2 && IsStartStop(symbols[0]) && IsStartStop(symbols[n-1])

	if !b.useCheck {
		if n == b.minDigits+2 && framed {
			return valid, "", nil
		}
		return invalid, "", nil
	}

	if n < minCheckedLength || !framed {
		return invalid, "", nil
	}

	label, err := SymbolToChar(symbols[n-2])
	if err != nil {
		return invalid, "", fmt.Errorf("check character at position %d: %w", n-2, err)
	}
	if label == Dash || label == StartStop {
		return invalid, "", nil
	}
	return undetermined, label, nil
}

// verifyChecksum weights the data symbols L..1 and compares the modulus-11
// result with the check character.
func (b *Barcode) verifyChecksum() (bool, error) {
	b.checksumRuns++

	data := b.symbols[1 : len(b.symbols)-2]
	sum, ok, err := weightedSum(data)
	if err != nil || !ok {
		return false, err
	}

	b.expected, b.computed = expectedCheck(sum), true

	want, err := SymbolToValue(b.symbols[len(b.symbols)-2])
	if err != nil {
		return false, err
	}
	return b.expected == want, nil
}

// weightedSum returns Σ value×weight with weights counting down to 1.
// A sentinel among the data symbols fails the sum; an unknown pattern is an
// ErrUnknownSymbol error.
func weightedSum(data []Symbol) (int, bool, error) {
	sum := 0
	weight := len(data)
	for i, sym := range data {
		if IsStartStop(sym) {
			return 0, false, nil
		}
		v, ok := valueByPattern[string(sym)]
		if !ok {
			return 0, false, fmt.Errorf("data symbol at position %d: %w: %s", i+1, ErrUnknownSymbol, sym)
		}
		sum += v * weight
		weight--
	}
	return sum, true, nil
}

// expectedCheck yields a value in 1..11. Values of 10 and 11 can never match
// a digit check character.
func expectedCheck(sum int) int {
	return 11 - (sum/11)%11
}
