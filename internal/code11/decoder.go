package code11

import (
	"fmt"

	"github.com/MeKo-Tech/code11/internal/barcode"
)

// Decoder adapts the package to barcode.Decoder.
type Decoder struct{}

var _ barcode.Decoder = Decoder{}

// Format implements barcode.Decoder.
func (Decoder) Format() barcode.Format { return barcode.FormatCode11 }

// FromPatterns parses each textual pattern and builds a barcode. Patterns are
// only checked for their 0/1 alphabet here; other unknown patterns surface
// through New, Validate or DisplayString as ErrUnknownSymbol.
func (Decoder) FromPatterns(patterns []string, opts barcode.Options) (barcode.Barcode, error) {
	symbols := make([]Symbol, 0, len(patterns))
	for i, p := range patterns {
		sym, err := ParseSymbol(p)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		symbols = append(symbols, sym)
	}
	b, err := New(symbols, WithOptions(opts))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FromLabels builds a barcode from labels.
func (Decoder) FromLabels(labels []string, opts barcode.Options) (barcode.Barcode, error) {
	b, err := FromCharacters(labels, WithOptions(opts))
	if err != nil {
		return nil, err
	}
	return b, nil
}
