package barcode

import (
	"fmt"
	"strings"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatCode11
)

var formatNames = map[Format]string{
	FormatUnknown: "unknown",
	FormatCode11:  "code11",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat resolves a symbology name such as "code11" or "Code-11".
// An empty name resolves to FormatCode11, the only symbology built in.
func ParseFormat(name string) (Format, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("-", "", "_", "", " ", "").Replace(n)
	switch n {
	case "", "code11":
		return FormatCode11, nil
	default:
		return FormatUnknown, fmt.Errorf("barcode: unsupported format %q", name)
	}
}

// Options controls how a decoder interprets a symbol sequence.
type Options struct {
	// UseCheck treats the symbol before the stop sentinel as a check character.
	UseCheck bool `json:"use_check"`

	// MinDigits is the exact number of data symbols required between the
	// sentinels when UseCheck is false.
	MinDigits int `json:"min_digits"`
}

// DefaultOptions returns structural validation with a single data symbol.
func DefaultOptions() Options {
	return Options{UseCheck: false, MinDigits: 1}
}

// Barcode is a decoded symbol sequence of some symbology.
type Barcode interface {
	Format() Format
	IsValid() bool
	Validate() (bool, error)
	DisplayString() (string, error)
}

// CheckCharacterer is implemented by barcodes that may carry a check character.
type CheckCharacterer interface {
	CheckChar() (string, bool)
}

// Decoder builds barcodes of one symbology.
type Decoder interface {
	Format() Format
	// FromPatterns builds a barcode from textual bar/space patterns ("1011001").
	FromPatterns(patterns []string, opts Options) (Barcode, error)
	// FromLabels builds a barcode from human-readable labels ("S/S", "1", ...).
	FromLabels(labels []string, opts Options) (Barcode, error)
}
