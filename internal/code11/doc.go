// Package code11 decodes and validates Code 11 barcodes.
//
// A barcode is an ordered sequence of symbols, each a 6 or 7 element
// bar/space pattern. The package maps the 12 legal patterns to their labels
// ("0".."9", "-" and the start/stop sentinel "S/S"), checks the framing and
// length of a sequence, and optionally verifies the modulus-11 check
// character that precedes the stop sentinel:
//
//	b, err := code11.FromCharacters(
//		[]string{"S/S", "1", "2", "3", "4", "-", "5", "6", "7", "8", "6", "S/S"},
//		code11.WithCheck(true),
//	)
//	if err != nil {
//		return err
//	}
//	ok := b.IsValid() // true: the weighted sum is 180, check value 6
//
// Unknown patterns are reported as ErrUnknownSymbol: by New for the check
// position, by Validate for data symbols and by DisplayString for any symbol.
// IsValid folds such errors into false.
//
// The symbol table is immutable and safe for concurrent use. A Barcode caches
// its validity and must not be shared between goroutines without external
// synchronization.
package code11
