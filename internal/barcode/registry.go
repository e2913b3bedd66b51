package barcode

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoDecoder is returned when no decoder is registered for a format.
var ErrNoDecoder = errors.New("barcode: no decoder registered")

// Registry maps formats to decoders. It is populated at construction and
// read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	decoders map[Format]Decoder
}

// NewRegistry returns a registry holding the given decoders. A later decoder
// for the same format replaces an earlier one.
func NewRegistry(decoders ...Decoder) *Registry {
	r := &Registry{decoders: make(map[Format]Decoder, len(decoders))}
	for _, d := range decoders {
		if d == nil {
			continue
		}
		r.decoders[d.Format()] = d
	}
	return r
}

// Lookup returns the decoder for f.
func (r *Registry) Lookup(f Format) (Decoder, error) {
	if r == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoDecoder, f)
	}
	d, ok := r.decoders[f]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoDecoder, f)
	}
	return d, nil
}

// Formats lists the registered formats in ascending order.
func (r *Registry) Formats() []Format {
	if r == nil {
		return nil
	}
	out := make([]Format, 0, len(r.decoders))
	for f := range r.decoders {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
