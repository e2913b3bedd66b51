// Package barcode defines the symbology-neutral contract shared by the
// decoders in this module.
//
// A decoder turns an already segmented sequence of bar/space patterns (or
// their human-readable labels) into a Barcode that can report whether it is
// well formed and render itself for display. Acquisition of the element
// sequence, whether from an image, a scanner or manual entry, happens
// elsewhere.
package barcode
