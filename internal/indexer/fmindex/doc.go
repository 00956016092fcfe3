// Package fmindex builds and queries the FM-index of a single text: the
// suffix array, the Burrows-Wheeler Transform derived from it, the
// per-rune occurrence (rank) tables, backward search and BWT inversion.
//
// All positions are rune offsets. Texts handed to the index should be
// passed through Terminate first, which appends Sentinel, a rune smaller
// than every other rune in the text. With a unique smallest terminator the
// suffix order equals the cyclic-rotation order, so the BWT is well defined
// and invertible.
package fmindex
