// Package pio holds the fixed-width integer helpers shared by the box and
// page codecs. Getters read from the head of the slice, putters write to it.
package pio

// RecommendBufioSize is the buffer size used for buffered output writers.
var RecommendBufioSize = 1024 * 64
