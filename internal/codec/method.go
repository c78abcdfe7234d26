// Package codec is the registry mapping a coder's method-id byte sequence
// to the decoder/encoder constructors that implement it. The per-method
// option structs the writer's EncoderConfiguration values carry live in
// the root package (options.go).
//
// Mirrors saracen/go7z's register.go, which keyed the
// same kind of table by a uint32 packing of the method id; extended here
// with the write side (register.go there has none) and with the
// compression/filter/crypto methods listed below. Method-id byte sequences
// are the ones 7-Zip itself uses (and, for Zstandard, Brotli and LZ4, the
// ones of the 7-Zip zstd codec plugins), so archives written by other 7z
// tools resolve to the same entries.
package codec

var (
	Copy      = []byte{0x00}
	Delta     = []byte{0x03}
	BCJX86    = []byte{0x03, 0x03, 0x01, 0x03}
	BCJARM    = []byte{0x03, 0x03, 0x05, 0x01}
	BCJARMT   = []byte{0x03, 0x03, 0x07, 0x01}
	BCJARM64  = []byte{0x0a}
	BCJPPC    = []byte{0x03, 0x03, 0x02, 0x05}
	BCJSPARC  = []byte{0x03, 0x03, 0x08, 0x05}
	BCJ2      = []byte{0x03, 0x03, 0x01, 0x1b}
	LZMA      = []byte{0x03, 0x01, 0x01}
	LZMA2     = []byte{0x21}
	PPMd      = []byte{0x03, 0x04, 0x01}
	BZip2     = []byte{0x04, 0x02, 0x02}
	Deflate   = []byte{0x04, 0x01, 0x08}
	Zstandard = []byte{0x04, 0xf7, 0x11, 0x01}
	Brotli    = []byte{0x04, 0xf7, 0x11, 0x02}
	LZ4       = []byte{0x04, 0xf7, 0x11, 0x04}
	AES256SHA256 = []byte{0x06, 0xf1, 0x07, 0x01}
)

func key(id []byte) string { return string(id) }
