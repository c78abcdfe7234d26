package sevenzip

import (
	"encoding/binary"

	"github.com/withzombies/sevenz-rust2/internal/codec"
)

// EncoderMethod names one coder in a content pipeline. The zero value is
// MethodCopy.
type EncoderMethod int

const (
	MethodCopy EncoderMethod = iota
	MethodDelta
	MethodBCJX86
	MethodBCJARM
	MethodBCJARMThumb
	MethodBCJARM64
	MethodBCJPPC
	MethodBCJSPARC
	MethodLZMA
	MethodLZMA2
	MethodPPMd
	MethodBZip2
	MethodDeflate
	MethodZStandard
	MethodBrotli
	MethodLZ4
	MethodAES256SHA256
)

func (m EncoderMethod) id() []byte {
	switch m {
	case MethodCopy:
		return codec.Copy
	case MethodDelta:
		return codec.Delta
	case MethodBCJX86:
		return codec.BCJX86
	case MethodBCJARM:
		return codec.BCJARM
	case MethodBCJARMThumb:
		return codec.BCJARMT
	case MethodBCJARM64:
		return codec.BCJARM64
	case MethodBCJPPC:
		return codec.BCJPPC
	case MethodBCJSPARC:
		return codec.BCJSPARC
	case MethodLZMA:
		return codec.LZMA
	case MethodLZMA2:
		return codec.LZMA2
	case MethodPPMd:
		return codec.PPMd
	case MethodBZip2:
		return codec.BZip2
	case MethodDeflate:
		return codec.Deflate
	case MethodZStandard:
		return codec.Zstandard
	case MethodBrotli:
		return codec.Brotli
	case MethodLZ4:
		return codec.LZ4
	case MethodAES256SHA256:
		return codec.AES256SHA256
	}
	return codec.Copy
}

// EncoderConfiguration is one stage of a content pipeline: a method plus
// its options. SetContentMethods takes an ordered slice of these, applied
// to plaintext in slice order (see internal/graph.NewLinearBlock/
// BuildEncoderChain for the chain-building convention this ordering
// drives).
//
// Mirrors original_source/src/encoder_options.rs's EncoderConfiguration
// /ExtraOptions pairing.
type EncoderConfiguration struct {
	Method  EncoderMethod
	Options any
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DeltaOptions configures the Delta filter.
type DeltaOptions struct {
	// Distance is 1-256; 0 is treated as 1.
	Distance uint32
}

// DeltaOptionsFromDistance clamps distance into Delta's valid range.
func DeltaOptionsFromDistance(distance uint32) DeltaOptions {
	if distance == 0 {
		distance = 1
	}
	return DeltaOptions{Distance: clampU32(distance, 1, 256)}
}

func (o DeltaOptions) properties() []byte {
	if o.Distance == 0 {
		return []byte{0}
	}
	return []byte{byte(o.Distance - 1)}
}

// LZMAOptions configures the LZMA coder.
type LZMAOptions struct {
	Level    uint32
	DictSize uint32
}

// LZMAOptionsFromLevel builds options for a 0-9 compression level, the same
// scale 7-Zip's own presets use.
func LZMAOptionsFromLevel(level uint32) LZMAOptions {
	level = clampU32(level, 0, 9)
	return LZMAOptions{Level: level, DictSize: presetDictSize(level)}
}

// properties returns LZMA's 5-byte coder-properties: one props byte
// packing lc/lp/pb (fixed at the ulikunitz/xz/lzma default of lc=3, lp=0,
// pb=2, since the registered encoder doesn't negotiate or report back
// whatever values it actually used) followed by a 4-byte little-endian
// dictionary size.
func (o LZMAOptions) properties() []byte {
	buf := make([]byte, 5)
	buf[0] = byte((2*5+0)*9 + 3)
	binary.LittleEndian.PutUint32(buf[1:], o.DictSize)
	return buf
}

// LZMA2Options configures the LZMA2 coder.
type LZMA2Options struct {
	Level    uint32
	DictSize uint32
}

// LZMA2OptionsFromLevel builds LZMA2 options for a 0-9 compression level.
func LZMA2OptionsFromLevel(level uint32) LZMA2Options {
	level = clampU32(level, 0, 9)
	return LZMA2Options{Level: level, DictSize: presetDictSize(level)}
}

// SetDictionarySize overrides the preset dictionary size (clamped to
// 4096..4294967280).
func (o *LZMA2Options) SetDictionarySize(dictSize uint32) {
	o.DictSize = clampU32(dictSize, 4096, 4294967280)
}

func presetDictSize(level uint32) uint32 {
	switch {
	case level <= 3:
		return 1 << 20
	case level == 4, level == 5:
		return 1 << 23
	case level == 6:
		return 1 << 24
	default:
		return 1 << 26
	}
}

func (o LZMA2Options) properties() []byte {
	return []byte{dictSizeProp(o.DictSize)}
}

func dictSizeProp(dictSize uint32) byte {
	for p := byte(0); p <= 40; p++ {
		size := uint32(2|(p&1)) << (uint(p)/2 + 11)
		if p == 0 {
			size = 1 << 12
		}
		if size >= dictSize {
			return p
		}
	}
	return 40
}

// Bzip2Options configures the BZIP2 coder.
type Bzip2Options struct{ Level uint32 }

// Bzip2OptionsFromLevel builds options for a 1-9 compression level.
func Bzip2OptionsFromLevel(level uint32) Bzip2Options {
	return Bzip2Options{Level: clampU32(level, 1, 9)}
}

// DeflateOptions configures the DEFLATE coder.
type DeflateOptions struct{ Level uint32 }

// DeflateOptionsFromLevel builds options for a 0-9 compression level.
func DeflateOptionsFromLevel(level uint32) DeflateOptions {
	return DeflateOptions{Level: clampU32(level, 0, 9)}
}

func (o DeflateOptions) properties() []byte { return []byte{byte(o.Level)} }

// ZStandardOptions configures the Zstandard coder.
type ZStandardOptions struct{ Level uint32 }

// ZStandardOptionsFromLevel builds options for a 1-22 compression level.
func ZStandardOptionsFromLevel(level uint32) ZStandardOptions {
	return ZStandardOptions{Level: clampU32(level, 1, 22)}
}

func (o ZStandardOptions) properties() []byte { return []byte{byte(o.Level)} }

// BrotliOptions configures the Brotli coder.
type BrotliOptions struct {
	Quality uint32
	Window  uint32
}

// BrotliOptionsFromQualityWindow builds options for a 0-11 quality and
// 10-24 window size.
func BrotliOptionsFromQualityWindow(quality, window uint32) BrotliOptions {
	return BrotliOptions{Quality: clampU32(quality, 0, 11), Window: clampU32(window, 10, 24)}
}

func (o BrotliOptions) properties() []byte { return []byte{byte(o.Quality)} }

// LZ4Options configures the LZ4 coder.
type LZ4Options struct{}

func (o LZ4Options) properties() []byte { return nil }

// PPMdOptions configures the PPMd coder. No backing PPMd implementation is
// wired in this build (see DESIGN.md), so these options are accepted but
// any attempt to encode or decode with MethodPPMd fails with
// ErrUnsupportedMethod.
type PPMdOptions struct {
	Order      uint32
	MemorySize uint32
}

// PPMdOptionsFromLevel mirrors original_source/src/encoder_options.rs's
// level-to-order/memory table.
func PPMdOptionsFromLevel(level uint32) PPMdOptions {
	orders := [10]uint32{3, 4, 4, 5, 5, 6, 8, 16, 24, 32}
	level = clampU32(level, 0, 9)
	return PPMdOptions{Order: orders[level], MemorySize: 1 << (level + 19)}
}

func (o PPMdOptions) properties() []byte { return nil }

// AESOptions configures the AES-256-SHA-256 encryption coder.
type AESOptions struct {
	Password       Password
	IV             [16]byte
	Salt           [16]byte
	NumCyclesPower byte
}

// NewAESOptions returns AES options with a password and 8 cycles-power,
// matching original_source/src/encoder_options.rs's AesEncoderOptions::new
// default. The Writer does not take AESOptions: SetContentMethods rejects
// MethodAES256SHA256, and every block encrypted through SetPassword gets a
// freshly generated salt and IV.
func NewAESOptions(password Password) AESOptions {
	return AESOptions{Password: password, NumCyclesPower: 8}
}

func (o AESOptions) properties() []byte {
	props := make([]byte, 34)
	props[0] = (o.NumCyclesPower & 0x3f) | 0xc0
	props[1] = 0xff
	copy(props[2:18], o.Salt[:])
	copy(props[18:34], o.IV[:])
	return props
}

// parseAESProperties decodes the fixed 34-byte layout AESOptions.properties
// produces: a cycles-power byte, a 0xFF marker, a 16-byte salt and a
// 16-byte IV.
func parseAESProperties(props []byte) (cyclesPower int, salt, iv []byte, ok bool) {
	if len(props) != 34 {
		return 0, nil, nil, false
	}
	cyclesPower = int(props[0] & 0x3f)
	salt = props[2:18]
	iv = props[18:34]
	return cyclesPower, salt, iv, true
}

// properties returns the coder-properties bytes for this EncoderConfiguration's
// options, or nil if the method takes none.
func (c EncoderConfiguration) properties() []byte {
	switch o := c.Options.(type) {
	case DeltaOptions:
		return o.properties()
	case LZMAOptions:
		return o.properties()
	case LZMA2Options:
		return o.properties()
	case DeflateOptions:
		return o.properties()
	case ZStandardOptions:
		return o.properties()
	case BrotliOptions:
		return o.properties()
	case LZ4Options:
		return o.properties()
	case AESOptions:
		return o.properties()
	default:
		return nil
	}
}
