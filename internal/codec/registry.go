package codec

import (
	"bytes"
	"compress/bzip2"
	"compress/flate"
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"

	"github.com/withzombies/sevenz-rust2/filters"
)

// ErrUnsupportedMethod mirrors the root package's sentinel of the same
// name without importing it (this package sits below sevenzip in the
// dependency graph).
var ErrUnsupportedMethod = errors.New("codec: unsupported compression method")

// DecoderFactory builds the stream transformer for one coder's decode
// direction. password is nil unless the coder is an encryption coder.
type DecoderFactory func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error)

// EncoderFactory builds the stream transformer for one coder's encode
// direction, writing to out.
type EncoderFactory func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error)

type entry struct {
	decode DecoderFactory
	encode EncoderFactory
}

var registry sync.Map // map[string]entry

func register(id []byte, d DecoderFactory, e EncoderFactory) {
	registry.Store(key(id), entry{decode: d, encode: e})
}

// Decoder returns the decoder factory registered for id, or nil.
func Decoder(id []byte) DecoderFactory {
	v, ok := registry.Load(key(id))
	if !ok {
		return nil
	}
	return v.(entry).decode
}

// Encoder returns the encoder factory registered for id, or nil.
func Encoder(id []byte) EncoderFactory {
	v, ok := registry.Load(key(id))
	if !ok {
		return nil
	}
	return v.(entry).encode
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func init() {
	register(Copy,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			if len(inputs) != 1 {
				return nil, ErrUnsupportedMethod
			}
			return inputs[0], nil
		},
		func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error) {
			return nopCloser{out}, nil
		},
	)

	register(Delta,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			if len(inputs) != 1 || len(props) < 1 {
				return nil, ErrUnsupportedMethod
			}
			return filters.NewDeltaDecoder(inputs[0], uint(props[0])+1, int64(outSize))
		},
		func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error) {
			if len(props) < 1 {
				return nil, ErrUnsupportedMethod
			}
			return filters.NewDeltaEncoder(out, uint(props[0])+1)
		},
	)

	registerBCJ(BCJX86, filters.ArchX86)
	registerBCJ(BCJARM, filters.ArchARM)
	registerBCJ(BCJARMT, filters.ArchARMThumb)
	registerBCJ(BCJARM64, filters.ArchARM64)
	registerBCJ(BCJPPC, filters.ArchPPC)
	registerBCJ(BCJSPARC, filters.ArchSPARC)

	register(BCJ2,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			if len(inputs) != 4 {
				return nil, ErrUnsupportedMethod
			}
			return filters.NewBCJ2Decoder(inputs[0], inputs[1], inputs[2], inputs[3], int64(outSize))
		},
		// BCJ2's 4-input/1-output shape doesn't fit EncoderConfiguration's
		// single-in/single-out chain model, so this module's writer never
		// selects it; EncoderMethod has no MethodBCJ2 constant for the same
		// reason. Decode-only until the writer grows multi-input block
		// support (see DESIGN.md).
		nil,
	)

	register(LZMA,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			if len(inputs) != 1 {
				return nil, ErrUnsupportedMethod
			}
			header := bytes.NewBuffer(props)
			if err := binary.Write(header, binary.LittleEndian, outSize); err != nil {
				return nil, err
			}
			return lzma.NewReader(io.MultiReader(header, inputs[0]))
		},
		func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error) {
			cfg := lzma.WriterConfig{}
			return cfg.NewWriter(out)
		},
	)

	register(LZMA2,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			if len(inputs) != 1 {
				return nil, ErrUnsupportedMethod
			}
			cfg := lzma.Reader2Config{}
			if len(props) > 0 {
				cfg.DictCap = int(2 | (props[0] & 1))
				cfg.DictCap <<= (props[0] >> 1) + 11
			}
			return cfg.NewReader2(inputs[0])
		},
		func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error) {
			cfg := lzma.Writer2Config{}
			return cfg.NewWriter2(out)
		},
	)

	register(PPMd,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			return nil, ErrUnsupportedMethod
		},
		func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error) {
			return nil, ErrUnsupportedMethod
		},
	)

	register(BZip2,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			if len(inputs) != 1 {
				return nil, ErrUnsupportedMethod
			}
			return bzip2.NewReader(inputs[0]), nil
		},
		// No maintained third-party bzip2 encoder exists in the Go
		// ecosystem (compress/bzip2 is decode-only); see DESIGN.md.
		func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error) {
			return nil, ErrUnsupportedMethod
		},
	)

	register(Deflate,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			if len(inputs) != 1 {
				return nil, ErrUnsupportedMethod
			}
			return flate.NewReader(inputs[0]), nil
		},
		func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error) {
			level := flate.DefaultCompression
			if len(props) > 0 {
				level = int(props[0])
			}
			return flate.NewWriter(out, level)
		},
	)

	register(Zstandard,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			if len(inputs) != 1 {
				return nil, ErrUnsupportedMethod
			}
			zr, err := zstd.NewReader(inputs[0])
			if err != nil {
				return nil, err
			}
			return zr.IOReadCloser(), nil
		},
		func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error) {
			return zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
		},
	)

	register(Brotli,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			if len(inputs) != 1 {
				return nil, ErrUnsupportedMethod
			}
			return brotli.NewReader(inputs[0]), nil
		},
		func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error) {
			quality := 6
			if len(props) > 0 {
				quality = int(props[0])
			}
			return brotli.NewWriterLevel(out, quality), nil
		},
	)

	register(LZ4,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			if len(inputs) != 1 {
				return nil, ErrUnsupportedMethod
			}
			return lz4.NewReader(inputs[0]), nil
		},
		func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error) {
			w := lz4.NewWriter(out)
			return w, nil
		},
	)

	register(AES256SHA256, nil, nil) // wired directly by reader.go/writer.go, which need salt/iv/cycles from props
}

func registerBCJ(id []byte, arch filters.Architecture) {
	register(id,
		func(props []byte, inputs []io.Reader, outSize uint64, password []byte) (io.Reader, error) {
			if len(inputs) != 1 {
				return nil, ErrUnsupportedMethod
			}
			return filters.NewBCJDecoder(arch, inputs[0])
		},
		func(props []byte, out io.Writer, password []byte) (io.WriteCloser, error) {
			return filters.NewBCJEncoder(arch, out)
		},
	)
}
