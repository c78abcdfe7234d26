package graph

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// upperDecoder uppercases its single input, standing in for a real codec so
// the chain-building logic can be exercised without importing one.
func upperDecoder(_ *Coder, inputs []io.Reader, outSizes []uint64) ([]io.Reader, error) {
	b, err := io.ReadAll(inputs[0])
	if err != nil {
		return nil, err
	}
	return []io.Reader{strings.NewReader(strings.ToUpper(string(b)))}, nil
}

// reverseDecoder reverses its single input's bytes.
func reverseDecoder(_ *Coder, inputs []io.Reader, outSizes []uint64) ([]io.Reader, error) {
	b, err := io.ReadAll(inputs[0])
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return []io.Reader{bytes.NewReader(b)}, nil
}

func TestBuildDecoderChainLinear(t *testing.T) {
	coders := []*Coder{
		{NumInStreams: 1, NumOutStreams: 1}, // reverse, primary output
		{NumInStreams: 1, NumOutStreams: 1}, // upper, feeds packed stream
	}
	block := NewLinearBlock(coders)
	block.OutSizes[0] = 5
	block.OutSizes[1] = 5

	decoders := []DecoderFunc{reverseDecoder, upperDecoder}
	out, err := BuildDecoderChain(block, []io.Reader{strings.NewReader("dlrow")}, func(c *Coder, in []io.Reader, sizes []uint64) ([]io.Reader, error) {
		for ci, bc := range coders {
			if bc == c {
				return decoders[ci](c, in, sizes)
			}
		}
		return nil, ErrInvalidCoderGraph
	})
	require.NoError(t, err)

	got, err := io.ReadAll(out)
	require.NoError(t, err)
	require.Equal(t, "WORLD", string(got))
}

func TestBuildDecoderChainDetectsDanglingBinding(t *testing.T) {
	block := &Block{
		Coders:        []*Coder{{NumInStreams: 1, NumOutStreams: 1}},
		Bindings:      []*Binding{{InIndex: 0, OutIndex: 5}},
		PackedIndices: nil,
		OutSizes:      []uint64{0},
	}

	_, err := BuildDecoderChain(block, nil, upperDecoder)
	require.ErrorIs(t, err, ErrInvalidCoderGraph)
}

func TestBuildEncoderChainLinear(t *testing.T) {
	coders := []*Coder{
		{NumInStreams: 1, NumOutStreams: 1},
		{NumInStreams: 1, NumOutStreams: 1},
	}

	var out bytes.Buffer
	w, err := BuildEncoderChain(coders, &out, func(c *Coder, dst io.Writer) (io.WriteCloser, error) {
		return &prefixEncoder{dst: dst, prefix: "X"}, nil
	})
	require.NoError(t, err)

	_, err = io.WriteString(w, "hi")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, "XXhi", out.String())
}

// prefixEncoder writes its prefix once on Close and otherwise passes bytes
// through untouched; two stacked instances are enough to prove wrapping
// order without needing a real codec in this package's tests.
type prefixEncoder struct {
	dst    io.Writer
	prefix string
	buf    bytes.Buffer
}

func (p *prefixEncoder) Write(b []byte) (int, error) {
	return p.buf.Write(b)
}

func (p *prefixEncoder) Close() error {
	if _, err := io.WriteString(p.dst, p.prefix); err != nil {
		return err
	}
	_, err := p.dst.Write(p.buf.Bytes())
	return err
}
