package graph

import "io"

// DecoderFunc constructs the stream transformer(s) for one coder given its
// already-resolved input readers and the declared size of each of its
// output streams. It returns exactly len(outSizes) readers, one per output
// stream, in output-stream order.
type DecoderFunc func(c *Coder, inputs []io.Reader, outSizes []uint64) ([]io.Reader, error)

// EncoderFunc constructs the stream transformer for one coder given the
// writer its single output stream should feed. Every coder the writer
// emits has exactly one input and one output stream.
type EncoderFunc func(c *Coder, out io.Writer) (io.WriteCloser, error)

func streamOffsets(coders []*Coder, numStreams func(*Coder) int) []int {
	offsets := make([]int, len(coders))
	total := 0
	for i, c := range coders {
		offsets[i] = total
		total += numStreams(c)
	}
	return offsets
}

// BuildDecoderChain resolves a Block's coder graph into the single
// io.Reader producing its primary unpacked stream, by repeatedly
// constructing any coder whose inputs (packed streams or bindings to an
// already-built coder output) are all ready. This topological walk, rather
// than a straight pass over Coders in list order, is what lets a coder
// such as BCJ2 consume the outputs of several earlier coders in one step.
//
// Adapted from saracen/go7z's reader.go, which delegated
// this resolution to the external saracen/solidblock binder; reimplemented
// here because the chain builder is core engineering this package owns
// directly (see DESIGN.md).
func BuildDecoderChain(block *Block, packed []io.Reader, newDecoder DecoderFunc) (io.Reader, error) {
	if err := block.Validate(); err != nil {
		return nil, err
	}
	if len(packed) != len(block.PackedIndices) {
		return nil, ErrInvalidCoderGraph
	}

	numIn := block.NumInStreamsTotal()
	numOut := block.NumOutStreamsTotal()
	in := make([]io.Reader, numIn)
	out := make([]io.Reader, numOut)

	for j, idx := range block.PackedIndices {
		in[idx] = packed[j]
	}

	inOffsets := streamOffsets(block.Coders, func(c *Coder) int { return c.NumInStreams })
	outOffsets := streamOffsets(block.Coders, func(c *Coder) int { return c.NumOutStreams })

	processed := make([]bool, len(block.Coders))
	remaining := len(block.Coders)

	for remaining > 0 {
		progress := false

		for ci, c := range block.Coders {
			if processed[ci] {
				continue
			}

			ins := make([]io.Reader, c.NumInStreams)
			ready := true
			for k := 0; k < c.NumInStreams; k++ {
				g := inOffsets[ci] + k
				if in[g] != nil {
					ins[k] = in[g]
					continue
				}
				bp := block.FindBindingForIn(g)
				if bp == nil {
					return nil, ErrInvalidCoderGraph
				}
				if out[bp.OutIndex] == nil {
					ready = false
					break
				}
				ins[k] = out[bp.OutIndex]
			}
			if !ready {
				continue
			}

			outSizes := block.OutSizes[outOffsets[ci] : outOffsets[ci]+c.NumOutStreams]
			outs, err := newDecoder(c, ins, outSizes)
			if err != nil {
				return nil, err
			}
			if len(outs) != c.NumOutStreams {
				return nil, ErrInvalidCoderGraph
			}
			for k, r := range outs {
				out[outOffsets[ci]+k] = r
			}

			processed[ci] = true
			remaining--
			progress = true
		}

		if !progress {
			return nil, ErrInvalidCoderGraph
		}
	}

	primary := block.PrimaryOutIndex()
	return out[primary], nil
}

// NewLinearBlock builds the Block describing a straight-line pipeline:
// coders[0] is applied first to the plaintext entry data, each subsequent
// coder consumes the previous one's output, and coders[len-1]'s output is
// the packed stream written to disk. OutSizes is left zeroed — the writer
// fills it in once each stage's actual byte count is known.
//
// Mirrors original_source/src/writer.rs's create_writer, which builds
// the same single-chain-of-methods shape (and, dually, on create_decoder's
// reverse walk of that chain).
func NewLinearBlock(coders []*Coder) *Block {
	b := &Block{Coders: coders}

	inOffsets := streamOffsets(coders, func(c *Coder) int { return c.NumInStreams })
	outOffsets := streamOffsets(coders, func(c *Coder) int { return c.NumOutStreams })

	for i := 0; i < len(coders)-1; i++ {
		b.Bindings = append(b.Bindings, &Binding{
			InIndex:  inOffsets[i],
			OutIndex: outOffsets[i+1],
		})
	}

	last := len(coders) - 1
	b.PackedIndices = []int{inOffsets[last]}
	b.OutSizes = make([]uint64, outOffsets[last]+coders[last].NumOutStreams)

	return b
}

type chainWriteCloser struct {
	io.Writer
	closers []io.Closer
}

func (c *chainWriteCloser) Close() error {
	var first error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildEncoderChain wraps output with one stream transformer per coder, in
// the order NewLinearBlock assumes: coders[0]'s transformer is outermost
// (what the caller writes plaintext to), coders[len-1]'s transformer is
// innermost (what writes the final packed bytes to output). Closing the
// result closes every stage outer-to-inner, so each stage's flush reaches
// output before the next stage closes.
func BuildEncoderChain(coders []*Coder, output io.Writer, newEncoder EncoderFunc) (io.WriteCloser, error) {
	w := output
	var closeOrder []io.Closer

	for i := len(coders) - 1; i >= 0; i-- {
		wc, err := newEncoder(coders[i], w)
		if err != nil {
			return nil, err
		}
		w = wc
		closeOrder = append([]io.Closer{wc}, closeOrder...)
	}

	return &chainWriteCloser{Writer: w, closers: closeOrder}, nil
}
