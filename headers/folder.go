package headers

import (
	"io"

	"github.com/withzombies/sevenz-rust2/internal/graph"
	"github.com/withzombies/sevenz-rust2/internal/wire"
)

// ReadFolder reads one folder (a graph.Block): its coders, their bindings,
// and — when more than one input stream is left unbound by a binding —
// the explicit list of which packed stream feeds which input.
//
// Adapted from saracen/go7z's headers/folder.go ReadFolder;
// PackedIndices now always uses the explicit/implicit-derivation split the
// format itself specifies (more than one packed stream must be listed
// explicitly, exactly one is derived from whichever input has no binding),
// matching graph.Block's expectations.
func ReadFolder(r io.Reader) (*graph.Block, error) {
	block := &graph.Block{}

	numCoders, err := wire.ReadNumberInt(r)
	if err != nil {
		return nil, err
	}
	if numCoders == 0 || numCoders > MaxCodersInFolder {
		return nil, ErrInvalidCoderCount
	}

	block.Coders = make([]*graph.Coder, numCoders)
	for i := range block.Coders {
		if block.Coders[i], err = readCoderInfo(r); err != nil {
			return nil, err
		}
	}

	numBindPairs := numCoders - 1
	block.Bindings = make([]*graph.Binding, numBindPairs)
	for i := range block.Bindings {
		if block.Bindings[i], err = readBindPair(r); err != nil {
			return nil, err
		}
	}

	numInTotal := block.NumInStreamsTotal()
	numPackedStreams := numInTotal - numBindPairs
	if numPackedStreams > 1 {
		if numPackedStreams > MaxPackedStreamsInFolder {
			return nil, ErrInvalidPackedStreamsCount
		}

		block.PackedIndices = make([]int, numPackedStreams)
		for i := range block.PackedIndices {
			if block.PackedIndices[i], err = wire.ReadNumberInt(r); err != nil {
				return nil, err
			}
		}
	} else if numPackedStreams == 1 {
		for i := 0; i < numInTotal; i++ {
			if block.FindBindingForIn(i) == nil {
				block.PackedIndices = []int{i}
				break
			}
		}
	}

	return block, nil
}

// WriteFolder is the dual of ReadFolder. It writes the explicit
// PackedIndices list only when the format requires it (more than one
// packed stream); the single-packed-stream case is always re-derivable
// from the bindings on read, so it's omitted, matching real archives.
func WriteFolder(w io.Writer, block *graph.Block) error {
	if err := wire.WriteNumberInt(w, len(block.Coders)); err != nil {
		return err
	}
	for _, c := range block.Coders {
		if err := writeCoderInfo(w, c); err != nil {
			return err
		}
	}
	for _, bp := range block.Bindings {
		if err := writeBindPair(w, bp); err != nil {
			return err
		}
	}

	if len(block.PackedIndices) > 1 {
		for _, idx := range block.PackedIndices {
			if err := wire.WriteNumberInt(w, idx); err != nil {
				return err
			}
		}
	}

	return nil
}

func readCoderInfo(r io.Reader) (*graph.Coder, error) {
	attributes, err := wire.ReadByte(r)
	if err != nil {
		return nil, err
	}

	coder := &graph.Coder{NumInStreams: 1, NumOutStreams: 1}

	idSize := attributes & 0x0f
	isComplex := attributes&0x10 != 0
	hasAttributes := attributes&0x20 != 0

	if idSize > 0 {
		coder.ID = make([]byte, idSize)
		if _, err = io.ReadFull(r, coder.ID); err != nil {
			return nil, err
		}
	}

	if isComplex {
		if coder.NumInStreams, err = wire.ReadNumberInt(r); err != nil {
			return nil, err
		}
		if coder.NumInStreams == 0 || coder.NumInStreams > MaxInOutStreams {
			return nil, ErrInvalidStreamCount
		}

		if coder.NumOutStreams, err = wire.ReadNumberInt(r); err != nil {
			return nil, err
		}
		if coder.NumOutStreams == 0 || coder.NumOutStreams > MaxInOutStreams {
			return nil, ErrInvalidStreamCount
		}
	}

	if hasAttributes {
		size, err := wire.ReadNumberInt(r)
		if err != nil {
			return nil, err
		}
		if size <= 0 || size > MaxPropertyDataSize {
			return nil, ErrInvalidPropertyDataSize
		}

		coder.Properties = make([]byte, size)
		if _, err = io.ReadFull(r, coder.Properties); err != nil {
			return nil, err
		}
	}

	return coder, nil
}

func writeCoderInfo(w io.Writer, c *graph.Coder) error {
	isComplex := c.NumInStreams != 1 || c.NumOutStreams != 1
	hasAttributes := len(c.Properties) > 0

	attributes := byte(len(c.ID))
	if isComplex {
		attributes |= 0x10
	}
	if hasAttributes {
		attributes |= 0x20
	}

	if err := wire.WriteByte(w, attributes); err != nil {
		return err
	}
	if _, err := w.Write(c.ID); err != nil {
		return err
	}

	if isComplex {
		if err := wire.WriteNumberInt(w, c.NumInStreams); err != nil {
			return err
		}
		if err := wire.WriteNumberInt(w, c.NumOutStreams); err != nil {
			return err
		}
	}

	if hasAttributes {
		if err := wire.WriteNumberInt(w, len(c.Properties)); err != nil {
			return err
		}
		if _, err := w.Write(c.Properties); err != nil {
			return err
		}
	}

	return nil
}

func readBindPair(r io.Reader) (*graph.Binding, error) {
	b := &graph.Binding{}
	var err error
	if b.InIndex, err = wire.ReadNumberInt(r); err != nil {
		return nil, err
	}
	if b.OutIndex, err = wire.ReadNumberInt(r); err != nil {
		return nil, err
	}
	return b, nil
}

func writeBindPair(w io.Writer, b *graph.Binding) error {
	if err := wire.WriteNumberInt(w, b.InIndex); err != nil {
		return err
	}
	return wire.WriteNumberInt(w, b.OutIndex)
}
