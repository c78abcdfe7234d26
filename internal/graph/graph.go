// Package graph is the abstract model of a 7z block ("folder" in the 7z
// specification, renamed here to avoid clashing with filesystem folders):
// an ordered list of coders plus bindings connecting their input/output
// streams, and the chain builder that turns that graph into a concrete
// linear chain of stream transformers.
//
// Adapted from saracen/go7z's use of the external
// saracen/solidblock package in reader.go (fr.binder.AddCodec/.Pair/
// .Outputs()) and bodgit/sevenzip's inline index arithmetic in struct.go
// (folder.coderReader/FolderReader) — owned in-module here because the
// chain builder is core engineering this module owns directly (see
// DESIGN.md for why the external dependency was dropped).
package graph

import "errors"

// ErrInvalidCoderGraph is returned when a block's coders/bindings don't
// resolve to exactly one terminal (unbound) output stream, reference a
// dangling binding, or would require a stream before it is produced.
var ErrInvalidCoderGraph = errors.New("graph: invalid coder graph")

// Coder is one codec or filter stage inside a Block.
type Coder struct {
	ID            []byte
	NumInStreams  int
	NumOutStreams int
	Properties    []byte
}

// Binding connects one coder's input stream to another coder's output
// stream, by their block-global stream indices.
type Binding struct {
	InIndex  int
	OutIndex int
}

// Block is the abstract model of one solid-compression unit: an ordered
// list of coders, their bindings, which of the block's unbound input slots
// are fed by on-disk packed streams, and each output stream's unpacked
// size.
type Block struct {
	Coders        []*Coder
	Bindings      []*Binding
	PackedIndices []int // global in-stream index fed by packed stream i, in packed-stream order
	OutSizes      []uint64
	HasCRC        bool
	CRC           uint32
}

// NumInStreamsTotal is the sum of inputs required by all coders.
func (b *Block) NumInStreamsTotal() int {
	n := 0
	for _, c := range b.Coders {
		n += c.NumInStreams
	}
	return n
}

// NumOutStreamsTotal is the sum of outputs produced by all coders.
func (b *Block) NumOutStreamsTotal() int {
	n := 0
	for _, c := range b.Coders {
		n += c.NumOutStreams
	}
	return n
}

// FindBindingForIn returns the binding whose InIndex is i, or nil.
func (b *Block) FindBindingForIn(i int) *Binding {
	for _, bp := range b.Bindings {
		if bp.InIndex == i {
			return bp
		}
	}
	return nil
}

// FindBindingForOut returns the binding whose OutIndex is i, or nil.
func (b *Block) FindBindingForOut(i int) *Binding {
	for _, bp := range b.Bindings {
		if bp.OutIndex == i {
			return bp
		}
	}
	return nil
}

// PrimaryOutIndex returns the index of the block's one output stream that
// has no binding (invariant I3 of the format): that coder's output is the
// block's primary unpacked stream. Returns -1 if zero or more than one
// unbound output exists.
func (b *Block) PrimaryOutIndex() int {
	found := -1
	for i := 0; i < b.NumOutStreamsTotal(); i++ {
		if b.FindBindingForOut(i) == nil {
			if found != -1 {
				return -1
			}
			found = i
		}
	}
	return found
}

// UnpackSize returns the block's primary unpacked size (the size of the
// output stream PrimaryOutIndex refers to), or 0 if the graph is invalid.
func (b *Block) UnpackSize() uint64 {
	i := b.PrimaryOutIndex()
	if i < 0 || i >= len(b.OutSizes) {
		return 0
	}
	return b.OutSizes[i]
}

// Validate checks the structural invariants BuildDecoderChain relies on
// without constructing any stream transformers: exactly one unbound
// output, every input is either packed or bound, and every binding target
// is in range.
func (b *Block) Validate() error {
	if b.PrimaryOutIndex() < 0 {
		return ErrInvalidCoderGraph
	}

	numIn := b.NumInStreamsTotal()
	numOut := b.NumOutStreamsTotal()

	packed := make(map[int]bool, len(b.PackedIndices))
	for _, idx := range b.PackedIndices {
		if idx < 0 || idx >= numIn {
			return ErrInvalidCoderGraph
		}
		packed[idx] = true
	}

	for _, bp := range b.Bindings {
		if bp.InIndex < 0 || bp.InIndex >= numIn || bp.OutIndex < 0 || bp.OutIndex >= numOut {
			return ErrInvalidCoderGraph
		}
	}

	for i := 0; i < numIn; i++ {
		if packed[i] {
			continue
		}
		if b.FindBindingForIn(i) == nil {
			return ErrInvalidCoderGraph
		}
	}

	return nil
}
