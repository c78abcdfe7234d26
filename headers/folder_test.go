package headers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/withzombies/sevenz-rust2/internal/graph"
)

func TestFolderRoundTripLinearChain(t *testing.T) {
	block := graph.NewLinearBlock([]*graph.Coder{
		{ID: []byte{0x03}, NumInStreams: 1, NumOutStreams: 1, Properties: []byte{5}},
		{ID: []byte{0x21}, NumInStreams: 1, NumOutStreams: 1},
	})
	block.OutSizes[0] = 100
	block.OutSizes[1] = 40

	var buf bytes.Buffer
	require.NoError(t, WriteFolder(&buf, block))

	got, err := ReadFolder(&buf)
	require.NoError(t, err)
	require.Len(t, got.Coders, 2)
	require.Equal(t, block.Coders[0].ID, got.Coders[0].ID)
	require.Equal(t, block.Coders[0].Properties, got.Coders[0].Properties)
	require.Len(t, got.Bindings, 1)
	require.Equal(t, block.PackedIndices, got.PackedIndices)
}

func TestFolderRoundTripMultiplePackedStreams(t *testing.T) {
	// A BCJ2-shaped block: one 4-input/1-output coder, no bindings, every
	// input fed directly by a packed stream — forcing the explicit
	// PackedIndices list (more than one packed stream).
	block := &graph.Block{
		Coders:        []*graph.Coder{{ID: []byte{0x03, 0x03, 0x01, 0x1b}, NumInStreams: 4, NumOutStreams: 1}},
		PackedIndices: []int{0, 1, 2, 3},
		OutSizes:      []uint64{256},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFolder(&buf, block))

	got, err := ReadFolder(&buf)
	require.NoError(t, err)
	require.Equal(t, block.PackedIndices, got.PackedIndices)
}

func TestFolderRoundTripCoderWithAttributes(t *testing.T) {
	block := graph.NewLinearBlock([]*graph.Coder{
		{ID: []byte{0x06, 0xf1, 0x07, 0x01}, NumInStreams: 1, NumOutStreams: 1, Properties: bytes.Repeat([]byte{0xAB}, 34)},
	})
	block.OutSizes[0] = 16

	var buf bytes.Buffer
	require.NoError(t, WriteFolder(&buf, block))

	got, err := ReadFolder(&buf)
	require.NoError(t, err)
	require.Equal(t, block.Coders[0].ID, got.Coders[0].ID)
	require.Equal(t, block.Coders[0].Properties, got.Coders[0].Properties)
}
