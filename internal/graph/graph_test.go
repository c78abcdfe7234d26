package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockValidatePrimaryOutput(t *testing.T) {
	b := NewLinearBlock([]*Coder{
		{NumInStreams: 1, NumOutStreams: 1},
		{NumInStreams: 1, NumOutStreams: 1},
		{NumInStreams: 1, NumOutStreams: 1},
	})

	require.NoError(t, b.Validate())
	require.Equal(t, 0, b.PrimaryOutIndex())
}

func TestBlockValidateRejectsTwoUnboundOutputs(t *testing.T) {
	b := &Block{
		Coders:        []*Coder{{NumInStreams: 1, NumOutStreams: 1}, {NumInStreams: 1, NumOutStreams: 1}},
		PackedIndices: []int{0, 1},
		OutSizes:      []uint64{0, 0},
	}

	require.ErrorIs(t, b.Validate(), ErrInvalidCoderGraph)
}

func TestBlockValidateRejectsUnfedInput(t *testing.T) {
	b := &Block{
		Coders:        []*Coder{{NumInStreams: 2, NumOutStreams: 1}},
		PackedIndices: []int{0},
		OutSizes:      []uint64{0},
	}

	require.ErrorIs(t, b.Validate(), ErrInvalidCoderGraph)
}

func TestBlockUnpackSize(t *testing.T) {
	b := NewLinearBlock([]*Coder{{NumInStreams: 1, NumOutStreams: 1}})
	b.OutSizes[0] = 1234

	require.Equal(t, uint64(1234), b.UnpackSize())
}
