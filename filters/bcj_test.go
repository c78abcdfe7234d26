package filters

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBCJX86RoundTrip(t *testing.T) {
	// A handful of x86 CALL (0xE8) instructions with plausible relative
	// displacements, padded so the filter has real call/jmp patterns to
	// convert — not a meaningful program, just bytes that exercise the
	// encoder/decoder path symmetrically.
	original := bytes.Repeat([]byte{0xE8, 0x01, 0x02, 0x03, 0x00, 0x90, 0x90, 0x90}, 32)

	var encoded bytes.Buffer
	enc, err := NewBCJEncoder(ArchX86, &encoded)
	require.NoError(t, err)
	_, err = enc.Write(original)
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	dec, err := NewBCJDecoder(ArchX86, bytes.NewReader(encoded.Bytes()))
	require.NoError(t, err)
	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, original, got)
}

func TestBCJArchitecturesRoundTripArbitraryBytes(t *testing.T) {
	original := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04, 0xEB, 0x10, 0x00, 0x00}, 16)

	for _, arch := range []Architecture{ArchARM, ArchARMThumb, ArchARM64, ArchPPC, ArchSPARC} {
		var encoded bytes.Buffer
		enc, err := NewBCJEncoder(arch, &encoded)
		require.NoError(t, err)
		_, err = enc.Write(original)
		require.NoError(t, err)
		require.NoError(t, enc.Close())

		dec, err := NewBCJDecoder(arch, bytes.NewReader(encoded.Bytes()))
		require.NoError(t, err)
		got, err := io.ReadAll(dec)
		require.NoError(t, err)
		require.Equal(t, original, got)
	}
}
