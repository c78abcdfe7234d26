package filters

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeltaRoundTrip(t *testing.T) {
	original := []byte{1, 3, 6, 10, 15, 21, 28, 36, 45, 55}

	var encoded bytes.Buffer
	enc, err := NewDeltaEncoder(&encoded, 1)
	require.NoError(t, err)
	_, err = enc.Write(original)
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	dec, err := NewDeltaDecoder(bytes.NewReader(encoded.Bytes()), 1, int64(len(original)))
	require.NoError(t, err)
	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, original, got)
}

func TestDeltaRoundTripWiderDistance(t *testing.T) {
	original := bytes.Repeat([]byte{10, 20, 30, 40}, 64)

	var encoded bytes.Buffer
	enc, err := NewDeltaEncoder(&encoded, 4)
	require.NoError(t, err)
	_, err = enc.Write(original)
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	dec, err := NewDeltaDecoder(bytes.NewReader(encoded.Bytes()), 4, int64(len(original)))
	require.NoError(t, err)
	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, original, got)
}
