package crc32x

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksumMatchesDigest(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	d := NewDigest()
	_, err := d.Write(data)
	require.NoError(t, err)

	require.Equal(t, Checksum(data), d.Sum32())
}

func TestTeeReaderAccumulates(t *testing.T) {
	data := "solid block contents"
	d := NewDigest()

	n, err := bytes.NewBuffer(nil).ReadFrom(TeeReader(strings.NewReader(data), d))
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), n)
	require.Equal(t, Checksum([]byte(data)), d.Sum32())
}

func TestWriterAccumulates(t *testing.T) {
	var dst bytes.Buffer
	cw := NewWriter(&dst)

	_, err := cw.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("def"))
	require.NoError(t, err)

	require.Equal(t, "abcdef", dst.String())
	require.Equal(t, Checksum([]byte("abcdef")), cw.Sum32())
}
