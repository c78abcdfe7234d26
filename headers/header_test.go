package headers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignatureHeaderRoundTrip(t *testing.T) {
	h := &SignatureHeader{Signature: Signature}
	h.ArchiveVersion.Major = 0
	h.ArchiveVersion.Minor = 4
	h.StartHeader.NextHeaderOffset = 123
	h.StartHeader.NextHeaderSize = 456
	h.StartHeader.NextHeaderCRC = 0xCAFEBABE

	var buf bytes.Buffer
	require.NoError(t, WriteSignatureHeader(&buf, h))
	require.Equal(t, 32, buf.Len())

	got, err := ReadSignatureHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, h.Signature, got.Signature)
	require.Equal(t, h.StartHeader, got.StartHeader)
}

func TestReadSignatureHeaderDetectsCorruptStartHeader(t *testing.T) {
	h := &SignatureHeader{Signature: Signature}
	h.StartHeader.NextHeaderOffset = 1

	var buf bytes.Buffer
	require.NoError(t, WriteSignatureHeader(&buf, h))

	raw := buf.Bytes()
	raw[12] ^= 0xFF // corrupt a byte inside the CRC-covered region

	_, err := ReadSignatureHeader(bytes.NewReader(raw))
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestHeaderRoundTripNoStreams(t *testing.T) {
	h := &Header{FilesInfo: []*FileInfo{{Name: "only.txt", IsEmptyStream: true, IsEmptyFile: true}}}

	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, h))

	id, err := buf.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(TagHeader), id)

	got, err := ReadHeader(&buf, 10)
	require.NoError(t, err)
	require.Nil(t, got.MainStreamsInfo)
	require.Len(t, got.FilesInfo, 1)
	require.Equal(t, "only.txt", got.FilesInfo[0].Name)
}

func TestReadPackedStreamsForHeadersDispatchesOnTag(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, buf.WriteByte(TagEnd))

	header, encoded, err := ReadPackedStreamsForHeaders(&buf, 10)
	require.NoError(t, err)
	require.Nil(t, header)
	require.Nil(t, encoded)
}
