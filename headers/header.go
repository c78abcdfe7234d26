package headers

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/withzombies/sevenz-rust2/internal/wire"
)

// Signature is the fixed 6-byte magic every 7z archive opens with.
var Signature = [6]byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}

// SignatureHeader is the fixed 32-byte structure found at the top of every
// 7z file.
type SignatureHeader struct {
	Signature [6]byte

	ArchiveVersion struct {
		Major byte
		Minor byte
	}

	StartHeaderCRC uint32

	StartHeader struct {
		NextHeaderOffset int64
		NextHeaderSize   int64
		NextHeaderCRC    uint32
	}
}

// ReadSignatureHeader reads and CRC-validates the signature header.
func ReadSignatureHeader(r io.Reader) (*SignatureHeader, error) {
	var raw [32]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, err
	}

	header := &SignatureHeader{}
	copy(header.Signature[:], raw[:6])
	header.ArchiveVersion.Major = raw[6]
	header.ArchiveVersion.Minor = raw[7]
	header.StartHeaderCRC = binary.LittleEndian.Uint32(raw[8:])
	header.StartHeader.NextHeaderOffset = int64(binary.LittleEndian.Uint64(raw[12:]))
	header.StartHeader.NextHeaderSize = int64(binary.LittleEndian.Uint64(raw[20:]))
	header.StartHeader.NextHeaderCRC = binary.LittleEndian.Uint32(raw[28:])

	if crc32.ChecksumIEEE(raw[12:32]) != header.StartHeaderCRC {
		return header, ErrChecksumMismatch
	}
	return header, nil
}

// WriteSignatureHeader writes the 32-byte signature header, computing
// StartHeaderCRC itself over the 20 bytes that follow it.
func WriteSignatureHeader(w io.Writer, h *SignatureHeader) error {
	var raw [32]byte
	copy(raw[:6], h.Signature[:])
	raw[6] = h.ArchiveVersion.Major
	raw[7] = h.ArchiveVersion.Minor
	binary.LittleEndian.PutUint64(raw[12:], uint64(h.StartHeader.NextHeaderOffset))
	binary.LittleEndian.PutUint64(raw[20:], uint64(h.StartHeader.NextHeaderSize))
	binary.LittleEndian.PutUint32(raw[28:], h.StartHeader.NextHeaderCRC)
	binary.LittleEndian.PutUint32(raw[8:], crc32.ChecksumIEEE(raw[12:32]))

	_, err := w.Write(raw[:])
	return err
}

// Header is the decoded next-header structure: the archive's streams
// layout plus its per-file metadata.
type Header struct {
	MainStreamsInfo *StreamsInfo
	FilesInfo       []*FileInfo
}

// ReadPackedStreamsForHeaders reads whichever of kHeader/kEncodedHeader/kEnd
// follows the signature header. An encoded header must itself be decoded
// (decompressed, and decrypted if a password was supplied) by the caller
// and re-parsed with ReadHeader before its FilesInfo is usable.
func ReadPackedStreamsForHeaders(r io.Reader, maxFileCount int) (header *Header, encodedHeader *StreamsInfo, err error) {
	id, err := wire.ReadByte(r)
	if err != nil {
		return nil, nil, err
	}

	switch id {
	case TagHeader:
		if header, err = ReadHeader(r, maxFileCount); err != nil {
			return nil, nil, err
		}

	case TagEncodedHeader:
		if encodedHeader, err = ReadStreamsInfo(r); err != nil {
			return nil, nil, err
		}

	case TagEnd:

	default:
		return nil, nil, ErrUnexpectedTag
	}

	return header, encodedHeader, nil
}

// ReadHeader reads a kHeader structure (the tag itself already consumed by
// the caller), bounding FilesInfo to maxFileCount entries.
func ReadHeader(r io.Reader, maxFileCount int) (*Header, error) {
	header := &Header{}

	for {
		id, err := wire.ReadByte(r)
		if err != nil {
			return nil, err
		}

		switch id {
		case TagArchiveProperties:
			return nil, ErrArchivePropertiesNotImplemented

		case TagAdditionalStreamsInfo:
			return nil, ErrAdditionalStreamsNotImplemented

		case TagMainStreamsInfo:
			if header.MainStreamsInfo, err = ReadStreamsInfo(r); err != nil {
				return nil, err
			}

		case TagFilesInfo:
			if header.FilesInfo, err = ReadFilesInfo(r, maxFileCount); err != nil {
				return nil, err
			}

		case TagEnd:
			return header, nil

		default:
			return nil, ErrUnexpectedTag
		}
	}
}

// WriteHeader writes the kHeader tag, the archive's StreamsInfo (when it
// has any content streams at all), FilesInfo, and the terminating kEnd.
func WriteHeader(w io.Writer, h *Header) error {
	if err := wire.WriteByte(w, TagHeader); err != nil {
		return err
	}

	if h.MainStreamsInfo != nil {
		if err := wire.WriteByte(w, TagMainStreamsInfo); err != nil {
			return err
		}
		if err := WriteStreamsInfo(w, h.MainStreamsInfo); err != nil {
			return err
		}
	}

	if err := WriteFilesInfo(w, h.FilesInfo); err != nil {
		return err
	}

	return wire.WriteByte(w, TagEnd)
}

// WriteEncodedHeader writes the kEncodedHeader tag followed by the
// StreamsInfo describing the (compressed, possibly encrypted) block that
// the real Header was packed into.
func WriteEncodedHeader(w io.Writer, info *StreamsInfo) error {
	if err := wire.WriteByte(w, TagEncodedHeader); err != nil {
		return err
	}
	return WriteStreamsInfo(w, info)
}
