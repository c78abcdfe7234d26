package sevenzip

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/withzombies/sevenz-rust2/filters"
	"github.com/withzombies/sevenz-rust2/headers"
	"github.com/withzombies/sevenz-rust2/internal/codec"
	"github.com/withzombies/sevenz-rust2/internal/crc32x"
	"github.com/withzombies/sevenz-rust2/internal/graph"
)

// signatureHeaderSize is the fixed size of the 32-byte structure at the
// start of every 7z file.
const signatureHeaderSize = 32

// defaultMaxHeaderSize bounds how large a decoded (encoded) header this
// package will build in memory, so a corrupt or hostile NextHeaderSize
// can't be used to force an unbounded allocation before any CRC has been
// checked.
const defaultMaxHeaderSize = 1 << 30 // 1 GiB

// Reader provides random access to the entries of a 7z archive.
//
// Adapted from saracen/go7z's Reader, which exposed a
// forward-only Next/Read iterator backed by saracen/solidblock; this
// version decodes lazily per block via internal/graph and exposes a
// snapshot of every Entry up front plus an Open method for random access
// to individual files.
type Reader struct {
	ra   io.ReaderAt
	size int64

	password      []byte
	maxHeaderSize int64

	entries []*Entry
	blocks  []*blockDecoder
}

// ReaderOption configures NewReader/OpenReader.
type ReaderOption func(*Reader)

// WithPassword configures the password used to decrypt an encrypted
// archive (its content, its header, or both).
func WithPassword(password string) ReaderOption {
	return func(r *Reader) { r.password = NewPassword(password).Bytes() }
}

// WithMaxHeaderSize overrides defaultMaxHeaderSize.
func WithMaxHeaderSize(n int64) ReaderOption {
	return func(r *Reader) { r.maxHeaderSize = n }
}

// ReadCloser is a Reader over an *os.File, closing the file when Close is
// called.
type ReadCloser struct {
	Reader
	f *os.File
}

// Close closes the underlying file.
func (rc *ReadCloser) Close() error {
	return rc.f.Close()
}

// OpenReader opens the named 7z file.
func OpenReader(name string, opts ...ReaderOption) (*ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	rc := &ReadCloser{f: f}
	if err := rc.Reader.init(f, fi.Size(), opts); err != nil {
		f.Close()
		return nil, err
	}
	return rc, nil
}

// NewReader returns a Reader over r, which is assumed to hold size bytes
// of 7z archive.
func NewReader(r io.ReaderAt, size int64, opts ...ReaderOption) (*Reader, error) {
	sz := &Reader{}
	if err := sz.init(r, size, opts); err != nil {
		return nil, err
	}
	return sz, nil
}

// Entries returns every file, directory and anti-item recorded in the
// archive, in on-disk order.
func (sz *Reader) Entries() []*Entry {
	return sz.entries
}

func (sz *Reader) init(r io.ReaderAt, size int64, opts []ReaderOption) error {
	sz.ra = r
	sz.size = size
	sz.maxHeaderSize = defaultMaxHeaderSize
	for _, opt := range opts {
		opt(sz)
	}

	sr := io.NewSectionReader(r, 0, size)
	sigHeader, err := headers.ReadSignatureHeader(sr)
	if err != nil && !errors.Is(err, headers.ErrChecksumMismatch) {
		return err
	}
	if sigHeader.Signature != headers.Signature {
		return ErrBadSignature
	}
	if sigHeader.ArchiveVersion.Major != 0 {
		return ErrUnsupportedVersion
	}
	if errors.Is(err, headers.ErrChecksumMismatch) {
		return ErrBadStartHeaderCRC
	}

	if sigHeader.StartHeader.NextHeaderSize == 0 {
		sz.entries = nil
		return nil
	}

	if sigHeader.StartHeader.NextHeaderSize > sz.maxHeaderSize {
		return ErrEntryTooLarge
	}
	if signatureHeaderSize+sigHeader.StartHeader.NextHeaderOffset+sigHeader.StartHeader.NextHeaderSize > size {
		return io.ErrUnexpectedEOF
	}

	if _, err := sr.Seek(sigHeader.StartHeader.NextHeaderOffset, io.SeekCurrent); err != nil {
		return err
	}

	digest := crc32x.NewDigest()
	tee := crc32x.TeeReader(io.LimitReader(sr, sigHeader.StartHeader.NextHeaderSize), digest)
	buf, err := io.ReadAll(bufio.NewReader(tee))
	if err != nil {
		return err
	}
	if digest.Sum32() != sigHeader.StartHeader.NextHeaderCRC {
		if len(sz.password) > 0 {
			return ErrWrongPassword
		}
		return ErrHeaderCorrupted
	}

	header, encoded, err := headers.ReadPackedStreamsForHeaders(bytes.NewReader(buf), maxFileCountFor(sigHeader.StartHeader.NextHeaderSize))
	if err != nil {
		return err
	}

	if encoded != nil {
		decoded, err := sz.decodeHeaderBlock(encoded)
		if err != nil {
			return err
		}
		header, _, err = headers.ReadPackedStreamsForHeaders(bytes.NewReader(decoded), maxFileCountFor(int64(len(decoded))))
		if err != nil {
			return err
		}
	}

	if header == nil {
		sz.entries = nil
		return nil
	}

	if header.MainStreamsInfo != nil {
		sz.blocks, err = sz.buildBlockDecoders(header.MainStreamsInfo)
		if err != nil {
			return err
		}
	}

	sz.entries, err = sz.buildEntries(header)
	return err
}

// maxFileCountFor bounds FilesInfo's declared entry count by the size of
// the header bytes it was decoded from: every entry needs at least one
// byte (its name's terminating NUL, at minimum), so a header of n bytes
// can never legitimately describe more than n files.
func maxFileCountFor(headerSize int64) int {
	if headerSize > 1<<30 {
		return 1 << 30
	}
	return int(headerSize) + 1
}

// decodeHeaderBlock decodes the single folder that holds an encoded
// (compressed, possibly encrypted) real header.
func (sz *Reader) decodeHeaderBlock(info *headers.StreamsInfo) ([]byte, error) {
	blocks, err := sz.buildBlockDecoders(info)
	if err != nil {
		return nil, err
	}
	if len(blocks) != 1 {
		return nil, ErrUnsupportedMethod
	}
	if blocks[0].block.UnpackSize() > uint64(sz.maxHeaderSize) {
		return nil, ErrEntryTooLarge
	}

	r, err := blocks[0].open()
	if err != nil {
		return nil, err
	}

	decoded, err := io.ReadAll(io.LimitReader(r, int64(blocks[0].block.UnpackSize())))
	if err != nil {
		return nil, err
	}
	if blocks[0].block.HasCRC && crc32x.Checksum(decoded) != blocks[0].block.CRC {
		if len(sz.password) > 0 {
			return nil, ErrWrongPassword
		}
		return nil, ErrHeaderCorrupted
	}
	return decoded, nil
}

// blockDecoder lazily builds the single io.Reader producing one folder's
// entire primary unpacked stream, and tracks how many bytes of it Open
// calls have already consumed (entries within a folder are read in
// increasing offset order, matching how a solid block is packed).
type blockDecoder struct {
	block    *graph.Block
	packed   []io.Reader
	password []byte

	built    bool
	r        io.Reader
	err      error
	consumed int64
}

func (b *blockDecoder) open() (io.Reader, error) {
	if !b.built {
		b.built = true
		b.r, b.err = graph.BuildDecoderChain(b.block, b.packed, newDecoderFunc(b.password))
	}
	return b.r, b.err
}

func newDecoderFunc(password []byte) graph.DecoderFunc {
	return func(c *graph.Coder, inputs []io.Reader, outSizes []uint64) ([]io.Reader, error) {
		if isAESCoder(c.ID) {
			if len(inputs) != 1 || len(outSizes) != 1 {
				return nil, ErrUnsupportedMethod
			}
			cyclesPower, salt, iv, ok := parseAESProperties(c.Properties)
			if !ok {
				return nil, ErrUnsupportedMethod
			}
			if len(password) == 0 {
				return nil, ErrPasswordRequired
			}
			key := DeriveKey(password, cyclesPower, salt)
			dec, err := filters.NewAESDecrypter(inputs[0], key, iv)
			if err != nil {
				return nil, err
			}
			return []io.Reader{dec}, nil
		}

		factory := codec.Decoder(c.ID)
		if factory == nil {
			return nil, ErrUnsupportedMethod
		}
		if len(outSizes) != 1 {
			return nil, ErrUnsupportedMethod
		}
		r, err := factory(c.Properties, inputs, outSizes[0], nil)
		if err != nil {
			return nil, err
		}
		return []io.Reader{r}, nil
	}
}

func isAESCoder(id []byte) bool {
	return bytes.Equal(id, codec.AES256SHA256)
}

// buildBlockDecoders wires each folder's packed-stream section readers
// into a blockDecoder, ready to be opened lazily.
func (sz *Reader) buildBlockDecoders(info *headers.StreamsInfo) ([]*blockDecoder, error) {
	offset := int64(signatureHeaderSize) + int64(info.PackInfo.PackPos)

	blocks := make([]*blockDecoder, len(info.UnpackInfo.Folders))
	packIdx := 0
	for i, block := range info.UnpackInfo.Folders {
		numPacked := len(block.PackedIndices)
		if numPacked == 0 {
			numPacked = 1
		}

		packed := make([]io.Reader, numPacked)
		for j := 0; j < numPacked; j++ {
			if packIdx >= len(info.PackInfo.PackSizes) {
				return nil, ErrInvalidCoderGraph
			}
			size := int64(info.PackInfo.PackSizes[packIdx])
			packed[j] = io.NewSectionReader(sz.ra, offset, size)
			offset += size
			packIdx++
		}

		blocks[i] = &blockDecoder{block: block, packed: packed, password: sz.password}
	}

	return blocks, nil
}

// buildEntries walks header.FilesInfo, pairing each non-empty-stream entry
// with its folder index and byte offset within that folder's decoded
// stream, consuming StreamsInfo.SubStreamsInfo's per-file sizes/digests in
// lockstep with the folders' declared sub-stream counts.
func (sz *Reader) buildEntries(header *headers.Header) ([]*Entry, error) {
	var sizes []uint64
	var crcs []uint32
	var numPerFolder []int

	if header.MainStreamsInfo != nil {
		folders := header.MainStreamsInfo.UnpackInfo.Folders
		if header.MainStreamsInfo.SubStreamsInfo != nil {
			sizes = header.MainStreamsInfo.SubStreamsInfo.UnpackSizes
			crcs = header.MainStreamsInfo.SubStreamsInfo.Digests
			numPerFolder = header.MainStreamsInfo.SubStreamsInfo.NumUnpackStreamsInFolders
		} else {
			numPerFolder = make([]int, len(folders))
			for i, b := range folders {
				numPerFolder[i] = 1
				sizes = append(sizes, b.UnpackSize())
				crc := uint32(0)
				if b.HasCRC {
					crc = b.CRC
				}
				crcs = append(crcs, crc)
			}
		}
	}

	folderIdx, subInFolder := 0, 0
	var offsetInFolder uint64
	sizeIdx, crcIdx := 0, 0

	entries := make([]*Entry, len(header.FilesInfo))
	for i, fi := range header.FilesInfo {
		e := &Entry{
			Name:       fi.Name,
			IsDir:      fi.IsEmptyStream && !fi.IsEmptyFile,
			IsAnti:     fi.IsAntiFile,
			Attributes: fi.Attrib,
			CreatedAt:  fi.CreatedAt,
			ModifiedAt: fi.ModifiedAt,
			AccessedAt: fi.AccessedAt,
			blockIndex: -1,
		}

		if fi.IsEmptyStream {
			entries[i] = e
			continue
		}

		for folderIdx < len(numPerFolder) && subInFolder >= numPerFolder[folderIdx] {
			folderIdx++
			subInFolder = 0
			offsetInFolder = 0
		}
		if folderIdx >= len(numPerFolder) || sizeIdx >= len(sizes) {
			return nil, ErrInvalidCoderGraph
		}

		e.blockIndex = folderIdx
		e.offset = offsetInFolder
		e.Size = sizes[sizeIdx]
		if crcIdx < len(crcs) && crcs[crcIdx] != 0 {
			e.CRC = crcs[crcIdx]
			e.HasCRC = true
		}

		offsetInFolder += e.Size
		subInFolder++
		sizeIdx++
		crcIdx++

		entries[i] = e
	}

	return entries, nil
}

// NumBlocks returns the number of blocks (7z "folders") the archive's
// main streams are split across. Distinct blocks decode independently,
// so callers that want to extract a whole archive with a worker pool can
// fan BlockReader out across goroutines; entries that share one block
// must still be read from it in ascending offset order (see Open).
func (sz *Reader) NumBlocks() int {
	return len(sz.blocks)
}

// BlockReader returns a reader over the i'th block's full decoded
// stream, for callers that want to drive extraction themselves instead
// of going through Open/Entries. It does not verify per-entry CRCs;
// splitting the result back into entries and checking each one's CRC is
// the caller's responsibility.
func (sz *Reader) BlockReader(i int) (io.Reader, error) {
	if i < 0 || i >= len(sz.blocks) {
		return nil, ErrInvalidCoderGraph
	}
	return sz.blocks[i].open()
}

// Open returns a reader over entry's decoded content. If entry carries a
// CRC, it is verified against the fully-read content; a mismatch surfaces
// as ErrDataCorrupted (or ErrWrongPassword, if a password was configured)
// from the Read call that first observes EOF.
//
// Entries that share a block must be opened in ascending offset order
// (the order Entries lists them), and each one's reader read to its end
// before the next Open on that block: the block's decoder only moves
// forward, so an entry lying behind its current position is read from the
// wrong place. Entries in different blocks can be opened in any order.
func (sz *Reader) Open(entry *Entry) (io.ReadCloser, error) {
	if entry.IsDir || entry.IsAnti || entry.blockIndex < 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if entry.blockIndex >= len(sz.blocks) {
		return nil, ErrInvalidCoderGraph
	}

	block := sz.blocks[entry.blockIndex]
	r, err := block.open()
	if err != nil {
		return nil, err
	}

	if skip := int64(entry.offset) - block.consumed; skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, err
		}
	}
	block.consumed = int64(entry.offset) + int64(entry.Size)

	limited := io.LimitReader(r, int64(entry.Size))
	if !entry.HasCRC {
		return io.NopCloser(limited), nil
	}

	digest := crc32x.NewDigest()
	return &crcCheckedReader{
		r:           crc32x.TeeReader(limited, digest),
		digest:      digest,
		want:        entry.CRC,
		hasPassword: len(sz.password) > 0,
	}, nil
}

// crcCheckedReader verifies its digest against want as soon as its
// underlying reader reports EOF.
type crcCheckedReader struct {
	r           io.Reader
	digest      interface{ Sum32() uint32 }
	want        uint32
	hasPassword bool
	checked     bool
}

func (c *crcCheckedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err == io.EOF && !c.checked {
		c.checked = true
		if c.digest.Sum32() != c.want {
			if c.hasPassword {
				return n, ErrWrongPassword
			}
			return n, ErrDataCorrupted
		}
	}
	return n, err
}

func (c *crcCheckedReader) Close() error { return nil }
