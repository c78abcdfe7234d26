package sevenzip

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"

	"github.com/withzombies/sevenz-rust2/filters"
	"github.com/withzombies/sevenz-rust2/headers"
	"github.com/withzombies/sevenz-rust2/internal/codec"
	"github.com/withzombies/sevenz-rust2/internal/crc32x"
	"github.com/withzombies/sevenz-rust2/internal/graph"
)

type writerState int

const (
	writerOpen writerState = iota
	writerFinished
	writerPoisoned
)

// Writer assembles a new archive: PushEntry streams one file's content
// through the configured coder pipeline at a time, non-solid (one block
// per entry) by default or solid (many entries sharing one block) when
// SetSolid(true) is in effect, and Finish writes the next-header and
// patches the signature header in place.
//
// Mirrors original_source/src/writer.rs's ArchiveWriter: push_archive_entry
// for the non-solid case, push_archive_entries for the solid case, and
// finish's encode-header-then-rewrite-signature-header sequence. The
// state machine (Open -> PushEntry*/SetContentMethods* -> Finish ->
// Finished, with a Poisoned state on any I/O error) is this package's own
// addition — original_source's ArchiveWriter is consumed by value and
// can't be reused after an error the way a long-lived Writer can.
type Writer struct {
	w io.WriteSeeker

	state writerState
	err   error

	contentMethods []EncoderConfiguration
	password       Password
	encryptHeader  bool
	solid          bool

	files  []*headers.FileInfo
	blocks []*finishedBlock

	cur *openBlock
}

// finishedBlock is one completed block's worth of bookkeeping, ready to
// be folded into PackInfo/UnpackInfo/SubStreamsInfo at Finish.
type finishedBlock struct {
	coders     []*graph.Coder
	outSizes   []uint64
	packedSize uint64
	subSizes   []uint64
	subCRCs    []uint32
}

// openBlock is the block currently accepting entry content: its encoder
// chain is live and trackers are accumulating each stage's byte count.
type openBlock struct {
	coders   []*graph.Coder
	chain    io.WriteCloser
	trackers []*trackedWriteCloser
	sink     *trackedWriter
	subSizes []uint64
	subCRCs  []uint32
}

// trackedWriter counts bytes written through it. buildEncoderChain uses
// one to measure the pipeline's final packed size at the real sink.
type trackedWriter struct {
	w io.Writer
	n int64
}

func (t *trackedWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	t.n += int64(n)
	return n, err
}

type chainWriteCloser struct {
	io.Writer
	closers []io.Closer
}

func (c *chainWriteCloser) Close() error {
	var first error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WriteCloser pairs a Writer with the file it owns, mirroring ReadCloser.
type WriteCloser struct {
	Writer
	f *os.File
}

// Close closes the underlying file. Call it only after Finish.
func (wc *WriteCloser) Close() error {
	return wc.f.Close()
}

// Create opens (truncating if it exists) name for writing a new archive.
func Create(name string) (*WriteCloser, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}

	wc := &WriteCloser{f: f}
	if err := wc.Writer.init(f); err != nil {
		f.Close()
		return nil, err
	}
	return wc, nil
}

// NewWriter wraps an already-open seekable destination.
func NewWriter(w io.WriteSeeker) (*Writer, error) {
	sz := &Writer{}
	if err := sz.init(w); err != nil {
		return nil, err
	}
	return sz, nil
}

func (sz *Writer) init(w io.WriteSeeker) error {
	if _, err := w.Seek(signatureHeaderSize, io.SeekStart); err != nil {
		return err
	}

	sz.w = w
	sz.contentMethods = []EncoderConfiguration{{Method: MethodLZMA2, Options: LZMA2OptionsFromLevel(6)}}
	sz.encryptHeader = true
	return nil
}

func (sz *Writer) checkOpen() error {
	switch sz.state {
	case writerFinished:
		return ErrAlreadyFinished
	case writerPoisoned:
		return ErrPoisoned
	}
	return nil
}

func (sz *Writer) poison(err error) error {
	sz.state = writerPoisoned
	sz.err = err
	return err
}

// SetContentMethods replaces the pipeline new blocks are built with. It
// cannot be called while a solid block has entries pending — finish that
// block (PushEntry with solid off, or SetSolid(false)) first.
func (sz *Writer) SetContentMethods(methods []EncoderConfiguration) error {
	if err := sz.checkOpen(); err != nil {
		return err
	}
	if sz.cur != nil {
		return ErrMethodsLocked
	}
	if len(methods) == 0 {
		return ErrInvalidMethodChain
	}
	for _, mc := range methods {
		if mc.Method == MethodAES256SHA256 {
			return ErrInvalidMethodChain
		}
	}

	sz.contentMethods = methods
	return nil
}

// SetPassword enables AES-256 content encryption: every subsequently
// opened block gets a trailing AES-256-SHA-256 coder with a freshly
// generated salt and IV. Pass an empty Password to disable it again.
func (sz *Writer) SetPassword(password Password) error {
	if err := sz.checkOpen(); err != nil {
		return err
	}
	if sz.cur != nil {
		return ErrMethodsLocked
	}

	sz.password = password
	return nil
}

// SetEncryptHeader controls whether the next-header is itself encrypted
// (with the same password as content) when a password is configured. It
// has no effect if no password is set. Defaults to true.
func (sz *Writer) SetEncryptHeader(encrypt bool) {
	sz.encryptHeader = encrypt
}

// SetSolid toggles solid mode: while on, consecutive PushEntry calls with
// content share one block instead of each getting its own. Turning it
// off flushes any block currently accumulating entries.
func (sz *Writer) SetSolid(solid bool) error {
	if err := sz.checkOpen(); err != nil {
		return err
	}

	wasSolid := sz.solid
	sz.solid = solid
	if wasSolid && !solid {
		if err := sz.finalizeBlock(); err != nil {
			return sz.poison(err)
		}
	}
	return nil
}

func (sz *Writer) buildCoders() ([]*graph.Coder, error) {
	if len(sz.contentMethods) == 0 {
		return nil, ErrInvalidMethodChain
	}

	coders := make([]*graph.Coder, 0, len(sz.contentMethods)+1)
	for _, mc := range sz.contentMethods {
		coders = append(coders, &graph.Coder{
			ID:            mc.Method.id(),
			NumInStreams:  1,
			NumOutStreams: 1,
			Properties:    mc.properties(),
		})
	}

	if !sz.password.Empty() {
		aesCoder, err := newRandomAESCoder()
		if err != nil {
			return nil, err
		}
		coders = append(coders, aesCoder)
	}

	return coders, nil
}

func newRandomAESCoder() (*graph.Coder, error) {
	var salt, iv [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	if _, err := rand.Read(iv[:]); err != nil {
		return nil, err
	}

	aes := AESOptions{NumCyclesPower: 8, Salt: salt, IV: iv}
	return &graph.Coder{ID: codec.AES256SHA256, NumInStreams: 1, NumOutStreams: 1, Properties: aes.properties()}, nil
}

func (sz *Writer) newEncoder(c *graph.Coder, out io.Writer) (io.WriteCloser, error) {
	if isAESCoder(c.ID) {
		cyclesPower, salt, iv, ok := parseAESProperties(c.Properties)
		if !ok {
			return nil, ErrUnsupportedMethod
		}
		if sz.password.Empty() {
			return nil, ErrPasswordRequired
		}
		key := DeriveKey(sz.password.Bytes(), cyclesPower, salt)
		return filters.NewAESEncrypter(out, key, iv)
	}

	factory := codec.Encoder(c.ID)
	if factory == nil {
		return nil, ErrUnsupportedMethod
	}
	return factory(c.Properties, out, nil)
}

// trackedWriteCloser counts the bytes written INTO one coder stage,
// before that coder transforms them — i.e. the stage's encode-side input
// size, which is exactly the unpacked size internal/graph.Block.OutSizes
// records for that stream (the corresponding decode step's output size).
type trackedWriteCloser struct {
	wc io.WriteCloser
	n  int64
}

func (t *trackedWriteCloser) Write(p []byte) (int, error) {
	n, err := t.wc.Write(p)
	t.n += int64(n)
	return n, err
}

func (t *trackedWriteCloser) Close() error { return t.wc.Close() }

// buildEncoderChain wraps output with one stream transformer per coder in
// internal/graph.BuildEncoderChain's order (coders[0] outermost,
// coders[len-1] innermost). It returns one tracker per coder, measuring
// bytes written into that stage (trackers[i].n becomes OutSizes[i]), plus
// a tracker on the real sink measuring the pipeline's final packed size.
func (sz *Writer) buildEncoderChain(coders []*graph.Coder, output io.Writer) (io.WriteCloser, []*trackedWriteCloser, *trackedWriter, error) {
	sink := &trackedWriter{w: output}
	trackers := make([]*trackedWriteCloser, len(coders))
	w := io.Writer(sink)
	var closeOrder []io.Closer

	for i := len(coders) - 1; i >= 0; i-- {
		wc, err := sz.newEncoder(coders[i], w)
		if err != nil {
			for _, cl := range closeOrder {
				cl.Close()
			}
			return nil, nil, nil, err
		}
		tracked := &trackedWriteCloser{wc: wc}
		trackers[i] = tracked
		w = tracked
		closeOrder = append([]io.Closer{tracked}, closeOrder...)
	}

	return &chainWriteCloser{Writer: w, closers: closeOrder}, trackers, sink, nil
}

func (sz *Writer) openNewBlock() error {
	coders, err := sz.buildCoders()
	if err != nil {
		return err
	}

	chain, trackers, sink, err := sz.buildEncoderChain(coders, sz.w)
	if err != nil {
		return err
	}

	sz.cur = &openBlock{coders: coders, chain: chain, trackers: trackers, sink: sink}
	return nil
}

func (sz *Writer) writeEntryContent(r io.Reader) error {
	if sz.cur == nil {
		if err := sz.openNewBlock(); err != nil {
			return err
		}
	}

	digest := crc32x.NewDigest()
	n, err := io.Copy(io.MultiWriter(sz.cur.chain, digest), r)
	if err != nil {
		return err
	}

	sz.cur.subSizes = append(sz.cur.subSizes, uint64(n))
	sz.cur.subCRCs = append(sz.cur.subCRCs, digest.Sum32())
	return nil
}

func (sz *Writer) finalizeBlock() error {
	if sz.cur == nil {
		return nil
	}

	if err := sz.cur.chain.Close(); err != nil {
		return err
	}

	outSizes := make([]uint64, len(sz.cur.trackers))
	for i, t := range sz.cur.trackers {
		outSizes[i] = uint64(t.n)
	}

	sz.blocks = append(sz.blocks, &finishedBlock{
		coders:     sz.cur.coders,
		outSizes:   outSizes,
		packedSize: uint64(sz.cur.sink.n),
		subSizes:   sz.cur.subSizes,
		subCRCs:    sz.cur.subCRCs,
	})
	sz.cur = nil
	return nil
}

// PushEntry records one file, directory or anti-item, streaming r's
// bytes (if any) through the current block's coder pipeline. Pass a nil
// r for directories, anti-items and zero-stream placeholder entries;
// entry.IsDir/IsAnti take precedence over a non-nil r.
func (sz *Writer) PushEntry(entry Entry, r io.Reader) error {
	if err := sz.checkOpen(); err != nil {
		return err
	}

	fi := &headers.FileInfo{
		Name:       entry.Name,
		Attrib:     entry.Attributes,
		HasAttrib:  entry.Attributes != 0,
		CreatedAt:  entry.CreatedAt,
		HasCTime:   !entry.CreatedAt.IsZero(),
		AccessedAt: entry.AccessedAt,
		HasATime:   !entry.AccessedAt.IsZero(),
		ModifiedAt: entry.ModifiedAt,
		HasMTime:   !entry.ModifiedAt.IsZero(),
	}

	switch {
	case entry.IsDir:
		fi.IsEmptyStream = true

	case entry.IsAnti:
		fi.IsEmptyStream = true
		fi.IsAntiFile = true

	case r == nil:
		fi.IsEmptyStream = true
		fi.IsEmptyFile = true

	default:
		if err := sz.writeEntryContent(r); err != nil {
			return sz.poison(err)
		}
		if !sz.solid {
			if err := sz.finalizeBlock(); err != nil {
				return sz.poison(err)
			}
		}
	}

	sz.files = append(sz.files, fi)
	return nil
}

// headerCoders builds the fixed pipeline the next-header itself is
// packed with: always LZMA, plus a trailing AES-256-SHA-256 stage when a
// password is configured and SetEncryptHeader(false) wasn't called.
//
// Mirrors original_source/src/writer.rs's write_encoded_header, which
// unconditionally appends an LZMA stage and conditionally prepends AES —
// "prepends" in its reversed (last-applied-first) convention, which is
// this package's "append last, applied last" in internal/graph's chosen
// ordering; see options.go's EncoderConfiguration doc comment.
func (sz *Writer) headerCoders() ([]*graph.Coder, error) {
	coders := []*graph.Coder{{
		ID:            codec.LZMA,
		NumInStreams:  1,
		NumOutStreams: 1,
		Properties:    LZMAOptionsFromLevel(6).properties(),
	}}

	if sz.encryptHeader && !sz.password.Empty() {
		aesCoder, err := newRandomAESCoder()
		if err != nil {
			return nil, err
		}
		coders = append(coders, aesCoder)
	}

	return coders, nil
}

// writeNextHeader writes the archive's next-header blob (whatever bytes
// the signature header's NextHeaderOffset/NextHeaderSize end up pointing
// at) starting at the writer's current position, and returns its
// relative offset, size and CRC.
//
// When compressing raw doesn't save at least 20 bytes (the rough cost of
// the kEncodedHeader/PackInfo/UnpackInfo wrapper), the header is written
// uncompressed as a plain kHeader blob instead — matching
// original_source/src/writer.rs's write_encoded_header fallback.
func (sz *Writer) writeNextHeader(raw []byte) (offset, size int64, crc uint32, err error) {
	coders, err := sz.headerCoders()
	if err != nil {
		return 0, 0, 0, err
	}

	var compressed bytes.Buffer
	chain, trackers, _, err := sz.buildEncoderChain(coders, &compressed)
	if err != nil {
		return 0, 0, 0, err
	}
	if _, err := chain.Write(raw); err != nil {
		return 0, 0, 0, err
	}
	if err := chain.Close(); err != nil {
		return 0, 0, 0, err
	}

	if compressed.Len()+20 >= len(raw) {
		pos, err := sz.w.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, 0, 0, err
		}
		if _, err := sz.w.Write(raw); err != nil {
			return 0, 0, 0, err
		}
		return pos - signatureHeaderSize, int64(len(raw)), crc32x.Checksum(raw), nil
	}

	outSizes := make([]uint64, len(trackers))
	for i, t := range trackers {
		outSizes[i] = uint64(t.n)
	}

	block := graph.NewLinearBlock(coders)
	block.OutSizes = outSizes
	block.HasCRC = true
	block.CRC = crc32x.Checksum(raw)

	packPos, err := sz.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, 0, err
	}
	if _, err := sz.w.Write(compressed.Bytes()); err != nil {
		return 0, 0, 0, err
	}

	info := &headers.StreamsInfo{
		PackInfo: &headers.PackInfo{
			PackPos:   uint64(packPos - signatureHeaderSize),
			PackSizes: []uint64{uint64(compressed.Len())},
		},
		UnpackInfo: &headers.UnpackInfo{Folders: []*graph.Block{block}},
	}

	var structBuf bytes.Buffer
	if err := headers.WriteEncodedHeader(&structBuf, info); err != nil {
		return 0, 0, 0, err
	}

	structPos, err := sz.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, 0, err
	}
	if _, err := sz.w.Write(structBuf.Bytes()); err != nil {
		return 0, 0, 0, err
	}

	return structPos - signatureHeaderSize, int64(structBuf.Len()), crc32x.Checksum(structBuf.Bytes()), nil
}

// Finish writes the archive's next-header and rewrites the signature
// header to point at it. The Writer is unusable afterward except for
// Close (via WriteCloser).
func (sz *Writer) Finish() error {
	if err := sz.checkOpen(); err != nil {
		return err
	}

	if err := sz.finalizeBlock(); err != nil {
		return sz.poison(err)
	}

	var mainStreams *headers.StreamsInfo
	if len(sz.blocks) > 0 {
		packInfo := &headers.PackInfo{}
		unpackInfo := &headers.UnpackInfo{}
		substreams := &headers.SubStreamsInfo{}

		for _, b := range sz.blocks {
			block := graph.NewLinearBlock(b.coders)
			block.OutSizes = b.outSizes

			unpackInfo.Folders = append(unpackInfo.Folders, block)
			packInfo.PackSizes = append(packInfo.PackSizes, b.packedSize)
			substreams.NumUnpackStreamsInFolders = append(substreams.NumUnpackStreamsInFolders, len(b.subSizes))
			substreams.UnpackSizes = append(substreams.UnpackSizes, b.subSizes...)
			substreams.Digests = append(substreams.Digests, b.subCRCs...)
		}

		mainStreams = &headers.StreamsInfo{PackInfo: packInfo, UnpackInfo: unpackInfo, SubStreamsInfo: substreams}
	}

	header := &headers.Header{MainStreamsInfo: mainStreams, FilesInfo: sz.files}

	var rawHeader bytes.Buffer
	if err := headers.WriteHeader(&rawHeader, header); err != nil {
		return sz.poison(err)
	}

	offset, size, crc, err := sz.writeNextHeader(rawHeader.Bytes())
	if err != nil {
		return sz.poison(err)
	}

	sig := &headers.SignatureHeader{Signature: headers.Signature}
	sig.StartHeader.NextHeaderOffset = offset
	sig.StartHeader.NextHeaderSize = size
	sig.StartHeader.NextHeaderCRC = crc

	if _, err := sz.w.Seek(0, io.SeekStart); err != nil {
		return sz.poison(err)
	}
	if err := headers.WriteSignatureHeader(sz.w, sig); err != nil {
		return sz.poison(err)
	}

	sz.state = writerFinished
	return nil
}
