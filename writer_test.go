package sevenzip

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// seekBuffer adapts a bytes.Buffer into an io.WriteSeeker, the minimum a
// Writer needs; real callers use an *os.File via Create instead.
type seekBuffer struct {
	buf []byte
	pos int64
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	n := copy(s.buf[s.pos:end], p)
	s.pos = end
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = s.pos + offset
	case io.SeekEnd:
		pos = int64(len(s.buf)) + offset
	}
	s.pos = pos
	return pos, nil
}

func (s *seekBuffer) ReaderAt() *bytes.Reader { return bytes.NewReader(s.buf) }

func openRoundTrip(t *testing.T, sb *seekBuffer, opts ...ReaderOption) *Reader {
	t.Helper()
	r, err := NewReader(sb.ReaderAt(), int64(len(sb.buf)), opts...)
	require.NoError(t, err)
	return r
}

func readEntry(t *testing.T, r *Reader, e *Entry) []byte {
	t.Helper()
	rc, err := r.Open(e)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	return got
}

func TestWriterSingleFileCopyRoundTrip(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)
	require.NoError(t, w.SetContentMethods([]EncoderConfiguration{{Method: MethodCopy}}))

	const content = "hello, archive"
	require.NoError(t, w.PushEntry(Entry{Name: "hello.txt"}, bytes.NewReader([]byte(content))))
	require.NoError(t, w.Finish())

	r := openRoundTrip(t, sb)
	entries := r.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "hello.txt", entries[0].Name)
	require.Equal(t, uint64(len(content)), entries[0].Size)
	require.True(t, entries[0].HasCRC)

	require.Equal(t, content, string(readEntry(t, r, entries[0])))
}

func TestWriterNonSolidTwoFilesLZMA2(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)

	require.NoError(t, w.PushEntry(Entry{Name: "a.txt"}, bytes.NewReader([]byte("aaaaaaaaaa"))))
	require.NoError(t, w.PushEntry(Entry{Name: "b.txt"}, bytes.NewReader([]byte("bbbbbbbbbbbbbbbb"))))
	require.NoError(t, w.Finish())

	r := openRoundTrip(t, sb)
	entries := r.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "aaaaaaaaaa", string(readEntry(t, r, entries[0])))
	require.Equal(t, "bbbbbbbbbbbbbbbb", string(readEntry(t, r, entries[1])))
}

func TestWriterSolidBlockSharedAcrossEntries(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)
	require.NoError(t, w.SetSolid(true))

	contents := []string{"one fish", "two fish", "red fish", "blue fish"}
	for i, c := range contents {
		require.NoError(t, w.PushEntry(Entry{Name: string(rune('a' + i))}, bytes.NewReader([]byte(c))))
	}
	require.NoError(t, w.Finish())

	r := openRoundTrip(t, sb)
	entries := r.Entries()
	require.Len(t, entries, len(contents))
	for i, e := range entries {
		require.Equal(t, contents[i], string(readEntry(t, r, e)))
		require.Equal(t, 0, e.blockIndex)
	}
}

func TestWriterDirectoryAndEmptyFileEntries(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)

	require.NoError(t, w.PushEntry(Entry{Name: "dir", IsDir: true}, nil))
	require.NoError(t, w.PushEntry(Entry{Name: "dir/empty.txt"}, nil))
	require.NoError(t, w.PushEntry(Entry{Name: "dir/real.txt"}, bytes.NewReader([]byte("content"))))
	require.NoError(t, w.Finish())

	r := openRoundTrip(t, sb)
	entries := r.Entries()
	require.Len(t, entries, 3)

	require.True(t, entries[0].IsDir)
	require.Equal(t, []byte(nil), readEntryOrEmpty(t, r, entries[0]))

	require.False(t, entries[1].IsDir)
	require.Equal(t, uint64(0), entries[1].Size)

	require.Equal(t, "content", string(readEntry(t, r, entries[2])))
}

func readEntryOrEmpty(t *testing.T, r *Reader, e *Entry) []byte {
	t.Helper()
	rc, err := r.Open(e)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	if len(got) == 0 {
		return nil
	}
	return got
}

func TestWriterEncryptedContentRoundTrip(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)
	require.NoError(t, w.SetPassword(NewPassword("correct horse battery staple")))

	const content = "top secret payload"
	require.NoError(t, w.PushEntry(Entry{Name: "secret.txt"}, bytes.NewReader([]byte(content))))
	require.NoError(t, w.Finish())

	r := openRoundTrip(t, sb, WithPassword("correct horse battery staple"))
	entries := r.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, content, string(readEntry(t, r, entries[0])))
}

func TestWriterEncryptedContentWrongPassword(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)
	require.NoError(t, w.SetPassword(NewPassword("correct horse battery staple")))
	require.NoError(t, w.PushEntry(Entry{Name: "secret.txt"}, bytes.NewReader([]byte("top secret payload"))))
	require.NoError(t, w.Finish())

	r, err := NewReader(sb.ReaderAt(), int64(len(sb.buf)), WithPassword("wrong password"))
	// A wrong content password still decrypts to garbage bytes rather than
	// failing outright, since AES-CBC has no built-in authentication; the
	// mismatch only surfaces once a CRC check runs against that garbage
	// (see reader.go's crcCheckedReader), not at NewReader time.
	require.NoError(t, err)

	entries := r.Entries()
	require.Len(t, entries, 1)
	rc, err := r.Open(entries[0])
	require.NoError(t, err)
	defer rc.Close()
	_, err = io.ReadAll(rc)
	require.ErrorIs(t, err, ErrWrongPassword)
}

func TestWriterEncodedHeaderWithPasswordRoundTrip(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)
	require.NoError(t, w.SetPassword(NewPassword("hunter2")))
	w.SetEncryptHeader(true)
	require.NoError(t, w.PushEntry(Entry{Name: "f"}, bytes.NewReader(bytes.Repeat([]byte("x"), 4096))))
	require.NoError(t, w.Finish())

	r := openRoundTrip(t, sb, WithPassword("hunter2"))
	entries := r.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, bytes.Repeat([]byte("x"), 4096), readEntry(t, r, entries[0]))
}

func TestWriterRejectsAES256InContentMethods(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)

	err = w.SetContentMethods([]EncoderConfiguration{{Method: MethodAES256SHA256}})
	require.ErrorIs(t, err, ErrInvalidMethodChain)
}

func TestWriterRejectsEmptyContentMethods(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)

	err = w.SetContentMethods(nil)
	require.ErrorIs(t, err, ErrInvalidMethodChain)
}

func TestWriterLocksMethodsMidSolidBlock(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)
	require.NoError(t, w.SetSolid(true))
	require.NoError(t, w.PushEntry(Entry{Name: "a"}, bytes.NewReader([]byte("data"))))

	err = w.SetContentMethods([]EncoderConfiguration{{Method: MethodCopy}})
	require.ErrorIs(t, err, ErrMethodsLocked)

	err = w.SetPassword(NewPassword("x"))
	require.ErrorIs(t, err, ErrMethodsLocked)
}

func TestWriterRejectsCallsAfterFinish(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)
	require.NoError(t, w.PushEntry(Entry{Name: "a"}, bytes.NewReader([]byte("data"))))
	require.NoError(t, w.Finish())

	err = w.Finish()
	require.ErrorIs(t, err, ErrAlreadyFinished)

	err = w.PushEntry(Entry{Name: "b"}, nil)
	require.ErrorIs(t, err, ErrAlreadyFinished)
}

func TestWriterMultipleContentMethodsDeltaLZMA2(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)
	require.NoError(t, w.SetContentMethods([]EncoderConfiguration{
		{Method: MethodDelta, Options: DeltaOptionsFromDistance(4)},
		{Method: MethodLZMA2, Options: LZMA2OptionsFromLevel(6)},
	}))

	data := bytes.Repeat([]byte{1, 2, 3, 4}, 1024)
	require.NoError(t, w.PushEntry(Entry{Name: "interleaved.bin"}, bytes.NewReader(data)))
	require.NoError(t, w.Finish())

	r := openRoundTrip(t, sb)
	entries := r.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, data, readEntry(t, r, entries[0]))
}
