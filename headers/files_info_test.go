package headers

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFilesInfoRoundTripBasic(t *testing.T) {
	files := []*FileInfo{
		{Name: "a.txt", Attrib: 0x20, HasAttrib: true},
		{Name: "dir", IsEmptyStream: true},
		{Name: "empty.txt", IsEmptyStream: true, IsEmptyFile: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFilesInfo(&buf, files))

	// WriteFilesInfo writes its own introducing tag; ReadFilesInfo expects
	// that tag already consumed, matching every other Read*/Write* pair in
	// this package.
	id, err := buf.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(TagFilesInfo), id)

	got, err := ReadFilesInfo(&buf, len(files)+1)
	require.NoError(t, err)
	require.Len(t, got, len(files))
	for i, fi := range files {
		require.Equal(t, fi.Name, got[i].Name)
		require.Equal(t, fi.IsEmptyStream, got[i].IsEmptyStream)
		require.Equal(t, fi.IsEmptyFile, got[i].IsEmptyFile)
		require.Equal(t, fi.HasAttrib, got[i].HasAttrib)
		if fi.HasAttrib {
			require.Equal(t, fi.Attrib, got[i].Attrib)
		}
	}
}

func TestFilesInfoRoundTripTimestamps(t *testing.T) {
	mtime := time.Date(2023, 11, 2, 8, 15, 0, 0, time.UTC)
	files := []*FileInfo{
		{Name: "stamped.bin", ModifiedAt: mtime, HasMTime: true},
		{Name: "unstamped.bin"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFilesInfo(&buf, files))
	buf.ReadByte() // consume TagFilesInfo

	got, err := ReadFilesInfo(&buf, len(files))
	require.NoError(t, err)
	require.True(t, got[0].HasMTime)
	require.True(t, mtime.Equal(got[0].ModifiedAt))
	require.False(t, got[1].HasMTime)
}

func TestTimeToFiletimeClampsBeforeEpoch(t *testing.T) {
	tooEarly := time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, uint64(0), timeToFiletime(tooEarly))
}

func TestFiletimeRoundTrip(t *testing.T) {
	want := time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC)
	got := filetimeToTime(timeToFiletime(want))
	require.True(t, want.Equal(got), "got %v, want %v", got, want)
}

func TestFilesInfoRejectsTooManyFiles(t *testing.T) {
	files := []*FileInfo{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	var buf bytes.Buffer
	require.NoError(t, WriteFilesInfo(&buf, files))
	buf.ReadByte()

	_, err := ReadFilesInfo(&buf, 1)
	require.ErrorIs(t, err, ErrInvalidFileCount)
}

func TestFilesInfoAntiFileRoundTrip(t *testing.T) {
	files := []*FileInfo{
		{Name: "deleted.txt", IsEmptyStream: true, IsAntiFile: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFilesInfo(&buf, files))
	buf.ReadByte()

	got, err := ReadFilesInfo(&buf, len(files))
	require.NoError(t, err)
	require.True(t, got[0].IsAntiFile)
}

func TestUTF16ZStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUTF16ZString(&buf, "héllo"))

	got, err := readUTF16ZString(&buf)
	require.NoError(t, err)
	require.Equal(t, "héllo", got)
}
