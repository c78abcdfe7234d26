package headers

import (
	"io"
	"time"
	"unicode/utf16"

	"github.com/withzombies/sevenz-rust2/internal/wire"
)

// FileInfo is the decoded per-entry portion of kFilesInfo: everything
// about a file except which block/offset its bytes live at (StreamsInfo
// and SubStreamsInfo carry that separately).
type FileInfo struct {
	Name   string
	Attrib uint32

	IsEmptyStream bool
	IsEmptyFile   bool
	IsAntiFile    bool

	HasAttrib bool

	CreatedAt  time.Time
	HasCTime   bool
	AccessedAt time.Time
	HasATime   bool
	ModifiedAt time.Time
	HasMTime   bool
}

// ReadFilesInfo reads a kFilesInfo section (the tag itself already
// consumed by the caller), rejecting more than maxFileCount entries so a
// corrupt or hostile header can't force an unbounded allocation.
func ReadFilesInfo(r io.Reader, maxFileCount int) ([]*FileInfo, error) {
	numFiles, err := wire.ReadNumberInt(r)
	if err != nil {
		return nil, err
	}
	if numFiles > maxFileCount {
		return nil, ErrInvalidFileCount
	}

	files := make([]*FileInfo, numFiles)
	for i := range files {
		files[i] = &FileInfo{}
	}

	var numEmptyStreams int
	for {
		id, err := wire.ReadByte(r)
		if err != nil {
			return nil, err
		}
		if id == TagEnd {
			return files, nil
		}

		size, err := wire.ReadNumber(r)
		if err != nil {
			return nil, err
		}

		switch id {
		case TagEmptyStream:
			empty, n, err := wire.ReadBitVector(r, numFiles)
			if err != nil {
				return nil, err
			}
			numEmptyStreams = n
			for i, fi := range files {
				fi.IsEmptyStream = empty[i]
			}

		case TagEmptyFile, TagAnti:
			flags, _, err := wire.ReadBitVector(r, numEmptyStreams)
			if err != nil {
				return nil, err
			}
			idx := 0
			for _, fi := range files {
				if !fi.IsEmptyStream {
					continue
				}
				switch id {
				case TagEmptyFile:
					fi.IsEmptyFile = flags[idx]
				case TagAnti:
					fi.IsAntiFile = flags[idx]
				}
				idx++
			}

		case TagStartPos:
			return nil, ErrUnexpectedTag

		case TagCTime, TagATime, TagMTime:
			times, defined, err := readDateTimeVector(r, numFiles)
			if err != nil {
				return nil, err
			}
			for i, fi := range files {
				switch id {
				case TagCTime:
					fi.CreatedAt, fi.HasCTime = times[i], defined[i]
				case TagATime:
					fi.AccessedAt, fi.HasATime = times[i], defined[i]
				case TagMTime:
					fi.ModifiedAt, fi.HasMTime = times[i], defined[i]
				}
			}

		case TagName:
			external, err := wire.ReadByte(r)
			if err != nil {
				return nil, err
			}
			if external != 0 {
				return nil, ErrAdditionalStreamsNotImplemented
			}
			for _, fi := range files {
				name, err := readUTF16ZString(r)
				if err != nil {
					return nil, err
				}
				fi.Name = name
			}

		case TagWinAttributes:
			attrs, defined, err := readAttributeVector(r, numFiles)
			if err != nil {
				return nil, err
			}
			for i, fi := range files {
				fi.Attrib, fi.HasAttrib = attrs[i], defined[i]
			}

		case TagDummy:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return nil, err
			}

		default:
			return nil, ErrUnexpectedTag
		}
	}
}

// WriteFilesInfo is the dual of ReadFilesInfo.
func WriteFilesInfo(w io.Writer, files []*FileInfo) error {
	if err := wire.WriteByte(w, TagFilesInfo); err != nil {
		return err
	}
	if err := wire.WriteNumberInt(w, len(files)); err != nil {
		return err
	}

	emptyStream := make([]bool, len(files))
	anyEmptyStream := false
	for i, fi := range files {
		emptyStream[i] = fi.IsEmptyStream
		anyEmptyStream = anyEmptyStream || fi.IsEmptyStream
	}
	if anyEmptyStream {
		if err := writeVectorProperty(w, TagEmptyStream, func(w io.Writer) error {
			return wire.WriteBitVector(w, emptyStream)
		}); err != nil {
			return err
		}

		var emptyFile, anti []bool
		anyEmptyFile, anyAnti := false, false
		for _, fi := range files {
			if !fi.IsEmptyStream {
				continue
			}
			emptyFile = append(emptyFile, fi.IsEmptyFile)
			anti = append(anti, fi.IsAntiFile)
			anyEmptyFile = anyEmptyFile || fi.IsEmptyFile
			anyAnti = anyAnti || fi.IsAntiFile
		}
		if anyEmptyFile {
			if err := writeVectorProperty(w, TagEmptyFile, func(w io.Writer) error {
				return wire.WriteBitVector(w, emptyFile)
			}); err != nil {
				return err
			}
		}
		if anyAnti {
			if err := writeVectorProperty(w, TagAnti, func(w io.Writer) error {
				return wire.WriteBitVector(w, anti)
			}); err != nil {
				return err
			}
		}
	}

	if err := writeVectorProperty(w, TagName, func(w io.Writer) error {
		if err := wire.WriteByte(w, 0); err != nil {
			return err
		}
		for _, fi := range files {
			if err := writeUTF16ZString(w, fi.Name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := writeTimeTagIfAny(w, TagMTime, files, func(fi *FileInfo) (time.Time, bool) { return fi.ModifiedAt, fi.HasMTime }); err != nil {
		return err
	}
	if err := writeTimeTagIfAny(w, TagCTime, files, func(fi *FileInfo) (time.Time, bool) { return fi.CreatedAt, fi.HasCTime }); err != nil {
		return err
	}
	if err := writeTimeTagIfAny(w, TagATime, files, func(fi *FileInfo) (time.Time, bool) { return fi.AccessedAt, fi.HasATime }); err != nil {
		return err
	}

	anyAttrib := false
	for _, fi := range files {
		anyAttrib = anyAttrib || fi.HasAttrib
	}
	if anyAttrib {
		defined := make([]bool, len(files))
		for i, fi := range files {
			defined[i] = fi.HasAttrib
		}
		if err := writeVectorProperty(w, TagWinAttributes, func(w io.Writer) error {
			if err := wire.WriteOptionalBitVector(w, defined); err != nil {
				return err
			}
			if err := wire.WriteByte(w, 0); err != nil {
				return err
			}
			for i, fi := range files {
				if defined[i] {
					if err := wire.WriteUint32(w, fi.Attrib); err != nil {
						return err
					}
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}

	return wire.WriteByte(w, TagEnd)
}

func writeTimeTagIfAny(w io.Writer, tag byte, files []*FileInfo, get func(*FileInfo) (time.Time, bool)) error {
	any := false
	for _, fi := range files {
		if _, ok := get(fi); ok {
			any = true
			break
		}
	}
	if !any {
		return nil
	}

	defined := make([]bool, len(files))
	values := make([]time.Time, len(files))
	for i, fi := range files {
		values[i], defined[i] = get(fi)
	}

	return writeVectorProperty(w, tag, func(w io.Writer) error {
		return writeDateTimeVector(w, values, defined)
	})
}

// writeVectorProperty writes tag, the size-prefixed body build returns, by
// buffering the body to know its length up front — every FilesInfo
// property is length-prefixed even though most of them (unlike kDummy)
// don't strictly need it to be parsed.
func writeVectorProperty(w io.Writer, tag byte, build func(io.Writer) error) error {
	var buf writerBuffer
	if err := build(&buf); err != nil {
		return err
	}
	if err := wire.WriteByte(w, tag); err != nil {
		return err
	}
	if err := wire.WriteNumberInt(w, len(buf.data)); err != nil {
		return err
	}
	_, err := w.Write(buf.data)
	return err
}

type writerBuffer struct{ data []byte }

func (b *writerBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func readUTF16ZString(r io.Reader) (string, error) {
	var name []uint16
	for {
		lo, err := wire.ReadByte(r)
		if err != nil {
			return "", err
		}
		hi, err := wire.ReadByte(r)
		if err != nil {
			return "", err
		}
		u := uint16(lo) | uint16(hi)<<8
		if u == 0 {
			break
		}
		name = append(name, u)
	}
	return string(utf16.Decode(name)), nil
}

func writeUTF16ZString(w io.Writer, s string) error {
	for _, u := range utf16.Encode([]rune(s)) {
		if err := wire.WriteByte(w, byte(u)); err != nil {
			return err
		}
		if err := wire.WriteByte(w, byte(u>>8)); err != nil {
			return err
		}
	}
	// Two zero bytes: the UTF-16 NUL terminator.
	if err := wire.WriteByte(w, 0); err != nil {
		return err
	}
	return wire.WriteByte(w, 0)
}

// filetimeUnixEpochDiff is the number of 100ns FILETIME ticks between the
// Windows epoch (1601-01-01T00:00:00Z) and the Unix epoch. Both converters
// below split a tick count into whole seconds plus a sub-second remainder
// and go through time.Unix(sec, nsec), so no intermediate value has to hold
// a multi-century span in int64 nanoseconds (which only reach back to 1677)
// or in a time.Duration.
const filetimeUnixEpochDiff = 116444736000000000

func filetimeToTime(ft uint64) time.Time {
	secs := int64(ft/1e7) - filetimeUnixEpochDiff/1e7
	nsec := int64(ft%1e7) * 100
	return time.Unix(secs, nsec).UTC()
}

// timeToFiletime converts t to a 100ns tick count since the 1601 epoch,
// clamped to what a uint64 can hold: times before 1601 come back as 0, and
// times past the largest representable tick count come back as the uint64
// maximum.
func timeToFiletime(t time.Time) uint64 {
	const epochSecs = filetimeUnixEpochDiff / 1e7
	u := t.Unix()
	if u < -epochSecs {
		return 0
	}
	secs := uint64(u) + epochSecs
	if secs > (^uint64(0)-9999999)/1e7 {
		return ^uint64(0)
	}
	return secs*1e7 + uint64(t.Nanosecond()/100)
}

// readDateTimeVector reads an optional-bit-vector-guarded vector of
// FILETIME values, as used by kCTime/kATime/kMTime.
func readDateTimeVector(r io.Reader, length int) ([]time.Time, []bool, error) {
	defined, _, err := wire.ReadOptionalBitVector(r, length)
	if err != nil {
		return nil, nil, err
	}

	external, err := wire.ReadByte(r)
	if err != nil {
		return nil, nil, err
	}
	if external != 0 {
		return nil, nil, ErrAdditionalStreamsNotImplemented
	}

	times := make([]time.Time, length)
	for i := range times {
		if !defined[i] {
			continue
		}
		ft, err := wire.ReadUint64(r)
		if err != nil {
			return nil, nil, err
		}
		times[i] = filetimeToTime(ft)
	}

	return times, defined, nil
}

// writeDateTimeVector is the dual of readDateTimeVector.
func writeDateTimeVector(w io.Writer, values []time.Time, defined []bool) error {
	if err := wire.WriteOptionalBitVector(w, defined); err != nil {
		return err
	}
	if err := wire.WriteByte(w, 0); err != nil { // external
		return err
	}
	for i, t := range values {
		if !defined[i] {
			continue
		}
		if err := wire.WriteUint64(w, timeToFiletime(t)); err != nil {
			return err
		}
	}
	return nil
}

// readAttributeVector reads an optional-bit-vector-guarded vector of
// Windows file attribute words, as used by kWinAttributes.
func readAttributeVector(r io.Reader, length int) ([]uint32, []bool, error) {
	defined, _, err := wire.ReadOptionalBitVector(r, length)
	if err != nil {
		return nil, nil, err
	}

	external, err := wire.ReadByte(r)
	if err != nil {
		return nil, nil, err
	}
	if external != 0 {
		return nil, nil, ErrAdditionalStreamsNotImplemented
	}

	attrs := make([]uint32, length)
	for i := range attrs {
		if !defined[i] {
			continue
		}
		if attrs[i], err = wire.ReadUint32(r); err != nil {
			return nil, nil, err
		}
	}

	return attrs, defined, nil
}
