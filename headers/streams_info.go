package headers

import (
	"io"

	"github.com/withzombies/sevenz-rust2/internal/wire"
)

// StreamsInfo is the decoded kMainStreamsInfo (or kEncodedHeader) section:
// where the pack streams live, how they combine into folders, and — for
// solid blocks — how a folder's single unpacked stream splits back into
// individual files.
type StreamsInfo struct {
	PackInfo       *PackInfo
	UnpackInfo     *UnpackInfo
	SubStreamsInfo *SubStreamsInfo
}

// ReadStreamsInfo reads a StreamsInfo section (the tag itself already
// consumed by the caller).
func ReadStreamsInfo(r io.Reader) (*StreamsInfo, error) {
	info := &StreamsInfo{}

	for {
		id, err := wire.ReadByte(r)
		if err != nil {
			return nil, err
		}

		switch id {
		case TagPackInfo:
			if info.PackInfo, err = ReadPackInfo(r); err != nil {
				return nil, err
			}

		case TagUnpackInfo:
			if info.UnpackInfo, err = ReadUnpackInfo(r); err != nil {
				return nil, err
			}

		case TagSubStreamsInfo:
			if info.UnpackInfo == nil {
				return nil, ErrUnexpectedTag
			}
			if info.SubStreamsInfo, err = ReadSubStreamsInfo(r, info.UnpackInfo); err != nil {
				return nil, err
			}

		case TagEnd:
			if info.PackInfo == nil || info.UnpackInfo == nil {
				return nil, ErrUnexpectedTag
			}
			return info, nil

		default:
			return nil, ErrUnexpectedTag
		}
	}
}

// WriteStreamsInfo is the dual of ReadStreamsInfo. The caller writes the
// section's own introducing tag (kMainStreamsInfo or kEncodedHeader)
// beforehand — WriteStreamsInfo only writes the nested PackInfo/
// UnpackInfo/SubStreamsInfo and the terminating kEnd.
func WriteStreamsInfo(w io.Writer, info *StreamsInfo) error {
	if err := WritePackInfo(w, info.PackInfo); err != nil {
		return err
	}
	if err := WriteUnpackInfo(w, info.UnpackInfo); err != nil {
		return err
	}
	if info.SubStreamsInfo != nil {
		if err := WriteSubStreamsInfo(w, info.SubStreamsInfo, info.UnpackInfo); err != nil {
			return err
		}
	}
	return wire.WriteByte(w, TagEnd)
}

// SubStreamsInfo records how each folder's single unpacked stream splits
// into the individual files packed solidly within it.
type SubStreamsInfo struct {
	NumUnpackStreamsInFolders []int
	UnpackSizes               []uint64
	Digests                   []uint32
}

// ReadSubStreamsInfo reads a kSubStreamsInfo section (the tag itself
// already consumed by the caller).
func ReadSubStreamsInfo(r io.Reader, unpackInfo *UnpackInfo) (*SubStreamsInfo, error) {
	id, err := wire.ReadByte(r)
	if err != nil {
		return nil, err
	}

	info := &SubStreamsInfo{NumUnpackStreamsInFolders: make([]int, len(unpackInfo.Folders))}
	for i := range info.NumUnpackStreamsInFolders {
		info.NumUnpackStreamsInFolders[i] = 1
	}

	if id == TagNumUnpackStream {
		for i := range info.NumUnpackStreamsInFolders {
			if info.NumUnpackStreamsInFolders[i], err = wire.ReadNumberInt(r); err != nil {
				return nil, err
			}
		}
		if id, err = wire.ReadByte(r); err != nil {
			return nil, err
		}
	}

	for i, folder := range unpackInfo.Folders {
		if info.NumUnpackStreamsInFolders[i] == 0 {
			continue
		}

		var sum uint64
		if id == TagSize {
			for j := 1; j < info.NumUnpackStreamsInFolders[i]; j++ {
				size, err := wire.ReadNumber(r)
				if err != nil {
					return nil, err
				}
				sum += size
				info.UnpackSizes = append(info.UnpackSizes, size)
			}
		}
		info.UnpackSizes = append(info.UnpackSizes, folder.UnpackSize()-sum)
	}

	if id == TagSize {
		if id, err = wire.ReadByte(r); err != nil {
			return nil, err
		}
	}

	numDigests := 0
	for i, folder := range unpackInfo.Folders {
		numSubStreams := info.NumUnpackStreamsInFolders[i]
		if numSubStreams != 1 || !folder.HasCRC {
			numDigests += numSubStreams
		}
	}

	if id == TagCRC {
		if info.Digests, err = ReadDigests(r, numDigests); err != nil {
			return nil, err
		}
		if id, err = wire.ReadByte(r); err != nil {
			return nil, err
		}
	}

	if id != TagEnd {
		return nil, ErrUnexpectedTag
	}

	return info, nil
}

// WriteSubStreamsInfo is the dual of ReadSubStreamsInfo.
func WriteSubStreamsInfo(w io.Writer, info *SubStreamsInfo, unpackInfo *UnpackInfo) error {
	if err := wire.WriteByte(w, TagSubStreamsInfo); err != nil {
		return err
	}

	uniform := true
	for _, n := range info.NumUnpackStreamsInFolders {
		if n != 1 {
			uniform = false
			break
		}
	}
	if !uniform {
		if err := wire.WriteByte(w, TagNumUnpackStream); err != nil {
			return err
		}
		for _, n := range info.NumUnpackStreamsInFolders {
			if err := wire.WriteNumberInt(w, n); err != nil {
				return err
			}
		}
	}

	if len(info.UnpackSizes) > len(unpackInfo.Folders) {
		if err := wire.WriteByte(w, TagSize); err != nil {
			return err
		}
		idx := 0
		for _, n := range info.NumUnpackStreamsInFolders {
			for j := 0; j < n; j++ {
				if j < n-1 {
					if err := wire.WriteNumber(w, info.UnpackSizes[idx]); err != nil {
						return err
					}
				}
				idx++
			}
		}
	}

	if len(info.Digests) > 0 {
		if err := wire.WriteByte(w, TagCRC); err != nil {
			return err
		}
		defined := make([]bool, len(info.Digests))
		for i, d := range info.Digests {
			defined[i] = d != 0
		}
		if err := WriteDigests(w, info.Digests, defined); err != nil {
			return err
		}
	}

	return wire.WriteByte(w, TagEnd)
}
