package headers

import (
	"io"

	"github.com/withzombies/sevenz-rust2/internal/graph"
	"github.com/withzombies/sevenz-rust2/internal/wire"
)

// UnpackInfo is the decoded kUnpackInfo section: the archive's folders
// (graph.Block values) plus, filled in here, each one's per-output-stream
// unpacked sizes and optional whole-block CRC.
type UnpackInfo struct {
	Folders []*graph.Block
}

// ReadUnpackInfo reads a kUnpackInfo section (the tag itself already
// consumed by the caller).
func ReadUnpackInfo(r io.Reader) (*UnpackInfo, error) {
	if err := expectTag(r, TagFolder); err != nil {
		return nil, err
	}

	numFolders, err := wire.ReadNumberInt(r)
	if err != nil {
		return nil, err
	}
	if numFolders > MaxFolderCount {
		return nil, ErrInvalidFolderCount
	}

	external, err := wire.ReadByte(r)
	if err != nil {
		return nil, err
	}
	if external != 0 {
		return nil, ErrAdditionalStreamsNotImplemented
	}

	info := &UnpackInfo{Folders: make([]*graph.Block, numFolders)}
	for i := range info.Folders {
		if info.Folders[i], err = ReadFolder(r); err != nil {
			return nil, err
		}
	}

	if err := expectTag(r, TagCodersUnpackSize); err != nil {
		return nil, err
	}
	for _, folder := range info.Folders {
		folder.OutSizes = make([]uint64, folder.NumOutStreamsTotal())
		for i := range folder.OutSizes {
			if folder.OutSizes[i], err = wire.ReadNumber(r); err != nil {
				return nil, err
			}
		}
	}

	id, err := wire.ReadByte(r)
	if err != nil {
		return nil, err
	}
	if id == TagCRC {
		crcs, err := ReadDigests(r, len(info.Folders))
		if err != nil {
			return nil, err
		}
		for i := range info.Folders {
			if crcs[i] != 0 {
				info.Folders[i].HasCRC = true
				info.Folders[i].CRC = crcs[i]
			}
		}

		id, err = wire.ReadByte(r)
		if err != nil {
			return nil, err
		}
	}

	if id != TagEnd {
		return nil, ErrUnexpectedTag
	}

	return info, nil
}

func expectTag(r io.Reader, want byte) error {
	got, err := wire.ReadByte(r)
	if err != nil {
		return err
	}
	if got != want {
		return ErrUnexpectedTag
	}
	return nil
}

// WriteUnpackInfo is the dual of ReadUnpackInfo.
func WriteUnpackInfo(w io.Writer, info *UnpackInfo) error {
	if err := wire.WriteByte(w, TagUnpackInfo); err != nil {
		return err
	}
	if err := wire.WriteByte(w, TagFolder); err != nil {
		return err
	}
	if err := wire.WriteNumberInt(w, len(info.Folders)); err != nil {
		return err
	}
	if err := wire.WriteByte(w, 0); err != nil { // external
		return err
	}
	for _, folder := range info.Folders {
		if err := WriteFolder(w, folder); err != nil {
			return err
		}
	}

	if err := wire.WriteByte(w, TagCodersUnpackSize); err != nil {
		return err
	}
	for _, folder := range info.Folders {
		for _, size := range folder.OutSizes {
			if err := wire.WriteNumber(w, size); err != nil {
				return err
			}
		}
	}

	anyCRC := false
	for _, folder := range info.Folders {
		if folder.HasCRC {
			anyCRC = true
			break
		}
	}
	if anyCRC {
		if err := wire.WriteByte(w, TagCRC); err != nil {
			return err
		}
		crcs := make([]uint32, len(info.Folders))
		defined := make([]bool, len(info.Folders))
		for i, folder := range info.Folders {
			crcs[i] = folder.CRC
			defined[i] = folder.HasCRC
		}
		if err := WriteDigests(w, crcs, defined); err != nil {
			return err
		}
	}

	return wire.WriteByte(w, TagEnd)
}
