package headers

import (
	"io"

	"github.com/withzombies/sevenz-rust2/internal/wire"
)

// PackInfo records where the pack streams begin (relative to the end of
// the signature header) and each one's on-disk size.
type PackInfo struct {
	PackPos   uint64
	PackSizes []uint64
}

// ReadPackInfo reads a PackInfo section (the kPackInfo tag itself already
// consumed by the caller).
func ReadPackInfo(r io.Reader) (*PackInfo, error) {
	info := &PackInfo{}

	var err error
	if info.PackPos, err = wire.ReadNumber(r); err != nil {
		return nil, err
	}

	numPackStreams, err := wire.ReadNumberInt(r)
	if err != nil {
		return nil, err
	}

	for {
		id, err := wire.ReadByte(r)
		if err != nil {
			return nil, err
		}

		switch id {
		case TagSize:
			info.PackSizes = make([]uint64, numPackStreams)
			for i := range info.PackSizes {
				if info.PackSizes[i], err = wire.ReadNumber(r); err != nil {
					return nil, err
				}
			}

		case TagCRC:
			// Pack-stream CRCs are optional metadata this package never
			// produces and, like saracen/go7z, does not consume.
			if _, err := ReadDigests(r, numPackStreams); err != nil {
				return nil, err
			}

		case TagEnd:
			return info, nil

		default:
			return nil, ErrUnexpectedTag
		}
	}
}

// WritePackInfo writes the kPackInfo tag, PackInfo's fields, and the
// terminating kEnd.
func WritePackInfo(w io.Writer, info *PackInfo) error {
	if err := wire.WriteByte(w, TagPackInfo); err != nil {
		return err
	}
	if err := wire.WriteNumber(w, info.PackPos); err != nil {
		return err
	}
	if err := wire.WriteNumberInt(w, len(info.PackSizes)); err != nil {
		return err
	}

	if err := wire.WriteByte(w, TagSize); err != nil {
		return err
	}
	for _, size := range info.PackSizes {
		if err := wire.WriteNumber(w, size); err != nil {
			return err
		}
	}

	return wire.WriteByte(w, TagEnd)
}
