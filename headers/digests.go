package headers

import (
	"io"

	"github.com/withzombies/sevenz-rust2/internal/wire"
)

// ReadDigests reads length CRC-32 values behind the optional-bit-vector
// "all defined" shortcut, leaving undefined entries zero.
func ReadDigests(r io.Reader, length int) ([]uint32, error) {
	defined, _, err := wire.ReadOptionalBitVector(r, length)
	if err != nil {
		return nil, err
	}

	crcs := make([]uint32, length)
	for i := range defined {
		if defined[i] {
			if crcs[i], err = wire.ReadUint32(r); err != nil {
				return nil, err
			}
		}
	}

	return crcs, nil
}

// WriteDigests is the dual of ReadDigests: defined reports which of the
// length entries in crcs actually have a checksum.
func WriteDigests(w io.Writer, crcs []uint32, defined []bool) error {
	if err := wire.WriteOptionalBitVector(w, defined); err != nil {
		return err
	}
	for i, d := range defined {
		if d {
			if err := wire.WriteUint32(w, crcs[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
