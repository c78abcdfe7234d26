package sevenzip

import (
	"crypto/sha256"
	"encoding/binary"
	"unicode/utf16"
)

// Password holds archive encryption/decryption credentials in the encoding
// the AES-256-SHA-256 coder expects: UTF-16LE, with no terminating NUL.
//
// Mirrors saracen/go7z's filters/aes.go keyManager.Key,
// which does the same UTF-16LE re-encoding inline at decrypt time; this
// type just gives it a name so the writer can build the same bytes when
// encrypting.
type Password struct {
	utf16le []byte
}

// NewPassword encodes s as the UTF-16LE byte string the format requires.
func NewPassword(s string) Password {
	buf := make([]byte, 0, len(s)*2)
	for _, p := range utf16.Encode([]rune(s)) {
		buf = binary.LittleEndian.AppendUint16(buf, p)
	}
	return Password{utf16le: buf}
}

// Empty reports whether no password was set.
func (p Password) Empty() bool {
	return len(p.utf16le) == 0
}

// Bytes returns the raw UTF-16LE encoding fed to the key derivation
// function.
func (p Password) Bytes() []byte {
	return p.utf16le
}

// DeriveKey implements the AES-256-SHA-256 coder's key stretching: the salt
// and password bytes, followed by an 8-byte little-endian round counter,
// are hashed with SHA-256 once per round, for 2^cyclesPower rounds. The
// legacy cyclesPower == 0x3f shortcut (used by archives predating the
// stretching scheme) instead zero-pads salt||password to 32 bytes and
// skips hashing entirely.
//
// Mirrors saracen/go7z's keyManager.sha256Stretch/stretch.
func DeriveKey(password []byte, cyclesPower int, salt []byte) []byte {
	if cyclesPower == 0x3f {
		return legacyKey(salt, password)
	}

	h := sha256.New()
	var counter [8]byte
	rounds := uint64(1) << uint(cyclesPower)
	for round := uint64(0); round < rounds; round++ {
		h.Write(salt)
		h.Write(password)
		h.Write(counter[:])
		incrementCounter(&counter)
	}

	return h.Sum(nil)
}

func incrementCounter(counter *[8]byte) {
	for i := range counter {
		counter[i]++
		if counter[i] != 0 {
			break
		}
	}
}

func legacyKey(salt, password []byte) []byte {
	const keySize = 32
	key := make([]byte, keySize)

	pos := copy(key, salt)
	pos += copy(key[pos:], password)
	for ; pos < keySize; pos++ {
		key[pos] = 0
	}
	return key
}
