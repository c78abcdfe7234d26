package sevenzip

import "errors"

// Error kinds the root package returns; callers can test for them with
// errors.Is. Errors from the underlying io.Reader/io.Writer, from the codec
// libraries, and from header parsing (the headers, internal/wire and
// internal/graph packages' own sentinels, such as headers.ErrUnexpectedTag)
// are returned as they come and do not wrap any of these.
var (
	// ErrBadSignature is returned when the 6-byte magic at the start of the
	// file doesn't match 7z's signature.
	ErrBadSignature = errors.New("sevenzip: bad signature")

	// ErrUnsupportedVersion is returned when the archive's major version is
	// not 0.
	ErrUnsupportedVersion = errors.New("sevenzip: unsupported archive version")

	// ErrBadStartHeaderCRC is returned when the 32-byte start header's CRC
	// doesn't match its payload.
	ErrBadStartHeaderCRC = errors.New("sevenzip: start header checksum mismatch")

	// ErrBadNextHeaderCRC names a next header whose bytes don't match the
	// CRC recorded in the start header. The Reader reports that case as
	// ErrHeaderCorrupted, or as ErrWrongPassword when a password was
	// supplied; it does not return ErrBadNextHeaderCRC.
	ErrBadNextHeaderCRC = errors.New("sevenzip: next header checksum mismatch")

	// ErrUnknownHeaderTag names a property tag outside the fixed set in
	// headers/tags.go. The header parser reports such a tag as
	// headers.ErrUnexpectedTag, which does not wrap this sentinel.
	ErrUnknownHeaderTag = errors.New("sevenzip: unknown header tag")

	// ErrMalformedInteger names a variable-length integer whose encoded
	// length exceeds the remaining buffer. The header parser reports that
	// case as internal/wire's own ErrMalformedInteger, which does not wrap
	// this sentinel.
	ErrMalformedInteger = errors.New("sevenzip: malformed variable-length integer")

	// ErrInvalidCoderGraph is returned when a block's coders/bindings form a
	// cycle, reference a missing packed stream, or fail to resolve to
	// exactly one terminal output.
	ErrInvalidCoderGraph = errors.New("sevenzip: invalid coder graph")

	// ErrUnsupportedMethod is returned when a coder's method-id isn't
	// registered, or is registered without a constructor for the needed
	// direction. A registered constructor that itself refuses (the codec
	// registry's PPMd entry) returns internal/codec's own
	// ErrUnsupportedMethod, which does not wrap this sentinel.
	ErrUnsupportedMethod = errors.New("sevenzip: unsupported compression method")

	// ErrDataCorrupted is returned when a file or block's decoded bytes
	// don't match their recorded CRC and no password is in play.
	ErrDataCorrupted = errors.New("sevenzip: data corrupted")

	// ErrHeaderCorrupted is returned when the next header's CRC mismatches
	// and no password is in play.
	ErrHeaderCorrupted = errors.New("sevenzip: header corrupted")

	// ErrWrongPassword is returned when a CRC mismatch (header or content)
	// occurs while a password was supplied, making a bad password the
	// likely cause.
	ErrWrongPassword = errors.New("sevenzip: wrong password")

	// ErrPasswordRequired is returned when a coder needs AES decryption but
	// no password was configured.
	ErrPasswordRequired = errors.New("sevenzip: password required")

	// ErrEntryTooLarge is returned when an entry's declared unpacked size
	// exceeds a configured limit (used to bound encoded-header decoding).
	ErrEntryTooLarge = errors.New("sevenzip: entry too large")

	// ErrAlreadyFinished is returned by any Writer call made after Finish.
	ErrAlreadyFinished = errors.New("sevenzip: writer already finished")

	// ErrPoisoned is returned by any Writer call made after a prior I/O
	// error.
	ErrPoisoned = errors.New("sevenzip: writer poisoned by a previous error")

	// ErrInternal indicates an invariant violation reached through a path
	// believed unreachable. It is never expected to occur on well-formed
	// input or output from this package's own Writer.
	ErrInternal = errors.New("sevenzip: internal error")

	// ErrInvalidMethodChain is returned by SetContentMethods when given an
	// empty method list, or one that names MethodAES256SHA256 directly
	// (encryption is configured through SetPassword instead, since only it
	// can generate a fresh salt/IV per block).
	ErrInvalidMethodChain = errors.New("sevenzip: invalid content method chain")

	// ErrMethodsLocked is returned by SetContentMethods or SetPassword when
	// called while a solid block has pending, not-yet-finalized entries —
	// changing either mid-block would leave its already-written entries
	// compressed or keyed inconsistently with the rest of the block.
	ErrMethodsLocked = errors.New("sevenzip: content methods or password cannot change mid solid block")
)
