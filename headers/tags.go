// Package headers encodes and decodes the 7z "next header" metadata
// database: the signature header, the property-tagged StreamsInfo/
// FilesInfo sections, and the folder (renamed Block at the
// internal/graph layer) coder-graph description nested inside them.
//
// Adapted from saracen/go7z's headers package, which only
// ever read this structure; every Read* function here has a matching
// Write* counterpart grounded on original_source/src/writer.rs's
// write_header family, since this package now backs an archive writer too.
package headers

import "errors"

const (
	TagEnd = iota
	TagHeader
	TagArchiveProperties
	TagAdditionalStreamsInfo
	TagMainStreamsInfo
	TagFilesInfo
	TagPackInfo
	TagUnpackInfo
	TagSubStreamsInfo
	TagSize
	TagCRC
	TagFolder
	TagCodersUnpackSize
	TagNumUnpackStream
	TagEmptyStream
	TagEmptyFile
	TagAnti
	TagName
	TagCTime
	TagATime
	TagMTime
	TagWinAttributes
	TagComment
	TagEncodedHeader
	TagStartPos
	TagDummy
)

var (
	// ErrUnexpectedTag is returned when a property tag outside the fixed set
	// above is encountered, or a tag appears somewhere the grammar forbids
	// (invariant I1/O1 of the format).
	ErrUnexpectedTag = errors.New("headers: unexpected property tag")

	// ErrAdditionalStreamsNotImplemented is returned for the "external data"
	// variants of Name/Attributes/timestamp vectors: pre-0.16 7-Zip could
	// store these in a side stream instead of inline, a form never produced
	// by this package's own writer.
	ErrAdditionalStreamsNotImplemented = errors.New("headers: additional streams are not implemented")

	// ErrArchivePropertiesNotImplemented is returned if an archive
	// properties section is found; no version of 7-Zip has ever written one.
	ErrArchivePropertiesNotImplemented = errors.New("headers: archive properties are not implemented")

	// ErrChecksumMismatch is returned when a CRC check fails.
	ErrChecksumMismatch = errors.New("headers: checksum mismatch")

	// ErrInvalidStreamCount is returned when a coder declares 0 or more than
	// MaxInOutStreams input/output streams.
	ErrInvalidStreamCount = errors.New("headers: invalid in/out stream count")

	// ErrInvalidPropertyDataSize is returned when a coder's property blob is
	// 0 or more than MaxPropertyDataSize bytes.
	ErrInvalidPropertyDataSize = errors.New("headers: invalid property data size")

	// ErrInvalidCoderCount is returned when a folder declares 0 or more than
	// MaxCodersInFolder coders.
	ErrInvalidCoderCount = errors.New("headers: invalid coder count")

	// ErrInvalidPackedStreamsCount is returned when a folder's packed-stream
	// count exceeds MaxPackedStreamsInFolder.
	ErrInvalidPackedStreamsCount = errors.New("headers: invalid packed streams count")

	// ErrInvalidFolderCount is returned when UnpackInfo declares more than
	// MaxFolderCount folders.
	ErrInvalidFolderCount = errors.New("headers: invalid folder count")

	// ErrInvalidFileCount is returned when FilesInfo declares more files
	// than the caller-supplied limit allows.
	ErrInvalidFileCount = errors.New("headers: invalid file count")
)

const (
	MaxInOutStreams         = 4
	MaxPropertyDataSize     = 256
	MaxCodersInFolder       = 4
	MaxPackedStreamsInFolder = 4
	MaxFolderCount          = 1 << 30
)
