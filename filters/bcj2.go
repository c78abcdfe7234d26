package filters

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
)

type rangeDecoder struct {
	r      io.Reader
	nrange uint
	code   uint
}

func newRangeDecoder(r io.Reader) (*rangeDecoder, error) {
	rd := &rangeDecoder{
		r:      r,
		nrange: 0xffffffff,
	}

	for i := 0; i < 5; i++ {
		b, err := rd.ReadByte()
		if err != nil {
			return nil, err
		}

		rd.code = (rd.code << 8) | uint(b)
	}
	return rd, nil
}

func (rd *rangeDecoder) ReadByte() (byte, error) {
	var b [1]byte
	_, err := rd.r.Read(b[:])
	return b[0], err
}

const (
	numMoveBits          = 5
	numbitModelTotalBits = 11
	bitModelTotal        = uint(1) << numbitModelTotalBits

	numTopBits = 24
	topValue   = 1 << numTopBits
)

type statusDecoder struct {
	prob uint
}

func newStatusDecoder() *statusDecoder {
	return &statusDecoder{prob: bitModelTotal / 2}
}

func (sd *statusDecoder) Decode(decoder *rangeDecoder) (uint, error) {
	var err error
	var b byte

	newBound := (decoder.nrange >> numbitModelTotalBits) * sd.prob
	if decoder.code < newBound {
		decoder.nrange = newBound
		sd.prob += (bitModelTotal - sd.prob) >> numMoveBits
		if decoder.nrange < topValue {
			if b, err = decoder.ReadByte(); err != nil {
				return 0, err
			}
			decoder.code = (decoder.code << 8) | uint(b)
			decoder.nrange <<= 8
		}
		return 0, nil
	}

	decoder.nrange -= newBound
	decoder.code -= newBound
	sd.prob -= sd.prob >> numMoveBits
	if decoder.nrange < topValue {
		if b, err = decoder.ReadByte(); err != nil {
			return 0, err
		}
		decoder.code = (decoder.code << 8) | uint(b)
		decoder.nrange <<= 8
	}
	return 1, nil
}

// BCJ2Decoder is a BCJ2 decoder.
type BCJ2Decoder struct {
	main *bufio.Reader
	call io.Reader
	jump io.Reader

	rangeDecoder  *rangeDecoder
	statusDecoder []*statusDecoder

	written  int64
	finished bool

	prevByte byte

	buf *bytes.Buffer
}

// NewBCJ2Decoder returns a new BCJ2 decoder.
func NewBCJ2Decoder(main, call, jump, rangedecoder io.Reader, limit int64) (*BCJ2Decoder, error) {
	rd, err := newRangeDecoder(rangedecoder)
	if err != nil {
		return nil, err
	}

	decoder := &BCJ2Decoder{
		main:          bufio.NewReader(main),
		call:          call,
		jump:          jump,
		rangeDecoder:  rd,
		statusDecoder: make([]*statusDecoder, 256+2),
		buf:           new(bytes.Buffer),
	}
	decoder.buf.Grow(1 << 16)

	for i := range decoder.statusDecoder {
		decoder.statusDecoder[i] = newStatusDecoder()
	}

	return decoder, nil
}

func (d *BCJ2Decoder) isJcc(b0, b1 byte) bool {
	return b0 == 0x0f && (b1&0xf0) == 0x80
}

func (d *BCJ2Decoder) isJ(b0, b1 byte) bool {
	return (b1&0xfe) == 0xe8 || d.isJcc(b0, b1)
}

func (d *BCJ2Decoder) index(b0, b1 byte) int {
	switch b1 {
	case 0xe8:
		return int(b0)
	case 0xe9:
		return 256
	}
	return 257
}

func (d *BCJ2Decoder) Read(p []byte) (int, error) {
	err := d.read()
	if err != nil && err != io.EOF {
		return 0, err
	}

	return d.buf.Read(p)
}

func (d *BCJ2Decoder) read() error {
	b := byte(0)

	var err error
	for i := 0; i < d.buf.Cap(); i++ {
		b, err = d.main.ReadByte()
		if err != nil {
			return err
		}

		d.written++
		if err = d.buf.WriteByte(b); err != nil {
			return err
		}

		if d.isJ(d.prevByte, b) {
			break
		}
		d.prevByte = b
	}

	if d.buf.Len() == d.buf.Cap() {
		return nil
	}

	bit, err := d.statusDecoder[d.index(d.prevByte, b)].Decode(d.rangeDecoder)
	if err != nil {
		return err
	}

	if bit == 1 {
		var r io.Reader
		if b == 0xe8 {
			r = d.call
		} else {
			r = d.jump
		}

		var dest uint32
		if err = binary.Read(r, binary.BigEndian, &dest); err != nil {
			return err
		}

		dest -= uint32(d.written + 4)
		if err = binary.Write(d.buf, binary.LittleEndian, dest); err != nil {
			return err
		}

		d.prevByte = byte(dest >> 24)
		d.written += 4
	} else {
		d.prevByte = b
	}

	return nil
}

type rangeEncoder struct {
	w         io.Writer
	low       uint64
	nrange    uint32
	cacheSize uint64
	cache     byte
}

func newRangeEncoder(w io.Writer) *rangeEncoder {
	return &rangeEncoder{w: w, nrange: 0xffffffff, cacheSize: 1, cache: 0}
}

func (re *rangeEncoder) shiftLow() error {
	if uint32(re.low>>32) != 0 || re.low < 0xff000000 {
		temp := re.cache
		for {
			if err := writeByte(re.w, temp+byte(re.low>>32)); err != nil {
				return err
			}
			temp = 0xff
			re.cacheSize--
			if re.cacheSize == 0 {
				break
			}
		}
		re.cache = byte(re.low >> 24)
	}
	re.cacheSize++
	re.low = (re.low << 8) & 0xffffffff
	return nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func (re *rangeEncoder) Flush() error {
	for i := 0; i < 5; i++ {
		if err := re.shiftLow(); err != nil {
			return err
		}
	}
	return nil
}

type statusEncoder struct {
	prob uint
}

func newStatusEncoder() *statusEncoder {
	return &statusEncoder{prob: bitModelTotal / 2}
}

func (se *statusEncoder) Encode(enc *rangeEncoder, bit uint) error {
	newBound := (enc.nrange >> numbitModelTotalBits) * uint32(se.prob)
	if bit == 0 {
		enc.nrange = newBound
		se.prob += (bitModelTotal - se.prob) >> numMoveBits
	} else {
		enc.low += uint64(newBound)
		enc.nrange -= newBound
		se.prob -= se.prob >> numMoveBits
	}

	for enc.nrange < topValue {
		enc.nrange <<= 8
		if err := enc.shiftLow(); err != nil {
			return err
		}
	}
	return nil
}

// BCJ2Encoder splits an x86 instruction stream into a main byte stream plus
// call/jump absolute-address side streams and a range-coded selector
// stream, the inverse of BCJ2Decoder.
//
// Implemented from the public BCJ2 algorithm description as the dual of
// the decode loop above: no reference encoder was available to port.
type BCJ2Encoder struct {
	main, call, jump io.Writer
	rc               *rangeEncoder
	statusEncoder    []*statusEncoder
	prevByte         byte
	written          int64
}

// NewBCJ2Encoder returns a new BCJ2 encoder writing its four output streams
// to main, call, jump and rangecoder.
func NewBCJ2Encoder(main, call, jump, rangecoder io.Writer) (*BCJ2Encoder, error) {
	e := &BCJ2Encoder{
		main:          main,
		call:          call,
		jump:          jump,
		rc:            newRangeEncoder(rangecoder),
		statusEncoder: make([]*statusEncoder, 256+2),
	}
	for i := range e.statusEncoder {
		e.statusEncoder[i] = newStatusEncoder()
	}
	return e, nil
}

func (e *BCJ2Encoder) index(b0, b1 byte) int {
	switch b1 {
	case 0xe8:
		return int(b0)
	case 0xe9:
		return 256
	}
	return 257
}

func (e *BCJ2Encoder) isJcc(b0, b1 byte) bool {
	return b0 == 0x0f && (b1&0xf0) == 0x80
}

func (e *BCJ2Encoder) isJ(b0, b1 byte) bool {
	return (b1&0xfe) == 0xe8 || e.isJcc(b0, b1)
}

// Write consumes a full, contiguous pass of the plaintext; BCJ2's decision
// to encode a call/jump target depends on the 4 bytes following it, so
// encoding cannot be done in small, independent chunks.
func (e *BCJ2Encoder) Write(p []byte) (int, error) {
	i := 0
	for i < len(p) {
		b := p[i]
		if err := writeByte(e.main, b); err != nil {
			return i, err
		}
		e.written++
		i++

		if !e.isJ(e.prevByte, b) || i+4 > len(p) {
			e.prevByte = b
			continue
		}

		bit := uint(0)
		if p[i-1] == 0xe8 || p[i-1] == 0xe9 || e.isJcc(e.prevByte, b) {
			bit = 1
		}
		if err := e.statusEncoder[e.index(e.prevByte, b)].Encode(e.rc, bit); err != nil {
			return i, err
		}

		if bit == 1 {
			dest := binary.LittleEndian.Uint32(p[i : i+4])
			dest += uint32(e.written + 4)

			var dst io.Writer = e.jump
			if b == 0xe8 {
				dst = e.call
			}
			if err := binary.Write(dst, binary.BigEndian, dest); err != nil {
				return i, err
			}

			e.prevByte = p[i+3]
			e.written += 4
			i += 4
		} else {
			e.prevByte = b
		}
	}
	return len(p), nil
}

// Close flushes the range coder's trailing bytes.
func (e *BCJ2Encoder) Close() error {
	return e.rc.Flush()
}
