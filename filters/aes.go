package filters

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"io"
)

// AESDecrypter is an AES-256-CBC decryptor. Key derivation from a password
// is the caller's responsibility (see the root package's DeriveKey) — this
// type only does the block cipher half, same as saracen/go7z's
// filters/aes.go AESDecrypter.
type AESDecrypter struct {
	r    io.Reader
	rbuf bytes.Buffer
	cbc  cipher.BlockMode
	buf  [aes.BlockSize]byte
}

// NewAESDecrypter returns a new AES-256-CBC decryptor reading ciphertext
// from r.
func NewAESDecrypter(r io.Reader, key, iv []byte) (*AESDecrypter, error) {
	cb, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	var aesiv [aes.BlockSize]byte
	copy(aesiv[:], iv)

	return &AESDecrypter{
		r:   r,
		cbc: cipher.NewCBCDecrypter(cb, aesiv[:]),
	}, nil
}

func (d *AESDecrypter) Read(p []byte) (int, error) {
	for d.rbuf.Len() < len(p) {
		_, err := io.ReadFull(d.r, d.buf[:])
		if err != nil {
			if d.rbuf.Len() > 0 && err == io.ErrUnexpectedEOF {
				break
			}
			return 0, err
		}

		d.cbc.CryptBlocks(d.buf[:], d.buf[:])

		if _, err = d.rbuf.Write(d.buf[:]); err != nil {
			return 0, err
		}
	}

	return d.rbuf.Read(p)
}

// AESEncrypter is an AES-256-CBC encryptor. PKCS#7 padding is applied on
// Close so the ciphertext is always a whole number of blocks, matching
// what NewAESDecrypter (and real 7-Zip) expects to read back.
type AESEncrypter struct {
	w    io.Writer
	cbc  cipher.BlockMode
	wbuf bytes.Buffer
}

// NewAESEncrypter returns a new AES-256-CBC encryptor writing ciphertext to
// w.
func NewAESEncrypter(w io.Writer, key, iv []byte) (*AESEncrypter, error) {
	cb, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	var aesiv [aes.BlockSize]byte
	copy(aesiv[:], iv)

	return &AESEncrypter{w: w, cbc: cipher.NewCBCEncrypter(cb, aesiv[:])}, nil
}

func (e *AESEncrypter) Write(p []byte) (int, error) {
	e.wbuf.Write(p)

	for e.wbuf.Len() >= aes.BlockSize {
		var block [aes.BlockSize]byte
		e.wbuf.Read(block[:])
		e.cbc.CryptBlocks(block[:], block[:])
		if _, err := e.w.Write(block[:]); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}

// Close pads the final partial block with PKCS#7 padding and flushes it.
func (e *AESEncrypter) Close() error {
	pad := aes.BlockSize - e.wbuf.Len()
	if pad == 0 {
		pad = aes.BlockSize
	}
	for i := 0; i < pad; i++ {
		e.wbuf.WriteByte(byte(pad))
	}

	block := make([]byte, e.wbuf.Len())
	e.wbuf.Read(block)
	e.cbc.CryptBlocks(block, block)
	_, err := e.w.Write(block)
	return err
}
