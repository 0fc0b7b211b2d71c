package soltx

import "github.com/pkg/errors"

// Shortvec ("compact-u16") length prefix: 7 bits per byte, little-endian,
// at most 3 bytes.

func appendShortvecLen(dst []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

func readShortvecLen(r *reader) (int, error) {
	var n uint32
	for i := 0; i < 3; i++ {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		n |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int(n), nil
		}
	}
	return 0, errors.New("shortvec length longer than 3 bytes")
}

// reader is a bounds-checked cursor over wire bytes.
type reader struct {
	buf []byte
	off int
}

func (r *reader) readByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, errors.New("unexpected end of transaction bytes")
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, errors.New("unexpected end of transaction bytes")
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}
