// Package utf8b converts between bytes and runes using UTF-8b: valid UTF-8
// decodes as usual, and every byte that is not part of a valid sequence
// decodes to the rune 0xDC00|byte (the range U+DC80..U+DCFF). Encoding maps
// those runes back to the original byte, so any byte sequence survives a
// decode/encode round trip unchanged.
package utf8b

import (
	"bufio"
	"io"
)

const (
	// SurrogateMin and SurrogateMax bound the runes standing for raw bytes.
	SurrogateMin = 0xDC80
	SurrogateMax = 0xDCFF

	// RuneIncomplete is returned by DecodeRune when p holds a truncated but
	// so far valid sequence and more input may follow.
	RuneIncomplete = -1
)

// DecodeRune decodes the first UTF-8b sequence of p. If eof is false and p
// ends inside a sequence that could still become valid, it returns
// (RuneIncomplete, len(p)).
func DecodeRune(p []byte, eof bool) (rune, int) {
	n := len(p)
	if n == 0 {
		return 0, 0
	}

	b0 := rune(p[0])
	if b0 < 0x80 {
		return b0, 1
	}

	raw := 0xDC00 | b0
	incomplete := func() (rune, int) {
		if eof {
			return raw, 1
		}
		return RuneIncomplete, n
	}

	if b0 < 0xC2 || b0 > 0xF4 {
		return raw, 1
	}
	if n == 1 {
		return incomplete()
	}

	b1 := rune(p[1])
	if b1&0xC0 != 0x80 {
		return raw, 1
	}
	if b0 < 0xE0 {
		return (b0&0x1F)<<6 | b1&0x3F, 2
	}
	if n == 2 {
		return incomplete()
	}

	b2 := rune(p[2])
	if b2&0xC0 != 0x80 {
		return raw, 1
	}
	if b0 < 0xF0 {
		r := (b0&0x0F)<<12 | (b1&0x3F)<<6 | b2&0x3F
		if r >= 0x800 && (r < 0xD800 || r >= 0xE000) {
			return r, 3
		}
		// overlong or surrogate
		return raw, 1
	}
	if n == 3 {
		return incomplete()
	}

	b3 := rune(p[3])
	if b3&0xC0 != 0x80 {
		return raw, 1
	}
	r := (b0&0x07)<<18 | (b1&0x3F)<<12 | (b2&0x3F)<<6 | b3&0x3F
	if r >= 0x10000 && r < 0x110000 {
		return r, 4
	}
	return raw, 1
}

// Decode converts p to runes. It never fails.
func Decode(p []byte) []rune {
	runes := make([]rune, 0, len(p))
	for len(p) > 0 {
		r, n := DecodeRune(p, true)
		runes = append(runes, r)
		p = p[n:]
	}
	return runes
}

// RuneLen returns how many bytes EncodeRune writes for r, or -1 if r can
// not be encoded.
func RuneLen(r rune) int {
	switch {
	case r < 0:
		return -1
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r >= SurrogateMin && r <= SurrogateMax:
		return 1
	case r >= 0xD800 && r < 0xE000:
		return -1
	case r < 0x10000:
		return 3
	case r < 0x110000:
		return 4
	}
	return -1
}

// AppendRune appends the UTF-8b encoding of r. Runes that can not be
// encoded (lone surrogates outside U+DC80..U+DCFF, out of range values)
// are reported by ok == false and leave p unchanged.
func AppendRune(p []byte, r rune) ([]byte, bool) {
	switch RuneLen(r) {
	case 1:
		return append(p, byte(r)), true
	case 2:
		return append(p, 0xC0|byte(r>>6), 0x80|byte(r)&0x3F), true
	case 3:
		return append(p, 0xE0|byte(r>>12), 0x80|byte(r>>6)&0x3F, 0x80|byte(r)&0x3F), true
	case 4:
		return append(p, 0xF0|byte(r>>18), 0x80|byte(r>>12)&0x3F,
			0x80|byte(r>>6)&0x3F, 0x80|byte(r)&0x3F), true
	}
	return p, false
}

// Encode converts runes back to bytes. Runes that can not be encoded are
// skipped and the index of the first one is returned, otherwise -1.
func Encode(runes []rune) ([]byte, int) {
	bad := -1
	out := make([]byte, 0, len(runes))
	for i, r := range runes {
		var ok bool
		out, ok = AppendRune(out, r)
		if !ok && bad < 0 {
			bad = i
		}
	}
	return out, bad
}

// Reader decodes runes from an underlying byte stream.
type Reader struct {
	in  *bufio.Reader
	buf []byte
	eof bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{in: bufio.NewReader(r)}
}

// ReadRune returns the next rune and the number of bytes it consumed. It
// reads ahead only while the buffered bytes form an incomplete sequence.
func (r *Reader) ReadRune() (rune, int, error) {
	for {
		if len(r.buf) > 0 {
			c, n := DecodeRune(r.buf, r.eof)
			if c != RuneIncomplete {
				r.buf = r.buf[n:]
				return c, n, nil
			}
		} else if r.eof {
			return 0, 0, io.EOF
		}

		b, err := r.in.ReadByte()
		if err == io.EOF {
			r.eof = true
			continue
		}
		if err != nil {
			return 0, 0, err
		}
		r.buf = append(r.buf, b)
	}
}
