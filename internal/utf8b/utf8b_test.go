package utf8b_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/madlambda/jobfd/internal/utf8b"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	type decodeDesc struct {
		in   []byte
		want []rune
	}

	tests := map[string]decodeDesc{
		"ascii":     {in: []byte("hello"), want: []rune("hello")},
		"multibyte": {in: []byte("λ€𝄞"), want: []rune{'λ', '€', '𝄞'}},
		"lonebyte":  {in: []byte{'a', 0xff, 'b'}, want: []rune{'a', 0xDCFF, 'b'}},
		"overlong":  {in: []byte{0xC0, 0xAF}, want: []rune{0xDCC0, 0xDCAF}},
		"surrogate": {in: []byte{0xED, 0xA0, 0x80}, want: []rune{0xDCED, 0xDCA0, 0xDC80}},
		"truncated": {in: []byte{0xE2, 0x82}, want: []rune{0xDCE2, 0xDC82}},
		"toolarge":  {in: []byte{0xF4, 0x90, 0x80, 0x80}, want: []rune{0xDCF4, 0xDC90, 0xDC80, 0xDC80}},
		"empty":     {in: []byte{}, want: []rune{}},
	}

	for name, desc := range tests {
		desc := desc
		t.Run(name, func(t *testing.T) {
			got := utf8b.Decode(desc.in)
			assert.Equal(t, desc.want, got)

			back, bad := utf8b.Encode(got)
			assert.Equal(t, -1, bad)
			assert.Equal(t, desc.in, back)
		})
	}
}

func TestRoundTripAllBytes(t *testing.T) {
	in := make([]byte, 0, 512)
	for i := 0; i < 256; i++ {
		in = append(in, byte(i), byte(255-i))
	}

	out, bad := utf8b.Encode(utf8b.Decode(in))
	require.Equal(t, -1, bad)
	assert.True(t, bytes.Equal(in, out))
}

func TestEncodeRejectsInvalidRunes(t *testing.T) {
	out, bad := utf8b.Encode([]rune{'a', 0xD800, 'b', 0x110000})
	assert.Equal(t, 1, bad)
	assert.Equal(t, []byte("ab"), out)
}

func TestDecodeRuneIncomplete(t *testing.T) {
	r, n := utf8b.DecodeRune([]byte{0xE2, 0x82}, false)
	assert.Equal(t, rune(utf8b.RuneIncomplete), r)
	assert.Equal(t, 2, n)

	r, n = utf8b.DecodeRune([]byte{0xE2, 0x82, 0xAC}, false)
	assert.Equal(t, '€', r)
	assert.Equal(t, 3, n)
}

func TestReader(t *testing.T) {
	rd := utf8b.NewReader(bytes.NewReader([]byte{'x', 0xE2, 0x82, 0xAC, 0xE2}))

	var got []rune
	for {
		r, _, err := rd.ReadRune()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, r)
	}

	assert.Equal(t, []rune{'x', '€', 0xDCE2}, got)
}
