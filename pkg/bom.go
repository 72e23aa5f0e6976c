package pkg

import (
	"bytes"
	"io"
	"unicode/utf16"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// stripBOM consumes a leading UTF-8 or UTF-16 byte-order mark from r
// (peeking at most 3 bytes) and returns a reader with the BOM already
// removed. If the stream is UTF-16, the remaining bytes are decoded to
// UTF-8 on the fly so every downstream component (C4 onward) only ever
// sees UTF-8 bytes. This runs once, at the very start of the stream,
// per spec section 4.2.
func stripBOM(r io.Reader) (io.Reader, error) {
	br := newPeekBuffer(r)
	head, err := br.peek(3)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(head, bomUTF8):
		br.discard(3)
		return br, nil
	case bytes.HasPrefix(head, bomUTF16LE):
		br.discard(2)
		return newUTF16Decoder(br, false), nil
	case bytes.HasPrefix(head, bomUTF16BE):
		br.discard(2)
		return newUTF16Decoder(br, true), nil
	default:
		return br, nil
	}
}

// peekBuffer is a tiny io.Reader wrapper that supports peeking a fixed
// number of bytes without consuming them, used only for the one-shot
// BOM sniff at stream start.
type peekBuffer struct {
	r    io.Reader
	buf  []byte
	pos  int
	size int
}

func newPeekBuffer(r io.Reader) *peekBuffer {
	return &peekBuffer{r: r, buf: make([]byte, 0, 8)}
}

func (p *peekBuffer) peek(n int) ([]byte, error) {
	for len(p.buf)-p.pos < n {
		chunk := make([]byte, n)
		m, err := p.r.Read(chunk)
		p.buf = append(p.buf, chunk[:m]...)
		if err != nil {
			return p.buf[p.pos:], err
		}
		if m == 0 {
			return p.buf[p.pos:], io.ErrUnexpectedEOF
		}
	}
	return p.buf[p.pos : p.pos+n], nil
}

func (p *peekBuffer) discard(n int) { p.pos += n }

func (p *peekBuffer) Read(dst []byte) (int, error) {
	if p.pos < len(p.buf) {
		n := copy(dst, p.buf[p.pos:])
		p.pos += n
		return n, nil
	}
	return p.r.Read(dst)
}

// utf16Decoder converts a UTF-16 byte stream (after its BOM has been
// stripped) into UTF-8 bytes for downstream consumption.
type utf16Decoder struct {
	r        io.Reader
	bigEndian bool
	pending  []byte // decoded UTF-8 bytes not yet returned by a previous Read
	rawTail  []byte // odd trailing byte of a UTF-16 code unit spanning two Reads
}

func newUTF16Decoder(r io.Reader, bigEndian bool) *utf16Decoder {
	return &utf16Decoder{r: r, bigEndian: bigEndian}
}

func (d *utf16Decoder) Read(dst []byte) (int, error) {
	if len(d.pending) > 0 {
		n := copy(dst, d.pending)
		d.pending = d.pending[n:]
		return n, nil
	}

	raw := make([]byte, 4096)
	n, err := d.r.Read(raw)
	raw = append(d.rawTail, raw[:n]...)
	d.rawTail = nil

	if len(raw)%2 != 0 {
		d.rawTail = append(d.rawTail, raw[len(raw)-1])
		raw = raw[:len(raw)-1]
	}

	units := make([]uint16, len(raw)/2)
	for i := range units {
		if d.bigEndian {
			units[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
		} else {
			units[i] = uint16(raw[2*i+1])<<8 | uint16(raw[2*i])
		}
	}
	runes := utf16.Decode(units)
	d.pending = []byte(string(runes))

	m := copy(dst, d.pending)
	d.pending = d.pending[m:]

	if m == 0 && err != nil {
		return 0, err
	}
	return m, nil
}
