package pkg

import (
	"io"
	"sync"
)

// bufferPool holds reusable byte slices sized to the configured
// buffer_size. Modeled directly on the teacher's recordPool/fieldPool
// sync.Pool globals in pkg/fastcsv.go — the same idiom, generalized to
// the whole scan buffer instead of just the field scratch buffer.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 0, 64*1024)
	},
}

func getPooledBuffer(size int) []byte {
	b := bufferPool.Get().([]byte)
	if cap(b) < size {
		b = make([]byte, 0, size)
	}
	return b[:0]
}

func putPooledBuffer(b []byte) {
	bufferPool.Put(b[:0])
}

var errFieldTooLong = &Fault{Kind: KindFieldTooLong}

// bufReader owns a single pooled byte buffer (C4). It refills on
// demand from the underlying source and compacts unread data when
// space is needed at the tail. Every compaction or reallocation
// increments generation, invalidating any fieldSpan that still points
// at the stale backing array — the buffer-generation invariant from
// spec section 3.
//
// Scanning in progress on an unfinished field pins a "mark": the
// offset of the field's first byte. Compaction and growth preserve
// everything from mark forward (not just from the read cursor
// forward), which is what lets a multiline quoted field survive a
// refill without losing the bytes already scanned into it. A caller
// not mid-field sets mark equal to pos, so compaction behaves like an
// ordinary ring-buffer shift.
type bufReader struct {
	src        io.Reader
	buf        []byte
	pos        int // read cursor, index into buf
	size       int // number of valid bytes in buf (buf[:size])
	mark       int // earliest offset still needed; <= pos
	generation uint64
	eof        bool
	fillErr    error // non-EOF error from the last fill attempt (e.g. FieldTooLong, a real I/O error)
	maxGrow    int64 // max_quoted_field_length; 0 = unlimited
	bytesIn    int64 // bytes delivered by src so far (post-decompression)
}

func newBufReader(src io.Reader, bufferSize int, maxGrow int64) *bufReader {
	return &bufReader{
		src:     src,
		buf:     getPooledBuffer(bufferSize)[:bufferSize],
		maxGrow: maxGrow,
	}
}

func (b *bufReader) release() {
	if b.buf != nil {
		putPooledBuffer(b.buf)
		b.buf = nil
	}
}

// unread returns the number of buffered, not-yet-consumed bytes.
func (b *bufReader) unread() int { return b.size - b.pos }

// setMark pins the buffer so bytes from the current cursor position
// onward survive compaction/growth; call before scanning a field.
func (b *bufReader) setMark() { b.mark = b.pos }

// clearMark releases the pin once a field has been fully emitted.
func (b *bufReader) clearMark() { b.mark = b.pos }

// compact moves buf[mark:size] to the front of the buffer, freeing
// space at the end for a refill. Bumps generation.
func (b *bufReader) compact() {
	if b.mark == 0 {
		return
	}
	shift := b.mark
	n := copy(b.buf[:cap(b.buf)], b.buf[b.mark:b.size])
	b.size = n
	b.pos -= shift
	b.mark = 0
	b.generation++
}

// grow doubles buffer capacity (bounded by maxGrow, when set) to make
// room for a field — typically a multiline quoted field — that does
// not fit in one buffer_size. Bumps generation because the backing
// array itself changes.
func (b *bufReader) grow() error {
	newCap := cap(b.buf) * 2
	if newCap == 0 {
		newCap = 64 * 1024
	}
	if b.maxGrow > 0 && int64(newCap) > b.maxGrow {
		newCap = int(b.maxGrow)
		if newCap <= cap(b.buf) {
			return errFieldTooLong
		}
	}
	nb := make([]byte, newCap)
	shift := b.mark
	n := copy(nb, b.buf[b.mark:b.size])
	putPooledBuffer(b.buf)
	b.buf = nb[:cap(nb)]
	b.size = n
	b.pos -= shift
	b.mark = 0
	b.generation++
	return nil
}

// fill reads more bytes from src, compacting or growing the buffer
// first if there isn't room. Returns the number of new bytes read.
// io.EOF is returned (with n possibly > 0) once the source is
// exhausted; subsequent fill calls keep returning (0, io.EOF).
func (b *bufReader) fill() (int, error) {
	if b.eof {
		if b.fillErr != nil {
			return 0, b.fillErr
		}
		return 0, io.EOF
	}
	if len(b.buf)-b.size == 0 {
		if b.mark > 0 {
			b.compact()
		}
		if len(b.buf)-b.size == 0 {
			if err := b.grow(); err != nil {
				b.eof = true
				b.fillErr = err
				return 0, err
			}
		}
	}
	n, err := b.src.Read(b.buf[b.size:len(b.buf)])
	b.size += n
	b.bytesIn += int64(n)
	if err != nil {
		b.eof = true
		if err != io.EOF {
			b.fillErr = err
		}
		return n, err
	}
	return n, nil
}

// fillError returns the non-EOF error (if any) that stopped the last
// fill, e.g. a FieldTooLong Fault from grow() or a wrapped I/O error
// from the source. nil means the stream just reached clean EOF.
func (b *bufReader) fillError() error { return b.fillErr }

// ensureLookahead guarantees at least n unread bytes are available
// (for multi-character delimiter comparisons, or simply "one more
// byte") unless EOF is reached first. Returns false only when EOF cuts
// the stream short of n bytes.
func (b *bufReader) ensureLookahead(n int) bool {
	for b.unread() < n && !b.eof {
		if _, err := b.fill(); err != nil && err != io.EOF {
			return false
		}
	}
	return b.unread() >= n
}

// byteAt returns the byte n positions ahead of the cursor, filling as
// needed. ok is false at EOF.
func (b *bufReader) byteAt(n int) (c byte, ok bool) {
	if !b.ensureLookahead(n + 1) {
		return 0, false
	}
	return b.buf[b.pos+n], true
}

func (b *bufReader) current() (byte, bool) { return b.byteAt(0) }

func (b *bufReader) advance(n int) { b.pos += n }

// span captures a zero-copy reference to buf[lo:hi) tagged with the
// current generation. lo/hi are absolute offsets into the current buf
// — valid because callers always derive them from mark/pos after any
// shift has already happened, never cached across a fill call.
func (b *bufReader) span(lo, hi int) fieldSpan {
	return fieldSpan{buf: b.buf, lo: lo, hi: hi, generation: b.generation}
}
