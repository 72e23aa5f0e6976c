package pkg

import "sync"

// terminator describes why nextField stopped scanning.
type terminator int

const (
	termDelimiter terminator = iota
	termRecordEnd
	termEOF
)

// scratchPool backs the rewrite buffer a field needs when it contains
// a doubled quote or a lenient-mode recovery substitution — the one
// case spec section 4.3 calls out as not zero-copy. Same sync.Pool
// idiom as the teacher's fieldPool.
var scratchPool = sync.Pool{
	New: func() interface{} { return make([]byte, 0, 256) },
}

func getScratch() []byte  { return scratchPool.Get().([]byte)[:0] }
func putScratch(b []byte) { scratchPool.Put(b[:0]) }

// smart-quote code points (spec section 4.3), encoded as their UTF-8
// byte sequences so the byte-driven tokenizer can match them without
// decoding runes.
var (
	smartLeftDouble  = []byte{0xE2, 0x80, 0x9C} // “
	smartRightDouble = []byte{0xE2, 0x80, 0x9D} // ”
	smartLeftSingle  = []byte{0xE2, 0x80, 0x98} // ‘
	smartRightSingle = []byte{0xE2, 0x80, 0x99} // ’
)

// tokenizer is the byte-driven state machine described in spec section
// 4.3. It scans directly against the shared bufReader, producing
// zero-copy field spans by default and falling back to a scratch
// buffer only when a field needs rewriting.
type tokenizer struct {
	br          *bufReader
	cfg         *Config
	pol         *errorPolicy
	line        int64
	col         int
	atLineStart bool
}

func newTokenizer(br *bufReader, cfg *Config, pol *errorPolicy) *tokenizer {
	return &tokenizer{br: br, cfg: cfg, pol: pol, line: 1, atLineStart: true}
}

func (t *tokenizer) fault(kind Kind, recordIdx int64, fieldIdx int, snippet string) Fault {
	return Fault{Kind: kind, Record: recordIdx, Field: fieldIdx, Line: t.line, Column: t.col + 1, Snippet: snippet}
}

// quoteLen reports how many bytes at the cursor form a quote token:
// 1 for the configured ASCII quote byte, 3 for a recognized smart
// quote sequence when normalize_smart_quotes is enabled, else 0.
func (t *tokenizer) quoteLen() int {
	b, ok := t.br.current()
	if !ok {
		return 0
	}
	if b == t.cfg.Quote {
		return 1
	}
	if !t.cfg.NormalizeSmartQuotes {
		return 0
	}
	if b != 0xE2 {
		return 0
	}
	for _, seq := range [][]byte{smartLeftDouble, smartRightDouble, smartLeftSingle, smartRightSingle} {
		if t.matches(seq) {
			return 3
		}
	}
	return 0
}

// matches reports whether seq occurs at the current cursor position,
// without consuming it.
func (t *tokenizer) matches(seq []byte) bool {
	if !t.br.ensureLookahead(len(seq)) {
		return false
	}
	for i, want := range seq {
		if t.br.buf[t.br.pos+i] != want {
			return false
		}
	}
	return true
}

// matchesDelimiter reports whether the configured (possibly
// multi-byte) delimiter occurs at the cursor.
func (t *tokenizer) matchesDelimiter() bool { return t.matches(t.cfg.Delimiter) }

// lineTerminatorLen reports the length of a line terminator (CRLF, LF,
// or bare CR) at the cursor, or 0 if none is present.
func (t *tokenizer) lineTerminatorLen() int {
	b, ok := t.br.current()
	if !ok || (b != '\r' && b != '\n') {
		return 0
	}
	if b == '\r' {
		if nxt, ok := t.br.byteAt(1); ok && nxt == '\n' {
			return 2
		}
	}
	return 1
}

func (t *tokenizer) advanceLineTracking(n int, consumedTerminator bool) {
	t.br.advance(n)
	if consumedTerminator {
		t.line++
		t.col = 0
		t.atLineStart = true
	} else {
		t.col += n
	}
}

// skipLeadingWhitespace advances over spaces/tabs at StartOfField when the
// trimming policy calls for it; it never crosses a delimiter or line
// terminator.
func (t *tokenizer) skipLeadingWhitespace() {
	if t.cfg.Trimming != TrimUnquotedOnly && t.cfg.Trimming != TrimAll {
		return
	}
	for {
		b, ok := t.br.current()
		if !ok || (b != ' ' && b != '\t') {
			return
		}
		if t.matchesDelimiter() || t.lineTerminatorLen() > 0 {
			return
		}
		t.advanceLineTracking(1, false)
	}
}

// tryCommentLine discards a comment line when the cursor sits at the
// very first character of a logical line (record start) and that
// character is the configured comment byte. Returns true if a comment
// line was consumed.
func (t *tokenizer) tryCommentLine() bool {
	if t.cfg.Comment == 0 || !t.atLineStart {
		return false
	}
	b, ok := t.br.current()
	if !ok || b != t.cfg.Comment {
		return false
	}
	for {
		b, ok := t.br.current()
		if !ok {
			return true
		}
		if n := t.lineTerminatorLen(); n > 0 {
			t.advanceLineTracking(n, true)
			return true
		}
		t.advanceLineTracking(1, false)
		_ = b
	}
}

// atEOF reports whether the stream has nothing left at all.
func (t *tokenizer) atEOF() bool {
	_, ok := t.br.current()
	return !ok
}

// skipToLineEnd discards bytes up to and including the next line
// terminator (or EOF), used by the skip_line error-policy resolution
// to resynchronize after a tokenizer fault mid-record.
func (t *tokenizer) skipToLineEnd() {
	for {
		if t.atEOF() {
			return
		}
		if n := t.lineTerminatorLen(); n > 0 {
			t.advanceLineTracking(n, true)
			return
		}
		t.advanceLineTracking(1, false)
	}
}

// checkFillError reports a non-EOF fault (FieldTooLong from an
// over-long field, or a wrapped I/O error from the source) that
// stopped the buffer from refilling, distinguishing it from a clean
// end of stream. Returns nil when the stream simply ran out of data.
func (t *tokenizer) checkFillError(recordIdx int64, fieldIdx int) error {
	fe := t.br.fillError()
	if fe == nil {
		return nil
	}
	if f, ok := fe.(*Fault); ok {
		return &Fault{Kind: f.Kind, Record: recordIdx, Field: fieldIdx, Line: t.line, Column: t.col + 1, Cause: f.Cause}
	}
	return &Fault{Kind: KindIo, Record: recordIdx, Field: fieldIdx, Line: t.line, Column: t.col + 1, Cause: fe}
}

// nextField scans one field starting at the cursor. recordIdx/fieldIdx
// are used only to annotate faults. eof is true when there was no data
// left to start a field (only meaningful as the first field of a
// prospective new record).
func (t *tokenizer) nextField(recordIdx int64, fieldIdx int) (span fieldSpan, term terminator, eof bool, err error) {
	if t.atEOF() {
		if ferr := t.checkFillError(recordIdx, fieldIdx); ferr != nil {
			return fieldSpan{}, termEOF, false, ferr
		}
		return fieldSpan{isNull: true}, termEOF, true, nil
	}

	t.skipLeadingWhitespace()

	if t.matchesDelimiter() {
		t.advanceLineTracking(len(t.cfg.Delimiter), false)
		t.atLineStart = false
		return t.emptyFieldSpan(), termDelimiter, false, nil
	}
	if n := t.lineTerminatorLen(); n > 0 {
		t.advanceLineTracking(n, true)
		return t.emptyFieldSpan(), termRecordEnd, false, nil
	}

	if ql := t.quoteLen(); ql > 0 {
		t.atLineStart = false
		return t.scanQuotedField(recordIdx, fieldIdx, ql)
	}

	t.atLineStart = false
	return t.scanUnquotedField(recordIdx, fieldIdx)
}

func (t *tokenizer) emptyFieldSpan() fieldSpan {
	if t.cfg.DistinguishEmptyFromNull {
		return fieldSpan{isNull: true}
	}
	return fieldSpan{buf: t.br.buf, lo: t.br.pos, hi: t.br.pos}
}

func (t *tokenizer) scanUnquotedField(recordIdx int64, fieldIdx int) (fieldSpan, terminator, bool, error) {
	t.br.setMark()
	for {
		if t.matchesDelimiter() {
			sp := t.br.span(t.br.mark, t.br.pos)
			t.advanceLineTracking(len(t.cfg.Delimiter), false)
			t.br.clearMark()
			return t.finishUnquoted(sp), termDelimiter, false, nil
		}
		if n := t.lineTerminatorLen(); n > 0 {
			sp := t.br.span(t.br.mark, t.br.pos)
			t.advanceLineTracking(n, true)
			t.br.clearMark()
			return t.finishUnquoted(sp), termRecordEnd, false, nil
		}
		if t.atEOF() {
			if ferr := t.checkFillError(recordIdx, fieldIdx); ferr != nil {
				t.br.clearMark()
				return fieldSpan{}, termEOF, false, ferr
			}
			sp := t.br.span(t.br.mark, t.br.pos)
			t.br.clearMark()
			return t.finishUnquoted(sp), termEOF, false, nil
		}
		// A quote appearing mid-field (not at field start, which is
		// routed to scanQuotedField instead) is just data.
		t.advanceLineTracking(1, false)
	}
}

func (t *tokenizer) finishUnquoted(sp fieldSpan) fieldSpan {
	if sp.lo == sp.hi {
		return t.emptyFieldSpanFromRange(sp)
	}
	if t.cfg.Trimming == TrimAll || t.cfg.Trimming == TrimUnquotedOnly {
		// leading whitespace was already skipped; unquoted trailing
		// trim happens here since the field end wasn't known earlier.
		lo, hi := sp.lo, sp.hi
		for hi > lo && isSpaceByte(sp.buf[hi-1]) {
			hi--
		}
		sp.hi = hi
	}
	if t.matchesNullLiteral(sp) {
		return fieldSpan{isNull: true}
	}
	return sp
}

func (t *tokenizer) emptyFieldSpanFromRange(sp fieldSpan) fieldSpan {
	if t.cfg.DistinguishEmptyFromNull {
		return fieldSpan{isNull: true}
	}
	return sp
}

func isSpaceByte(b byte) bool { return b == ' ' || b == '\t' }

func (t *tokenizer) matchesNullLiteral(sp fieldSpan) bool {
	if t.cfg.NullValue == nil {
		return false
	}
	return string(sp.bytes()) == *t.cfg.NullValue
}

// scanQuotedField implements the InQuotedField / QuoteInQuotedField
// states: doubled-quote escape, strict-mode MalformedQuote faults, and
// lenient-mode best-effort recovery.
func (t *tokenizer) scanQuotedField(recordIdx int64, fieldIdx int, openLen int) (fieldSpan, terminator, bool, error) {
	t.advanceLineTracking(openLen, false) // consume opening quote
	t.br.setMark()

	scratch := getScratch()
	rewritten := false

	// appendSeg always reads t.br.mark fresh rather than a cached
	// offset: a compaction/grow triggered by lookahead between two
	// calls shifts mark (and every live offset) by the same amount,
	// so mark is the only offset guaranteed to still be correct.
	appendSeg := func(end int) {
		if end > t.br.mark {
			scratch = append(scratch, t.br.buf[t.br.mark:end]...)
		}
	}
	for {
		if t.atEOF() {
			if ferr := t.checkFillError(recordIdx, fieldIdx); ferr != nil {
				putScratch(scratch)
				t.br.clearMark()
				return fieldSpan{}, termEOF, false, ferr
			}
			appendSeg(t.br.pos)
			if t.cfg.QuoteMode == QuoteStrict {
				putScratch(scratch)
				t.br.clearMark()
				return fieldSpan{}, termEOF, false, &Fault{Kind: KindMalformedQuote, Record: recordIdx, Field: fieldIdx, Line: t.line, Column: t.col + 1, Snippet: "unterminated quoted field"}
			}
			sp := t.finishQuoted(scratch, rewritten, t.br.pos)
			t.br.clearMark()
			return sp, termEOF, false, nil
		}

		if ql := t.quoteLen(); ql > 0 {
			// contentLen is the distance from mark to the quote,
			// captured as a length rather than an absolute offset so
			// it survives any compaction/grow triggered by the
			// lookahead calls below (both mark and pos shift by the
			// same amount, so their difference never changes).
			contentLen := t.br.pos - t.br.mark
			appendSeg(t.br.pos)
			t.advanceLineTracking(ql, false)

			if ql2 := t.quoteLen(); ql2 > 0 {
				// doubled-quote escape: append one literal quote byte
				// and continue the field.
				scratch = append(scratch, t.cfg.Quote)
				rewritten = true
				t.advanceLineTracking(ql2, false)
				t.br.setMark()
				continue
			}

			// Closing quote. What follows must be a delimiter, a line
			// terminator, or EOF in strict mode.
			if t.matchesDelimiter() {
				sp := t.finishQuoted(scratch, rewritten, t.br.mark+contentLen)
				t.br.clearMark()
				t.advanceLineTracking(len(t.cfg.Delimiter), false)
				return sp, termDelimiter, false, nil
			}
			if n := t.lineTerminatorLen(); n > 0 {
				sp := t.finishQuoted(scratch, rewritten, t.br.mark+contentLen)
				t.br.clearMark()
				t.advanceLineTracking(n, true)
				return sp, termRecordEnd, false, nil
			}
			if t.atEOF() {
				sp := t.finishQuoted(scratch, rewritten, t.br.mark+contentLen)
				t.br.clearMark()
				return sp, termEOF, false, nil
			}

			if t.cfg.QuoteMode == QuoteStrict {
				putScratch(scratch)
				t.br.clearMark()
				return fieldSpan{}, termRecordEnd, false, &Fault{Kind: KindMalformedQuote, Record: recordIdx, Field: fieldIdx, Line: t.line, Column: t.col + 1, Snippet: "unexpected character after closing quote"}
			}
			// Lenient recovery: treat the stray closing quote as data
			// and keep scanning the field instead of ending it.
			scratch = append(scratch, t.cfg.Quote)
			rewritten = true
			t.pol.recordAlteration(Alteration{Record: recordIdx, Kind: KindMalformedQuote, Description: AltBareQuote})
			t.br.setMark()
			continue
		}

		if t.cfg.QuoteMode == QuoteLenient {
			// backslash + quote is tolerated as an embedded quote in
			// lenient mode.
			if b, ok := t.br.current(); ok && b == '\\' {
				if nxt, ok := t.br.byteAt(1); ok && (nxt == t.cfg.Quote) {
					appendSeg(t.br.pos)
					scratch = append(scratch, t.cfg.Quote)
					rewritten = true
					t.advanceLineTracking(2, false)
					t.br.setMark()
					continue
				}
			}
		}

		if n := t.lineTerminatorLen(); n > 0 {
			// A line break inside quotes is field data, but it still
			// ends a physical line.
			t.br.advance(n)
			t.line++
			t.col = 0
			continue
		}

		t.advanceLineTracking(1, false)
	}
}

// finishQuoted builds the final fieldSpan for a quoted field. end is
// the buffer offset of the character immediately after the field's
// content (i.e. where the closing quote begins), captured by the
// caller before mark gets cleared or pos advances past the quote.
func (t *tokenizer) finishQuoted(scratch []byte, rewritten bool, end int) fieldSpan {
	if !rewritten {
		sp := t.br.span(t.br.mark, end)
		putScratch(scratch)
		if sp.lo == sp.hi && !t.cfg.DistinguishEmptyFromNull {
			return sp
		}
		if sp.lo == sp.hi {
			// "" is always empty string, never null, per spec 4.3.
			return sp
		}
		return t.trimQuoted(sp)
	}
	owned := make([]byte, len(scratch))
	copy(owned, scratch)
	putScratch(scratch)
	return t.trimQuoted(fieldSpan{owned: owned})
}

func (t *tokenizer) trimQuoted(sp fieldSpan) fieldSpan {
	if t.cfg.Trimming != TrimQuotedOnly && t.cfg.Trimming != TrimAll {
		return sp
	}
	b := sp.bytes()
	lo, hi := 0, len(b)
	for lo < hi && isSpaceByte(b[lo]) {
		lo++
	}
	for hi > lo && isSpaceByte(b[hi-1]) {
		hi--
	}
	if lo == 0 && hi == len(b) {
		return sp
	}
	if sp.owned != nil {
		sp.owned = sp.owned[lo:hi]
		return sp
	}
	sp.lo += lo
	sp.hi = sp.lo + (hi - lo)
	return sp
}
