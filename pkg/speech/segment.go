package speech

import (
	"bytes"
	"io"
	"slices"
	"sync"
	"unicode"
	"unicode/utf8"

	"google.golang.org/api/iterator"
)

// SentenceStream cuts text into speakable sentences as it is written. A
// producer Writes model output a delta at a time and calls Finish when the
// response ends; a consumer pulls completed sentences with Next, which
// returns iterator.Done after the final remainder.
//
// The first sentence is cut at the earliest boundary so the first clip can
// start playing as soon as possible; later sentences are cut at the latest
// buffered boundary to keep clips from fragmenting.
type SentenceStream struct {
	maxRunes int

	mu          sync.Mutex
	closed      bool
	finished    bool
	firstOut    bool
	err         error
	writeNotify chan struct{}
	finishOnce  sync.Once
	buf         *bytes.Buffer
}

// DefaultMaxSentenceRunes caps a single sentence when the text carries no
// boundary at all.
const DefaultMaxSentenceRunes = 256

// NewSentenceStream creates a stream. maxRunes caps sentence length; zero
// means DefaultMaxSentenceRunes.
func NewSentenceStream(maxRunes int) *SentenceStream {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxSentenceRunes
	}
	return &SentenceStream{
		maxRunes:    maxRunes,
		writeNotify: make(chan struct{}, 1),
		buf:         bytes.NewBuffer(nil),
	}
}

// Segment consumes r in a goroutine and returns the resulting stream.
func Segment(r io.Reader, maxRunes int) *SentenceStream {
	s := NewSentenceStream(maxRunes)
	go func() {
		if _, err := io.Copy(s, r); err != nil {
			s.closeWithError(err)
			return
		}
		s.Finish()
	}()
	return s
}

// Sentences segments a complete text with the same boundary rules as the
// stream. maxRunes zero means DefaultMaxSentenceRunes.
func Sentences(text string, maxRunes int) []string {
	s := NewSentenceStream(maxRunes)
	s.WriteString(text)
	s.Finish()
	var out []string
	for {
		seg, err := s.Next()
		if err != nil {
			return out
		}
		out = append(out, seg)
	}
}

func (s *SentenceStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.finished {
		return 0, io.ErrClosedPipe
	}
	n, err := s.buf.Write(p)
	if err != nil {
		return n, err
	}
	s.notify()
	return n, nil
}

// WriteString appends a text delta.
func (s *SentenceStream) WriteString(text string) (int, error) {
	return s.Write([]byte(text))
}

// Finish marks the end of input. Buffered text still drains through Next.
func (s *SentenceStream) Finish() {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.finished = true
		s.mu.Unlock()
		close(s.writeNotify)
	})
}

func (s *SentenceStream) notify() {
	select {
	case s.writeNotify <- struct{}{}:
	default:
	}
}

// nextRunes returns the complete runes at the head of the buffer, capped at
// maxRunes. When move is set the returned bytes are consumed.
func (s *SentenceStream) nextRunes(move bool) (b []byte, full bool) {
	if move {
		defer func() { s.buf.Next(len(b)) }()
	}
	b = s.buf.Bytes()
	b = b[:lastRuneIndex(b)]
	if rs := []rune(string(b)); len(rs) >= s.maxRunes {
		b = []byte(string(rs[:s.maxRunes]))
		full = true
	}
	return
}

// Next blocks until a sentence is available. It returns iterator.Done after
// Finish once the buffer drains, or the error passed to closeWithError.
func (s *SentenceStream) Next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.firstOut = true }()

	eof := false
	for {
		if s.closed {
			if s.err != nil {
				return "", s.err
			}
			return "", iterator.Done
		}
		if eof {
			if s.buf.Len() > 0 {
				b, _ := s.nextRunes(true)
				return string(b), nil
			}
			return "", iterator.Done
		}
		if b, full := s.nextRunes(false); len(b) > 0 {
			var idx int
			if s.firstOut {
				idx = lastSentenceBoundary(b)
			} else {
				idx = firstSentenceBoundary(b)
			}
			switch {
			case idx > 0:
				s.buf.Next(idx)
				return string(b[:idx]), nil
			case full:
				s.buf.Next(len(b))
				return string(b), nil
			}
		}
		s.mu.Unlock()
		_, ok := <-s.writeNotify
		eof = !ok
		s.mu.Lock()
	}
}

// Close abandons the stream; pending Next calls return iterator.Done.
func (s *SentenceStream) Close() {
	s.closeWithError(nil)
}

func (s *SentenceStream) closeWithError(err error) {
	s.mu.Lock()
	s.closed = true
	s.err = err
	s.buf.Reset()
	s.mu.Unlock()
	s.Finish()
}

// lastRuneIndex returns the byte length of b truncated to complete runes.
func lastRuneIndex(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < utf8.RuneSelf {
			return i + 1
		}
		if !utf8.RuneStart(b[i]) {
			continue
		}
		r, sz := utf8.DecodeRune(b[i:])
		if r != utf8.RuneError {
			return i + sz
		}
		return i
	}
	return 0
}

// isBoundary reports whether r ends a sentence. Dots, colons and commas
// between digits are not boundaries, so 9.9 and 10:30 survive.
func isBoundary(r, prev, next rune) bool {
	switch r {
	case '.', ':', ',', '：':
		if unicode.IsNumber(next) && unicode.IsNumber(prev) {
			return false
		}
		return true
	case '，', '；', '。', '？', '！', '…', '～',
		'?', '!', '¿', '¡', ';', '~',
		'\r', '\n', '„', '・':
		return true
	}
	return false
}

// firstSentenceBoundary returns the byte index just past the first boundary
// rune, or 0 when there is none.
func firstSentenceBoundary(b []byte) int {
	rs := []rune(string(b[:lastRuneIndex(b)]))
	n := 0
	for i, r := range rs {
		n += utf8.RuneLen(r)
		prev, next := '0', '0'
		if i > 0 {
			prev = rs[i-1]
		}
		if i < len(rs)-1 {
			next = rs[i+1]
		}
		if isBoundary(r, prev, next) {
			return n
		}
	}
	return 0
}

// lastSentenceBoundary returns the byte index just past the last boundary
// rune, or 0 when there is none.
func lastSentenceBoundary(b []byte) int {
	it := lastRuneIndex(b)
	rs := []rune(string(b[:it]))
	n := 0
	for i, r := range slices.Backward(rs) {
		prev, next := '0', '0'
		if i > 0 {
			prev = rs[i-1]
		}
		if i < len(rs)-1 {
			next = rs[i+1]
			n += utf8.RuneLen(next)
		}
		if isBoundary(r, prev, next) {
			return it - n
		}
	}
	return 0
}
