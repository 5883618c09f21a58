package agents

import (
	"log/slog"
	"strings"

	"github.com/edvora/minerva/pkg/llm"
	"github.com/edvora/minerva/pkg/store"
)

// trailerPrefix marks a control line in a streamed reply. The line carries
// JSON and is consumed here, never spoken.
const trailerPrefix = "@@"

// controlTrailer is the JSON payload of a control line.
type controlTrailer struct {
	Handoff        string        `json:"handoff,omitempty"`
	HandoffMessage string        `json:"handoff_message,omitempty"`
	Diagram        string        `json:"diagram,omitempty"`
	LessonComplete bool          `json:"lesson_complete,omitempty"`
	Evidence       []evidenceArg `json:"evidence,omitempty"`
}

// evidenceArg mirrors store.Evidence in the model-facing wire format.
type evidenceArg struct {
	Type    string  `json:"type"`
	Content string  `json:"content,omitempty"`
	Quality float64 `json:"quality"`
}

func (e evidenceArg) evidence() store.Evidence {
	return store.Evidence{
		Type:    store.EvidenceType(e.Type),
		Content: e.Content,
		Quality: e.Quality,
	}
}

// apply copies the trailer's signals onto a response.
func (t *controlTrailer) apply(resp *Response) {
	resp.HandoffTarget = t.Handoff
	resp.HandoffMessage = t.HandoffMessage
	if t.Diagram != "" {
		resp.Diagram = t.Diagram
	}
	if t.LessonComplete {
		resp.LessonComplete = true
	}
	for _, e := range t.Evidence {
		resp.Evidence = append(resp.Evidence, e.evidence())
	}
}

// trailerScanner splits a streamed reply into spoken text and control
// lines. Text flows through emit with minimal holdback: only a line that
// may still turn into a control line is buffered.
type trailerScanner struct {
	emit      func(string)
	pend      strings.Builder
	lineStart bool
	control   string
	hasCtrl   bool
}

func newTrailerScanner(emit func(string)) *trailerScanner {
	return &trailerScanner{emit: emit, lineStart: true}
}

// Write feeds one text delta through the scanner.
func (s *trailerScanner) Write(text string) {
	for text != "" {
		nl := strings.IndexByte(text, '\n')
		if nl < 0 {
			s.pend.WriteString(text)
			s.flushPend(false)
			return
		}
		s.pend.WriteString(text[:nl+1])
		line := s.pend.String()
		s.pend.Reset()
		if s.lineStart && strings.HasPrefix(line, trailerPrefix) {
			s.setControl(line)
		} else {
			s.emit(line)
		}
		s.lineStart = true
		text = text[nl+1:]
	}
}

// flushPend emits the pending partial line unless it may still become a
// control line. At end of stream a held control line is captured.
func (s *trailerScanner) flushPend(eof bool) {
	p := s.pend.String()
	if p == "" {
		return
	}
	if s.lineStart && possibleTrailer(p) {
		if !eof {
			return
		}
		if strings.HasPrefix(p, trailerPrefix) {
			s.setControl(p)
			s.pend.Reset()
			return
		}
	}
	s.emit(p)
	s.pend.Reset()
	s.lineStart = false
}

// Close drains the pending tail. Call once, after the last Write.
func (s *trailerScanner) Close() {
	s.flushPend(true)
}

func (s *trailerScanner) setControl(line string) {
	// A later control line wins; the model emits at most one.
	s.control = strings.TrimSuffix(strings.TrimPrefix(line, trailerPrefix), "\n")
	s.hasCtrl = true
}

// Control parses the captured control line. An unparseable line is logged
// and dropped rather than spoken.
func (s *trailerScanner) Control() (*controlTrailer, bool) {
	if !s.hasCtrl {
		return nil, false
	}
	var t controlTrailer
	if err := llm.Unmarshal([]byte(s.control), &t); err != nil {
		slog.Warn("agents: bad control trailer", "line", s.control, "err", err)
		return nil, false
	}
	return &t, true
}

// possibleTrailer reports whether p is a prefix of a control line.
func possibleTrailer(p string) bool {
	if len(p) < len(trailerPrefix) {
		return trailerPrefix[:len(p)] == p
	}
	return strings.HasPrefix(p, trailerPrefix)
}
