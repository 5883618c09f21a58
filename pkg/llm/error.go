package llm

import "errors"

// ErrDone reports normal end of stream. Terminal stream errors wrap it (or a
// real cause) in a *State carrying final usage.
var ErrDone = errors.New("llm: done")

// Status classifies how a stream ended.
type Status int

const (
	StatusOK        Status = iota // still streaming
	StatusDone                    // finished normally
	StatusTruncated               // hit the token limit
	StatusBlocked                 // stopped by a content filter
	StatusError                   // provider or transport failure
)

// State is the terminal error of a Stream. errors.Is(err, ErrDone) holds for
// normal completion; Usage is valid in every case.
type State struct {
	usage  Usage
	status Status
	err    error
}

// Done reports normal completion.
func Done(usage Usage) *State {
	return &State{usage: usage, status: StatusDone, err: ErrDone}
}

// Truncated reports that generation stopped at the token limit.
func Truncated(usage Usage) *State {
	return &State{usage: usage, status: StatusTruncated, err: errors.New("llm: truncated")}
}

// Blocked reports that a content filter stopped generation. The refusal text
// is kept in the error message when the provider gave one.
func Blocked(usage Usage, refusal string) *State {
	msg := "llm: blocked"
	if refusal != "" {
		msg += ": " + refusal
	}
	return &State{usage: usage, status: StatusBlocked, err: errors.New(msg)}
}

// Failed wraps a provider or transport error as a terminal state.
func Failed(usage Usage, err error) *State {
	return &State{usage: usage, status: StatusError, err: err}
}

func (s *State) Usage() Usage   { return s.usage }
func (s *State) Status() Status { return s.status }
func (s *State) Unwrap() error  { return s.err }
func (s *State) Error() string  { return s.err.Error() }
