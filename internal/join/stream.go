package join

import (
	"errors"
	"iter"
)

// State is the lifecycle of a Stream.
type State int

const (
	// StateRunning: records are still being produced.
	StateRunning State = iota
	// StateCompleted: the source was exhausted.
	StateCompleted
	// StateAborted: a failure ended the stream early. Terminal.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the terminal status of a stream.
type Outcome struct {
	State State
	// Err is the abort cause, nil unless State is StateAborted.
	Err error
}

// Aborted reports whether the stream stopped early.
func (o Outcome) Aborted() bool {
	return o.State == StateAborted
}

// Stream is a single pass of a Joiner over a Source.
type Stream struct {
	j       *Joiner
	src     Source
	state   State
	err     error
	stats   Stats
	started bool
}

// All returns the features of the stream in source order. Only the first
// range produces anything. After the range ends, Outcome tells a finished
// stream from an aborted one.
func (s *Stream) All() iter.Seq[Feature] {
	return s.run
}

// Abort ends a running stream with cause. Consumers call it when they
// cannot handle a yielded feature, e.g. when writing it fails; the range
// should be left right after. Aborting a finished stream does nothing.
func (s *Stream) Abort(cause error) {
	if s.state != StateRunning {
		return
	}
	var re *RecordError
	if !errors.As(cause, &re) {
		cause = &RecordError{Index: s.lastIndex(), Stage: StageEmit, Err: cause}
	}
	s.abort(cause)
}

// Outcome returns the current state and abort cause.
func (s *Stream) Outcome() Outcome {
	return Outcome{State: s.state, Err: s.err}
}

// Stats returns the record counters so far.
func (s *Stream) Stats() Stats {
	return s.stats
}

func (s *Stream) run(yield func(Feature) bool) {
	if s.started {
		return
	}
	s.started = true

	for s.state == StateRunning {
		if !s.src.Next() {
			if err := s.src.Err(); err != nil {
				s.abort(&RecordError{Index: -1, Stage: StageRead, Err: err})
				return
			}
			s.state = StateCompleted
			return
		}

		rec := s.src.Record()
		s.stats.Read++

		f, ok, err := s.j.process(rec, &s.stats)
		if err != nil {
			s.abort(err)
			return
		}
		if !ok {
			continue
		}

		s.stats.Yielded++
		if !yield(f) {
			if s.state == StateRunning {
				s.abort(&RecordError{Index: rec.Index, Stage: StageEmit, Err: ErrStopped})
			}
			return
		}
	}
}

func (s *Stream) abort(cause error) {
	s.state = StateAborted
	s.err = cause

	attrs := []any{"err", cause, "read", s.stats.Read, "yielded", s.stats.Yielded}
	var re *RecordError
	if errors.As(cause, &re) {
		attrs = append(attrs, "stage", re.Stage.String(), "index", re.Index)
	}
	s.j.logger.Error("failed to write feature, stopping", attrs...)
}

func (s *Stream) lastIndex() int {
	if s.stats.Read == 0 {
		return -1
	}
	return s.src.Record().Index
}
