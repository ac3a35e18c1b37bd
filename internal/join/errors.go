package join

import (
	"errors"
	"fmt"
)

// ErrStopped is the abort cause when the consumer stops ranging over a
// stream without reporting a failure of its own.
var ErrStopped = errors.New("join: stream stopped by consumer")

// Stage names the step a record failed in.
type Stage int

const (
	StageRead Stage = iota
	StageReproject
	StageAssemble
	StageEmit
)

func (s Stage) String() string {
	switch s {
	case StageRead:
		return "read"
	case StageReproject:
		return "reproject"
	case StageAssemble:
		return "assemble"
	case StageEmit:
		return "emit"
	default:
		return "unknown"
	}
}

// RecordError is the cause of an aborted stream.
type RecordError struct {
	Index int // record index in the source, -1 when unknown
	Stage Stage
	Err   error
}

func (e *RecordError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("record %d: %s failed: %v", e.Index, e.Stage, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// HeightError indicates a height attribute that cannot be read as an integer.
type HeightError struct {
	Value any
}

func (e *HeightError) Error() string {
	return fmt.Sprintf("invalid height %#v", e.Value)
}
