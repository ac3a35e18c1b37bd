package shape

import (
	"errors"
	"fmt"
)

// ErrNoCRS indicates the layer has no .prj companion declaring its CRS.
var ErrNoCRS = errors.New("shape: layer declares no coordinate reference system")

// ReadError indicates the layer could not be read past a given record.
type ReadError struct {
	Layer string
	Index int
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("shape: read %s after record %d: %v", e.Layer, e.Index, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
