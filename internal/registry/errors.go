package registry

import (
	"fmt"
)

// MissingColumnError indicates the registry header lacks a required column
type MissingColumnError struct {
	Path   string
	Column string
}

func (e *MissingColumnError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("registry: missing column %q", e.Column)
	}
	return fmt.Sprintf("registry %s: missing column %q", e.Path, e.Column)
}

// UnknownEncodingError indicates the configured character set is not recognised
type UnknownEncodingError struct {
	Name string
}

func (e *UnknownEncodingError) Error() string {
	return fmt.Sprintf("registry: unknown encoding %q", e.Name)
}
