package ooxml

import (
	"errors"
	"fmt"
)

var (
	// ErrPartMissing is returned when a required part is not in the package.
	ErrPartMissing = errors.New("part missing")
	// ErrNotPackage is returned when the input is not a zip container.
	ErrNotPackage = errors.New("not a zip package")
)

// ArchiveError describes a failure to read or write a package.
type ArchiveError struct {
	Op   string
	Path string
	Part string
	Err  error
}

func (e *ArchiveError) Error() string {
	where := e.Path
	if e.Part != "" {
		if where != "" {
			where += ":"
		}
		where += e.Part
	}
	if where == "" {
		return fmt.Sprintf("archive %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("archive %s %s: %v", e.Op, where, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }
