// Package asureerr collects the flat error vocabulary shared by every
// asure package: format/structure/traversal/diff/escape failures that
// callers may want to match with errors.Is or errors.As.
package asureerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors. Compare with errors.Is.
var (
	ErrRootMustBeDir     = errors.New("root must be a directory")
	ErrUnknownDirectory  = errors.New("unknown directory specified")
	ErrFileNotInDirectory = errors.New("file not in directory")
	ErrPathMissingFinalFile = errors.New("path missing final file component")

	ErrEmptyLeftIterator  = errors.New("empty left iterator")
	ErrEmptyRightIterator = errors.New("empty right iterator")
	ErrUnexpectedLeftNode  = errors.New("unexpected node in left tree")
	ErrUnexpectedRightNode = errors.New("unexpected node in right tree")
	ErrIncorrectName       = errors.New("incorrect name of root tree")

	ErrTruncatedSurefile = errors.New("truncated surefile")
	ErrEmptyWeave        = errors.New("weave file is empty")
	ErrSurefileEOF       = errors.New("unexpected eof on surefile")

	ErrDiffKilled = errors.New("diff killed by signal")

	ErrNameMissing    = errors.New(`no "name" tag given`)
	ErrAlreadyClosed  = errors.New("writer already closed")
	ErrUnexpectedEOF  = errors.New("unexpected end of weave file")

	ErrTaggedVersionsUnsupported = errors.New("tagged versions not supported with plain files")
)

// UnexpectedLineError reports a framing line that did not match what the
// reader expected (§4.D of the design).
type UnexpectedLineError struct {
	Got, Expected string
}

func (e *UnexpectedLineError) Error() string {
	return fmt.Sprintf("unexpected line: %q, expected %q", e.Got, e.Expected)
}

// InvalidSurefileCharError reports a body line that did not begin with
// one of 'd', 'f', '-', 'u'.
type InvalidSurefileCharError struct {
	Char byte
}

func (e *InvalidSurefileCharError) Error() string {
	return fmt.Sprintf("invalid surefile line start: %q", e.Char)
}

// InvalidHexCharacterError reports a non-hex-digit byte following '=' in
// an escaped token.
type InvalidHexCharacterError struct {
	Byte byte
}

func (e *InvalidHexCharacterError) Error() string {
	return fmt.Sprintf("invalid hex character: %q", e.Byte)
}

// InvalidHexLengthError reports a dangling '=' or '=X' at end of input.
type InvalidHexLengthError struct{}

func (e *InvalidHexLengthError) Error() string {
	return "invalid hex length"
}

// DiffError reports a non-zero, non-"differences found" exit from the
// external diff program.
type DiffError struct {
	Code int
}

func (e *DiffError) Error() string {
	return fmt.Sprintf("diff returned error status: %d", e.Code)
}

// Wrap attaches call-site context to err the way github.com/pkg/errors
// does throughout this module's I/O boundaries; nil in, nil out.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}
