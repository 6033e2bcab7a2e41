// Package errs collects the structured error kinds raised across the
// codec, streams, segment, and tree packages. Each kind is its own
// exported type so callers can branch on it with errors.As instead of
// string matching.
package errs

import "fmt"

// InvalidSegmentFilename is raised when a name does not match the
// segment-<int>.data grammar.
type InvalidSegmentFilename struct {
	Name string
}

func (e *InvalidSegmentFilename) Error() string {
	return fmt.Sprintf("invalid segment filename %q", e.Name)
}

// UnknownTag is raised when the first byte of a frame is not a
// recognized codec tag.
type UnknownTag struct {
	Tag byte
}

func (e *UnknownTag) Error() string {
	return fmt.Sprintf("unknown codec tag %#x", e.Tag)
}

// InvalidFloatEncoding is raised when a byte-ordered float64 payload
// cannot be decoded back into a float64.
type InvalidFloatEncoding struct {
	Bytes []byte
}

func (e *InvalidFloatEncoding) Error() string {
	return fmt.Sprintf("invalid float encoding: %x", e.Bytes)
}

// SymbolNotInterned is raised when a symbol frame names an identifier
// that has no entry in the symbol table.
type SymbolNotInterned struct {
	Name string
}

func (e *SymbolNotInterned) Error() string {
	return fmt.Sprintf("symbol %q is not interned", e.Name)
}

// StreamError wraps a decode error encountered while streaming a file.
type StreamError struct {
	Path  string
	Inner error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error reading %q: %v", e.Path, e.Inner)
}

func (e *StreamError) Unwrap() error {
	return e.Inner
}

// FileIsIncomplete is raised when a segment or WAL file ends with an
// unpaired term (an odd number of decoded terms) or with a truncated
// frame.
type FileIsIncomplete struct {
	Path string
}

func (e *FileIsIncomplete) Error() string {
	return fmt.Sprintf("file %q is incomplete: ended with an unpaired term or a truncated frame", e.Path)
}

// SelfMerge is raised when tree.Merge is called with a == b.
type SelfMerge struct {
	ID int
}

func (e *SelfMerge) Error() string {
	return fmt.Sprintf("cannot merge segment %d with itself", e.ID)
}

// OutOfOrderMerge is raised when tree.Merge is called with a > b.
type OutOfOrderMerge struct {
	A, B int
}

func (e *OutOfOrderMerge) Error() string {
	return fmt.Sprintf("merge requires older < newer, got older=%d newer=%d", e.A, e.B)
}
