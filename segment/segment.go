// Package segment provides naming, numbering, and existence helpers
// for on-disk sorted runs, following the same fmtSST*Path-style naming
// helpers the teacher uses in storage/sstable.go -- adapted from a
// per-table-directory-of-three-files layout to this spec's single
// "segment-<n>.data" file per segment.
package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/elbow-jason/lsmt-elixir/errs"
)

const (
	prefix = "segment-"
	suffix = ".data"
)

// Filename returns the canonical filename for segment id n.
func Filename(n int) string {
	return fmt.Sprintf("%s%d%s", prefix, n, suffix)
}

// Path returns the full path to segment id n inside dir.
func Path(dir string, n int) string {
	return filepath.Join(dir, Filename(n))
}

// IsSegmentFile is a total predicate: true iff name matches the
// segment-<decimal_integer>.data grammar.
func IsSegmentFile(name string) bool {
	_, err := Num(name)
	return err == nil
}

// Num parses the integer id out of a segment filename, raising
// invalid_segment_filename if name does not match the grammar.
func Num(name string) (int, error) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return 0, &errs.InvalidSegmentFilename{Name: name}
	}
	digits := name[len(prefix) : len(name)-len(suffix)]
	if digits == "" {
		return 0, &errs.InvalidSegmentFilename{Name: name}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, &errs.InvalidSegmentFilename{Name: name}
	}
	return n, nil
}

// EnsureExists creates the segment file for nOrName if it does not
// already exist, and returns its path. nOrName may be either a
// segment id (int) or a filename (string).
func EnsureExists(dir string, nOrName any) (string, error) {
	var p string
	switch v := nOrName.(type) {
	case int:
		p = Path(dir, v)
	case string:
		if _, err := Num(v); err != nil {
			return "", err
		}
		p = filepath.Join(dir, v)
	default:
		return "", fmt.Errorf("segment: EnsureExists expects an int id or a filename, got %T", nOrName)
	}

	if _, err := os.Stat(p); err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return "", err
		}
		f.Close()
	}
	return p, nil
}
