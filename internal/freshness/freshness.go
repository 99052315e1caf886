// Package freshness extracts the most recent timestamp found in a status log.
package freshness

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// LineFormat specifies where the timestamp of a status log line lives
type LineFormat uint32

const (
	// SuffixFormat reads the integer right after the first `]` of a line
	SuffixFormat LineFormat = iota
	// BracketedFormat reads the integer enclosed by the first `[` and `]` of a
	// line (e.g. `[1700000000] PROGRAM_RESTART`)
	BracketedFormat
)

// String returns a string representation of the current LineFormat
func (f LineFormat) String() string {
	switch f {
	case SuffixFormat:
		return "suffix"
	case BracketedFormat:
		return "bracketed"
	default:
		return "<Unknown>"
	}
}

// ParseLineFormat returns the LineFormat with the given name
func ParseLineFormat(name string) (LineFormat, error) {
	switch strings.ToLower(name) {
	case "", "suffix":
		return SuffixFormat, nil
	case "bracketed":
		return BracketedFormat, nil
	default:
		return SuffixFormat, fmt.Errorf("unknown line format %q", name)
	}
}

// OpenError is reported when the status log cannot be opened for reading
type OpenError struct {
	path string
	err  error
}

// Error returns an error message
func (err *OpenError) Error() string {
	return fmt.Sprintf("cannot open status log for reading: %s", err.path)
}

// Unwrap returns the error returned by the operating system
func (err *OpenError) Unwrap() error {
	return err.err
}

// KVs returns a metadata map for structured logging
func (err *OpenError) KVs() map[string]interface{} {
	return map[string]interface{}{
		"status_log.path":  err.path,
		"status_log.error": err.err.Error(),
	}
}

// ReadFile opens the status log at path and returns the latest timestamp it
// contains. The file is only read. When reading fails after the file was
// opened, the latest timestamp scanned so far is returned with the error.
func ReadFile(path string, format LineFormat) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &OpenError{path: path, err: err}
	}
	defer f.Close()

	latest, err := Latest(f, format)
	if err != nil {
		return latest, fmt.Errorf("failed to read status log %s: %w", path, err)
	}
	return latest, nil
}

// Latest scans every line of r and returns the largest timestamp found, or 0
// when no line carries one. On a read error the largest timestamp scanned
// before the error is returned with it.
func Latest(r io.Reader, format LineFormat) (uint64, error) {
	var latest uint64
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if ts := ParseLine(line, format); ts > latest {
				latest = ts
			}
		}
		if err == io.EOF {
			return latest, nil
		}
		if err != nil {
			return latest, err
		}
	}
}

// ParseLine returns the timestamp of a single status log line. Lines without
// a `]` delimiter or with non-numeric text yield 0.
func ParseLine(line string, format LineFormat) uint64 {
	idx := strings.IndexByte(line, ']')
	if idx < 0 {
		return 0
	}
	if format == BracketedFormat {
		head := line[:idx]
		open := strings.IndexByte(head, '[')
		if open < 0 {
			return 0
		}
		return ParseUint(head[open+1:])
	}
	return ParseUint(line[idx+1:])
}

// ParseUint reads a base-10 unsigned integer from the start of s the way
// strtoul does: leading blanks are skipped, an optional `+` is accepted and
// parsing stops at the first non-digit. It never fails; text without digits
// and negative numbers yield 0, values that overflow saturate.
func ParseUint(s string) uint64 {
	i := 0
	for i < len(s) && isBlank(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '+' {
		i++
	}

	var n uint64
	for ; i < len(s); i++ {
		d := s[i]
		if d < '0' || d > '9' {
			break
		}
		digit := uint64(d - '0')
		if n > (math.MaxUint64-digit)/10 {
			return math.MaxUint64
		}
		n = n*10 + digit
	}
	return n
}

func isBlank(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}
