package hashing

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/glaslos/ssdeep"
	"github.com/glaslos/tlsh"
)

// ErrNotComparable is returned by Compare for algorithms without a similarity measure.
var ErrNotComparable = errors.New("hash algorithm has no similarity measure")

func init() {
	// Hash inputs of any size; small source files are the common case.
	ssdeep.Force = true
}

type fuzzyResult struct {
	value string
	err   error
}

// streamed feeds written bytes through a pipe to a library hashing function
// running in its own goroutine, so the input is never held in memory.
type streamed struct {
	pw     *io.PipeWriter
	result chan fuzzyResult
	done   bool
}

func newStreamed(run func(io.Reader) (string, error)) *streamed {
	pr, pw := io.Pipe()
	s := &streamed{pw: pw, result: make(chan fuzzyResult, 1)}
	go func() {
		value, err := run(pr)
		// unblock writers if run stopped reading early
		pr.CloseWithError(ErrFinalized)
		s.result <- fuzzyResult{value: value, err: err}
	}()
	return s
}

func (s *streamed) Write(p []byte) (int, error) {
	if s.done {
		return 0, ErrFinalized
	}
	return s.pw.Write(p)
}

func (s *streamed) Digest() (string, error) {
	if s.done {
		return "", ErrFinalized
	}
	s.done = true
	s.pw.Close()
	r := <-s.result
	return r.value, r.err
}

func ssdeepDigest(r io.Reader) (string, error) {
	value, err := ssdeep.FuzzyReader(r)
	if err != nil {
		return "", fmt.Errorf("computing ssdeep: %w", err)
	}
	return value, nil
}

func tlshDigest(r io.Reader) (string, error) {
	t, err := tlsh.HashReader(fullReader{bufio.NewReaderSize(r, BlockSize)})
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", errors.New("computing tlsh: empty input")
		}
		return "", fmt.Errorf("computing tlsh: %w", err)
	}
	return t.String(), nil
}

// fullReader fills the whole buffer on Read when data remains, so the digest
// does not depend on how writes were split.
type fullReader struct {
	*bufio.Reader
}

func (r fullReader) Read(p []byte) (int, error) {
	n, err := io.ReadFull(r.Reader, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	return n, err
}

const tlshDigestLen = 3 + 32

// parseTlsh reverses Tlsh.String: swapped checksum, swapped length, q ratios, body.
func parseTlsh(s string) (*tlsh.Tlsh, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding tlsh digest: %w", err)
	}
	if len(raw) != tlshDigestLen {
		return nil, fmt.Errorf("tlsh digest has %d bytes, want %d", len(raw), tlshDigestLen)
	}
	var code [32]byte
	copy(code[:], raw[3:])
	qRatio := raw[2]
	return tlsh.New(swapNibbles(raw[0]), swapNibbles(raw[1]), qRatio>>4, qRatio&0x0F, qRatio, code), nil
}

func swapNibbles(b byte) byte {
	return b<<4 | b>>4
}

// Compare scores two digests produced by the same fuzzy algorithm.
// For ssdeep the score is a 0-100 similarity; for tlsh it is a distance where 0 is identical.
func Compare(name, a, b string) (int, error) {
	switch name {
	case "ssdeep":
		score, err := ssdeep.Distance(a, b)
		if err != nil {
			return 0, fmt.Errorf("comparing ssdeep digests: %w", err)
		}
		return score, nil
	case "tlsh":
		ta, err := parseTlsh(a)
		if err != nil {
			return 0, fmt.Errorf("parsing tlsh digest %q: %w", a, err)
		}
		tb, err := parseTlsh(b)
		if err != nil {
			return 0, fmt.Errorf("parsing tlsh digest %q: %w", b, err)
		}
		return ta.Diff(tb), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrNotComparable, name)
	}
}

// HigherIsCloser reports whether larger Compare scores mean more similar input.
func HigherIsCloser(name string) bool {
	return name != "tlsh"
}

// WithinLimit reports whether score passes a user supplied threshold for the algorithm.
func WithinLimit(name string, score, limit int) bool {
	if HigherIsCloser(name) {
		return score >= limit
	}
	return score <= limit
}
