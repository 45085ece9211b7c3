// Package hashing provides the streaming hash accumulators used by scans.
//
// Every algorithm is exposed through the same Accumulator shape: bytes are
// written in order and the final string-form value is taken once with Digest.
// Fixed-length digests are lowercase hex; fuzzy digests use the native text
// form of their library.
package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"sort"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// BlockSize is the read size used when streaming a file through accumulators.
const BlockSize = 4096

var (
	// ErrUnsupportedAlgorithm is returned when no implementation exists for a name.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

	// ErrFinalized is returned when an accumulator is used after Digest.
	ErrFinalized = errors.New("accumulator already finalized")
)

// Accumulator consumes bytes in order and produces one digest.
type Accumulator interface {
	io.Writer
	Digest() (string, error)
}

type algorithm struct {
	fuzzy bool
	new   func() (Accumulator, error)
}

var algorithms = map[string]algorithm{
	"md4":       fixedAlgorithm(md4.New),
	"md5":       fixedAlgorithm(md5.New),
	"sha1":      fixedAlgorithm(sha1.New),
	"sha224":    fixedAlgorithm(sha256.New224),
	"sha256":    fixedAlgorithm(sha256.New),
	"sha384":    fixedAlgorithm(sha512.New384),
	"sha512":    fixedAlgorithm(sha512.New),
	"sha3_224":  fixedAlgorithm(sha3.New224),
	"sha3_256":  fixedAlgorithm(sha3.New256),
	"sha3_384":  fixedAlgorithm(sha3.New384),
	"sha3_512":  fixedAlgorithm(sha3.New512),
	"ripemd160": fixedAlgorithm(ripemd160.New),
	"xxh64":     fixedAlgorithm(func() hash.Hash { return xxhash.New() }),
	"blake2b": {new: func() (Accumulator, error) {
		h, err := blake2b.New512(nil)
		if err != nil {
			return nil, fmt.Errorf("creating blake2b: %w", err)
		}
		return &fixed{h: h}, nil
	}},
	"blake2s": {new: func() (Accumulator, error) {
		h, err := blake2s.New256(nil)
		if err != nil {
			return nil, fmt.Errorf("creating blake2s: %w", err)
		}
		return &fixed{h: h}, nil
	}},
	"ssdeep": fuzzyAlgorithm(ssdeepDigest),
	"tlsh":   fuzzyAlgorithm(tlshDigest),
}

func fixedAlgorithm(fn func() hash.Hash) algorithm {
	return algorithm{new: func() (Accumulator, error) { return &fixed{h: fn()}, nil }}
}

func fuzzyAlgorithm(run func(io.Reader) (string, error)) algorithm {
	return algorithm{fuzzy: true, new: func() (Accumulator, error) { return newStreamed(run), nil }}
}

// New returns a fresh accumulator for the named algorithm.
// The content identifier is not available here; use NewContentIdentifier.
func New(name string) (Accumulator, error) {
	alg, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, name)
	}
	return alg.new()
}

// Supported reports whether New can construct the named algorithm.
func Supported(name string) bool {
	_, ok := algorithms[name]
	return ok
}

// IsFuzzy reports whether the named algorithm produces a similarity digest.
func IsFuzzy(name string) bool {
	return algorithms[name].fuzzy
}

// Names returns every implemented algorithm name in sorted order.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stream reads r in BlockSize chunks and feeds every chunk to each writer in order.
// It returns the number of bytes read.
func Stream(r io.Reader, writers ...io.Writer) (int64, error) {
	buf := make([]byte, BlockSize)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			for _, w := range writers {
				if _, werr := w.Write(buf[:n]); werr != nil {
					return total, werr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// fixed wraps a hash.Hash and hex-encodes its sum.
type fixed struct {
	h    hash.Hash
	done bool
}

func (f *fixed) Write(p []byte) (int, error) {
	if f.done {
		return 0, ErrFinalized
	}
	return f.h.Write(p)
}

func (f *fixed) Digest() (string, error) {
	if f.done {
		return "", ErrFinalized
	}
	f.done = true
	return hex.EncodeToString(f.h.Sum(nil)), nil
}
