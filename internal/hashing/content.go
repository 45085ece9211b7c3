package hashing

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// ContentIdentifier is the registry name of the intrinsic content identifier.
const ContentIdentifier = "swhid"

const contentIDPrefix = "swh:1:cnt:"

// contentID is the git blob hash of the content, which must be known in size up front.
type contentID struct {
	h        hash.Hash
	expected int64
	written  int64
	done     bool
}

// NewContentIdentifier returns an accumulator for a content of exactly size bytes.
// Digest fails if a different number of bytes was written.
func NewContentIdentifier(size int64) Accumulator {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", size)
	return &contentID{h: h, expected: size}
}

func (c *contentID) Write(p []byte) (int, error) {
	if c.done {
		return 0, ErrFinalized
	}
	n, err := c.h.Write(p)
	c.written += int64(n)
	return n, err
}

func (c *contentID) Digest() (string, error) {
	if c.done {
		return "", ErrFinalized
	}
	c.done = true
	if c.written != c.expected {
		return "", fmt.Errorf("content length changed while reading: expected %d bytes, read %d", c.expected, c.written)
	}
	return contentIDPrefix + hex.EncodeToString(c.h.Sum(nil)), nil
}

// ContentID computes the content identifier of r, which must yield exactly size bytes.
func ContentID(r io.Reader, size int64) (string, error) {
	acc := NewContentIdentifier(size)
	if _, err := Stream(r, acc); err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	return acc.Digest()
}
