package testutil

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// ContentIdentifier returns the archive content identifier of data, computed
// independently of the hashing package.
func ContentIdentifier(data []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return "swh:1:cnt:" + hex.EncodeToString(h.Sum(nil))
}

// MD5Hex returns the MD5 checksum of data as a lowercase hex string.
func MD5Hex(data []byte) string {
	h := md5.Sum(data)
	return hex.EncodeToString(h[:])
}
