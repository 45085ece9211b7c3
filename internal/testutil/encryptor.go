package testutil

import (
	"hashesdb/internal/encryption"
	"hashesdb/internal/hdb"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() hdb.Encryptor {
	return encryption.NewTestEncryptor()
}
