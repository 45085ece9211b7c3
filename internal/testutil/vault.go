package testutil

import (
	"hashesdb/internal/hdb"
	"hashesdb/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() hdb.Vault {
	return vault.NewMemoryVault("test-vault")
}
