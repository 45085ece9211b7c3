// Package remote mirrors repositories from hosting platforms into a local
// directory so their files can be scanned like local ones.
package remote

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Repo identifies a repository on a platform.
type Repo struct {
	// Key is the handle the platform adapter uses in later calls.
	Key string

	// Name is used for the local mirror folder.
	Name string
}

// Branch is a branch name and the reference its contents are read at.
type Branch struct {
	Name string
	Ref  string
}

// Entry is one item of a remote directory listing.
type Entry struct {
	Name string
	Path string
	Dir  bool
}

// File is a downloaded file and the URL its raw content is served from.
type File struct {
	Content   []byte
	OriginURL string
}

// Platform is the subset of a hosting platform API needed for mirroring.
type Platform interface {
	Name() string
	GetRepo(ctx context.Context, id string) (*Repo, error)
	Branches(ctx context.Context, repo *Repo) ([]Branch, error)
	ListDirectory(ctx context.Context, repo *Repo, ref, path string) ([]Entry, error)
	FetchFile(ctx context.Context, repo *Repo, ref, path string) (*File, error)
}

func decodeContent(encoding, content string) ([]byte, error) {
	switch encoding {
	case "base64":
		data, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 content: %w", err)
		}
		return data, nil
	case "", "text":
		return []byte(content), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
