package remote

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"hashesdb/internal/config"
	"hashesdb/internal/hdb"
)

const defaultTimeout = 60 * time.Second

// NewPlatformFromConfig builds the adapter for a platform name, reading its token.
func NewPlatformFromConfig(platform string, cfg config.RemoteConfig, prompt Prompter, httpClient *http.Client) (Platform, error) {
	token, err := ReadToken(cfg.TokenFile, platform, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s token: %w", platform, err)
	}

	switch platform {
	case hdb.PlatformGitHub:
		return NewGitHub(token, cfg.BaseURL, httpClient)
	case hdb.PlatformGitLab:
		return NewGitLab(token, cfg.BaseURL, httpClient)
	default:
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}
}

// Lazy defers building a RemoteSource until the first download, so tokens
// are only requested when a scan actually has targets on the platform.
type Lazy struct {
	build  func() (hdb.RemoteSource, error)
	logger hdb.Logger

	once   sync.Once
	source hdb.RemoteSource
	err    error
}

func NewLazy(build func() (hdb.RemoteSource, error), logger hdb.Logger) *Lazy {
	if logger == nil {
		logger = hdb.NewNopLogger()
	}
	return &Lazy{build: build, logger: logger}
}

func (l *Lazy) Download(ctx context.Context, ids []string, root string, recursive bool) hdb.Resolution {
	l.once.Do(func() {
		l.source, l.err = l.build()
	})
	if l.err != nil {
		l.logger.Error("remote source unavailable, skipping targets", "targets", len(ids), "error", l.err)
		return hdb.Resolution{Failures: len(ids)}
	}
	return l.source.Download(ctx, ids, root, recursive)
}

// NewSourcesFromConfig returns a lazily built mirror for every supported platform.
func NewSourcesFromConfig(cfg *config.Config, prompt Prompter, logger hdb.Logger, clock hdb.Clock) map[string]hdb.RemoteSource {
	sources := make(map[string]hdb.RemoteSource, 2)
	for platform, rc := range map[string]config.RemoteConfig{
		hdb.PlatformGitHub: cfg.GitHub,
		hdb.PlatformGitLab: cfg.GitLab,
	} {
		sources[platform] = NewLazy(func() (hdb.RemoteSource, error) {
			p, err := NewPlatformFromConfig(platform, rc, prompt, nil)
			if err != nil {
				return nil, err
			}
			return NewMirror(p, cfg.Scan.Workers, logger, clock), nil
		}, logger)
	}
	return sources
}

var _ hdb.RemoteSource = (*Lazy)(nil)
