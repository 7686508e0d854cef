// Package covers serves catalog item artwork: cache first, then one
// authenticated download from the remote store.
package covers

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"acervo/internal/auth"
	"acervo/internal/cache"
	"acervo/internal/catalog"
)

// ErrNoCover is returned for items that fall back to a theme gradient.
var ErrNoCover = errors.New("covers: item has no cover image")

// Downloader is the slice of the drive client the service consumes.
type Downloader interface {
	Download(ctx context.Context, credential, ref string) ([]byte, error)
}

type Service struct {
	downloader Downloader
	auth       *auth.Manager
	cache      *cache.ByteCache
	logger     zerolog.Logger
}

func NewService(downloader Downloader, authMgr *auth.Manager, capacity int, maxSizeBytes int64, logger zerolog.Logger) *Service {
	s := &Service{
		downloader: downloader,
		auth:       authMgr,
		cache:      cache.NewByteCache(capacity, maxSizeBytes),
		logger:     logger,
	}
	// Stale covers must not survive a sign-out.
	authMgr.OnExpired(s.cache.Clear)
	return s
}

// Get returns the cover image bytes for an item.
func (s *Service) Get(ctx context.Context, item catalog.Item) ([]byte, error) {
	if item.CoverImageRef == "" {
		return nil, ErrNoCover
	}

	if data, ok := s.cache.Get(item.ID); ok {
		s.logger.Debug().Str("id", item.ID).Msg("cover from cache")
		return data, nil
	}

	data, err := s.downloader.Download(ctx, s.auth.Credential(), item.CoverImageRef)
	if err != nil {
		return nil, err
	}

	s.cache.Set(item.ID, data)
	s.logger.Debug().Str("id", item.ID).Int("size", len(data)).Msg("cover downloaded")
	return data, nil
}
