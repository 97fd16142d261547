package interfaces

import (
	"context"
	"time"

	"github.com/lista-crm/sites-platform/internal/infra/db"
	shared "github.com/lista-crm/sites-platform/pkg/interfaces"
)

// Directory is the read-only query surface of the tenant directory store used
// at request time. Lookups return (nil, nil) when no row matches so callers
// can tell absence from store failure.
type Directory interface {
	SiteByHost(ctx context.Context, host string) (*db.Site, error)
	SiteBySlug(ctx context.Context, slug string) (*db.Site, error)
	ThemeKey(ctx context.Context, themeID uint64) (string, error)
	VersionByID(ctx context.Context, id uint64) (*db.SiteVersion, error)
	CurrentDraft(ctx context.Context, siteID uint64) (*db.SiteVersion, error)
	PreviewSessionVersion(ctx context.Context, siteID uint64, token string, now time.Time) (*int, error)
	VerifiedHosts(ctx context.Context, siteID uint64) ([]string, error)
}

type EventRepo interface {
	InsertEvent(ctx context.Context, event shared.Event) error
}

// ObjectStore is the versioned content store the materializer writes and the
// streamer reads. Get returns errs.NotFoundError for a missing key.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType, cacheControl string) error
	Get(ctx context.Context, key string) ([]byte, error)
}
