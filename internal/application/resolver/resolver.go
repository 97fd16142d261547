package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lista-crm/sites-platform/internal/application/errs"
	"github.com/lista-crm/sites-platform/internal/application/interfaces"
	"github.com/lista-crm/sites-platform/internal/infra/cache"
	"github.com/lista-crm/sites-platform/internal/infra/config"
	"github.com/lista-crm/sites-platform/internal/infra/db"
)

const (
	hostKeyPrefix    = "site_host:"
	previewKeyPrefix = "preview_token:"

	hostPositiveTTL = 300 * time.Second
	hostNegativeTTL = 60 * time.Second
	previewTTL      = 60 * time.Second
)

// SiteRecord is the routing identity of a site, assembled once per cache
// window and shared by the gateway and the internal resolve endpoint.
type SiteRecord struct {
	ID                     uint64  `json:"id"`
	TenantID               string  `json:"tenant_id"`
	Slug                   string  `json:"slug"`
	ThemeKey               string  `json:"theme_key"`
	PublishedVersionID     *uint64 `json:"published_version_id"`
	PublishedVersionNumber *int    `json:"published_version_number"`
	DraftVersionID         *uint64 `json:"draft_version_id"`
	DraftVersionNumber     *int    `json:"draft_version_number"`
}

// Resolver maps hostnames to site records and preview tokens to pinned draft
// versions, cache-aside in front of the directory store.
type Resolver struct {
	directory interfaces.Directory
	cfg       *config.PlatformConfig
	hosts     *cache.CacheAside[SiteRecord]
	previews  *cache.CacheAside[int]
	now       func() time.Time
}

func New(directory interfaces.Directory, cfg *config.PlatformConfig, c cache.Cache) *Resolver {
	return &Resolver{
		directory: directory,
		cfg:       cfg,
		hosts:     cache.NewCacheAside[SiteRecord](c, hostPositiveTTL, hostNegativeTTL),
		previews:  cache.NewCacheAside[int](c, previewTTL, previewTTL),
		now:       time.Now,
	}
}

// Resolve returns the site record for a hostname or (nil, nil) for an
// unknown host. A verified custom domain wins over the slug wildcard.
// The lookup is read-only against the store; only the cache is written.
func (r *Resolver) Resolve(ctx context.Context, host string) (*SiteRecord, error) {
	return r.hosts.Lookup(ctx, HostKey(host), func(ctx context.Context) (*SiteRecord, error) {
		site, err := r.directory.SiteByHost(ctx, host)
		if err != nil {
			return nil, err
		}

		if site == nil {
			slug, ok := ParseSlugFromHost(host, r.cfg.PlatformDomain)
			if !ok {
				return nil, nil
			}
			site, err = r.directory.SiteBySlug(ctx, slug)
			if err != nil {
				return nil, err
			}
		}
		if site == nil {
			return nil, nil
		}

		return r.buildSiteRecord(ctx, site)
	})
}

func (r *Resolver) buildSiteRecord(ctx context.Context, site *db.Site) (*SiteRecord, error) {
	record := SiteRecord{
		ID:                 site.ID,
		TenantID:           site.TenantID,
		Slug:               site.Slug,
		PublishedVersionID: site.PublishedVersionID,
	}

	themeKey, err := r.directory.ThemeKey(ctx, site.ThemeID)
	if err != nil {
		return nil, err
	}
	record.ThemeKey = themeKey

	if site.PublishedVersionID != nil {
		published, err := r.directory.VersionByID(ctx, *site.PublishedVersionID)
		if err != nil {
			return nil, err
		}
		if published != nil {
			record.PublishedVersionNumber = &published.Version
		}
	}

	draft, err := r.directory.CurrentDraft(ctx, site.ID)
	if err != nil {
		return nil, err
	}
	if draft != nil {
		record.DraftVersionID = &draft.ID
		record.DraftVersionNumber = &draft.Version
	}

	return &record, nil
}

// ValidatePreviewToken returns the version number a preview token authorizes
// for the given site. An unknown, foreign or expired token is an
// errs.InvalidCredentialError. The session stays pinned to the version it
// was issued against even after the draft rotates.
func (r *Resolver) ValidatePreviewToken(ctx context.Context, siteID uint64, token string) (*int, error) {
	version, err := r.previews.Lookup(ctx, PreviewKey(token), func(ctx context.Context) (*int, error) {
		return r.directory.PreviewSessionVersion(ctx, siteID, token, r.now())
	})
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, errs.InvalidCredentialError{Err: fmt.Errorf("preview token for site %d", siteID)}
	}
	return version, nil
}

// InvalidateHosts drops host cache entries after a publish so the next
// request observes the new published pointer without waiting out the TTL.
func (r *Resolver) InvalidateHosts(ctx context.Context, hosts ...string) {
	keys := make([]string, 0, len(hosts))
	for _, host := range hosts {
		keys = append(keys, HostKey(host))
	}
	r.hosts.Invalidate(ctx, keys...)
}

func HostKey(host string) string {
	return hostKeyPrefix + host
}

func PreviewKey(token string) string {
	return previewKeyPrefix + token
}

// ParseSlugFromHost extracts the slug from {slug}.{platformDomain}. A slug
// containing a dot is rejected so nested subdomains never resolve.
func ParseSlugFromHost(host, platformDomain string) (string, bool) {
	suffix := "." + platformDomain
	if !strings.HasSuffix(host, suffix) {
		return "", false
	}
	slug := strings.TrimSuffix(host, suffix)
	if slug == "" || strings.Contains(slug, ".") {
		return "", false
	}
	return slug, true
}

// BuildHost is the inverse of ParseSlugFromHost.
func BuildHost(slug, platformDomain string) string {
	return slug + "." + platformDomain
}
