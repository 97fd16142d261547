package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lista-crm/sites-platform/internal/application/interfaces"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
	"github.com/lista-crm/sites-platform/internal/infra/db"
	shared "github.com/lista-crm/sites-platform/pkg/interfaces"
)

// DirectoryRepo serves the resolver's read path straight off the pool,
// without a unit of work. Resolution never writes the store.
type DirectoryRepo struct {
	pool *pgxpool.Pool
}

var _ interfaces.Directory = (*DirectoryRepo)(nil)

func NewDirectoryRepo(pool *pgxpool.Pool) *DirectoryRepo {
	return &DirectoryRepo{pool: pool}
}

func (d *DirectoryRepo) SiteByHost(ctx context.Context, host string) (*db.Site, error) {
	var site db.Site
	query := `SELECT s.id, s.tenant_id, s.theme_id, s.slug, s.published_version_id
		FROM platform.site_domains sd
		JOIN platform.sites s ON s.id = sd.site_id
		WHERE sd.host = $1 AND sd.status = $2`
	err := d.pool.QueryRow(ctx, query, host, consts.DomainStatusVerified).Scan(
		&site.ID, &site.TenantID, &site.ThemeID, &site.Slug, &site.PublishedVersionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("site by host %q: %w", host, err)
	}
	return &site, nil
}

func (d *DirectoryRepo) SiteBySlug(ctx context.Context, slug string) (*db.Site, error) {
	var site db.Site
	query := "SELECT id, tenant_id, theme_id, slug, published_version_id FROM platform.sites WHERE slug = $1"
	err := d.pool.QueryRow(ctx, query, slug).Scan(
		&site.ID, &site.TenantID, &site.ThemeID, &site.Slug, &site.PublishedVersionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("site by slug %q: %w", slug, err)
	}
	return &site, nil
}

func (d *DirectoryRepo) ThemeKey(ctx context.Context, themeID uint64) (string, error) {
	var key string
	err := d.pool.QueryRow(ctx, "SELECT key FROM platform.themes WHERE id = $1", themeID).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("theme %d: %w", themeID, err)
	}
	return key, nil
}

func (d *DirectoryRepo) VersionByID(ctx context.Context, id uint64) (*db.SiteVersion, error) {
	var version db.SiteVersion
	query := "SELECT id, site_id, version, status FROM platform.site_versions WHERE id = $1"
	err := d.pool.QueryRow(ctx, query, id).Scan(&version.ID, &version.SiteID, &version.Version, &version.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("site version %d: %w", id, err)
	}
	return &version, nil
}

func (d *DirectoryRepo) CurrentDraft(ctx context.Context, siteID uint64) (*db.SiteVersion, error) {
	var version db.SiteVersion
	query := `SELECT id, site_id, version, status FROM platform.site_versions
		WHERE site_id = $1 AND status = $2 ORDER BY version DESC LIMIT 1`
	err := d.pool.QueryRow(ctx, query, siteID, consts.VersionStatusDraft).Scan(
		&version.ID, &version.SiteID, &version.Version, &version.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("current draft of site %d: %w", siteID, err)
	}
	return &version, nil
}

// PreviewSessionVersion returns the version number pinned on a live preview
// session, or nil when the token is unknown, foreign or expired.
func (d *DirectoryRepo) PreviewSessionVersion(ctx context.Context, siteID uint64, token string, now time.Time) (*int, error) {
	var version int
	query := `SELECT sv.version FROM platform.preview_sessions ps
		JOIN platform.site_versions sv ON sv.id = ps.site_version_id
		WHERE ps.token = $1 AND ps.site_id = $2 AND ps.expires_at > $3`
	err := d.pool.QueryRow(ctx, query, token, siteID, now).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("preview session of site %d: %w", siteID, err)
	}
	return &version, nil
}

func (d *DirectoryRepo) VerifiedHosts(ctx context.Context, siteID uint64) ([]string, error) {
	rows, err := d.pool.Query(ctx,
		"SELECT host FROM platform.site_domains WHERE site_id = $1 AND status = $2",
		siteID, consts.DomainStatusVerified)
	if err != nil {
		return nil, fmt.Errorf("verified hosts of site %d: %w", siteID, err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, err
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

type EventRepo struct {
	tx pgx.Tx
}

var _ interfaces.EventRepo = (*EventRepo)(nil)

func NewEventRepo(tx pgx.Tx) *EventRepo {
	return &EventRepo{tx: tx}
}

func (e *EventRepo) InsertEvent(ctx context.Context, event shared.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("err marshalling event payload, %v", err)
	}
	outbox := db.Outbox{
		Event:     event.GetType(),
		Status:    int(consts.NotProcessed),
		Payload:   json.RawMessage(payload),
		CreatedAt: time.Now(),
	}
	_, err = e.tx.Exec(ctx, "INSERT INTO platform.outbox (event, status, payload, created_at) VALUES ($1,$2,$3,$4)",
		outbox.Event, outbox.Status, outbox.Payload, outbox.CreatedAt)
	if err != nil {
		return fmt.Errorf("err inserting a new event, %v", err)
	}

	return nil
}
