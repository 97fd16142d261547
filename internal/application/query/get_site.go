package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lista-crm/sites-platform/internal/application/dto"
	"github.com/lista-crm/sites-platform/internal/application/errs"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
)

type GetSite struct {
	pool *pgxpool.Pool
}

func NewGetSite(pool *pgxpool.Pool) *GetSite {
	return &GetSite{pool: pool}
}

func (q *GetSite) Query(ctx context.Context, siteID uint64) (dto.GetSiteResponse, error) {
	resp := dto.GetSiteResponse{SiteID: siteID}

	var publishedVersionID *uint64
	err := q.pool.QueryRow(ctx, `SELECT s.tenant_id, s.slug, t.key, s.published_version_id
		FROM platform.sites s
		JOIN platform.themes t ON t.id = s.theme_id
		WHERE s.id = $1`, siteID).Scan(&resp.TenantID, &resp.Slug, &resp.ThemeKey, &publishedVersionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dto.GetSiteResponse{}, errs.NotFoundError{Err: fmt.Errorf("site %d", siteID)}
		}
		return dto.GetSiteResponse{}, err
	}

	if publishedVersionID != nil {
		var view dto.SiteVersionView
		err = q.pool.QueryRow(ctx, "SELECT id, version, status FROM platform.site_versions WHERE id = $1",
			*publishedVersionID).Scan(&view.ID, &view.Version, &view.Status)
		if err != nil {
			return dto.GetSiteResponse{}, err
		}
		resp.PublishedVersion = &view
	}

	var draft dto.SiteVersionView
	err = q.pool.QueryRow(ctx, `SELECT id, version, status FROM platform.site_versions
		WHERE site_id = $1 AND status = $2 ORDER BY version DESC LIMIT 1`,
		siteID, consts.VersionStatusDraft).Scan(&draft.ID, &draft.Version, &draft.Status)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return dto.GetSiteResponse{}, err
	}
	if err == nil {
		resp.DraftVersion = &draft
	}

	rows, err := q.pool.Query(ctx, "SELECT host, type, status FROM platform.site_domains WHERE site_id = $1 ORDER BY id", siteID)
	if err != nil {
		return dto.GetSiteResponse{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var domain dto.SiteDomainView
		if err := rows.Scan(&domain.Host, &domain.Type, &domain.Status); err != nil {
			return dto.GetSiteResponse{}, err
		}
		resp.Domains = append(resp.Domains, domain)
	}

	return resp, rows.Err()
}
