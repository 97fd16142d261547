package commands

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/lista-crm/sites-platform/internal/application/dto"
	"github.com/lista-crm/sites-platform/internal/application/errs"
	"github.com/lista-crm/sites-platform/internal/application/materializer"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
	"github.com/lista-crm/sites-platform/internal/infra/config"
	"github.com/lista-crm/sites-platform/internal/infra/db"
	"github.com/lista-crm/sites-platform/internal/infra/themes"
	dbs "github.com/lista-crm/sites-platform/pkg/db"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// CreateSite registers a site with its theme's default payload as version 1
// draft and a verified platform subdomain. Sites start unpublished.
type CreateSite struct {
	uowFactory *dbs.UOWFactory
	themes     *themes.Registry
	cfg        *config.PlatformConfig
}

func NewCreateSite(factory *dbs.UOWFactory, registry *themes.Registry, cfg *config.PlatformConfig) *CreateSite {
	return &CreateSite{uowFactory: factory, themes: registry, cfg: cfg}
}

func (c *CreateSite) Execute(ctx context.Context, req *dto.CreateSiteRequest) (dto.CreateSiteResponse, error) {
	if !slugPattern.MatchString(req.Slug) {
		return dto.CreateSiteResponse{}, fmt.Errorf("invalid slug %q", req.Slug)
	}
	if req.TenantID == "" {
		return dto.CreateSiteResponse{}, fmt.Errorf("tenant_id is required")
	}

	theme, err := c.themes.ThemeByKey(ctx, req.ThemeKey)
	if err != nil {
		return dto.CreateSiteResponse{}, err
	}
	if theme == nil {
		return dto.CreateSiteResponse{}, errs.NotFoundError{Err: fmt.Errorf("theme %q", req.ThemeKey)}
	}
	payload, err := c.themes.DefaultPayload(ctx, req.ThemeKey)
	if err != nil {
		return dto.CreateSiteResponse{}, errs.ConfigError{Err: err}
	}

	uow := c.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return dto.CreateSiteResponse{}, err
	}
	defer uow.Finalize(&err)

	now := time.Now()
	newSite := db.Site{
		TenantID: req.TenantID,
		ThemeID:  theme.ID,
		Slug:     req.Slug,
	}
	if req.ContactEmail != "" {
		newSite.ContactEmail = &req.ContactEmail
	}
	err = tx.QueryRow(ctx, `INSERT INTO platform.sites(tenant_id, theme_id, slug, contact_email, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		newSite.TenantID, newSite.ThemeID, newSite.Slug, newSite.ContactEmail, now, now).Scan(&newSite.ID)
	if err != nil {
		return dto.CreateSiteResponse{}, fmt.Errorf("insert failed: %v", err)
	}

	var draftID uint64
	err = tx.QueryRow(ctx, `INSERT INTO platform.site_versions(site_id, version, status, created_at, updated_at)
		VALUES ($1,1,$2,$3,$4) RETURNING id`,
		newSite.ID, consts.VersionStatusDraft, now, now).Scan(&draftID)
	if err != nil {
		return dto.CreateSiteResponse{}, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO platform.site_version_payloads(site_version_id, payload_json, checksum, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)`,
		draftID, payload, materializer.Checksum(payload), now, now)
	if err != nil {
		return dto.CreateSiteResponse{}, err
	}

	host := c.cfg.PlatformHost(req.Slug)
	verifiedAt := now
	_, err = tx.Exec(ctx, `INSERT INTO platform.site_domains(site_id, host, type, status, verified_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		newSite.ID, host, consts.DomainTypePlatformSubdomain, consts.DomainStatusVerified, verifiedAt, now)
	if err != nil {
		return dto.CreateSiteResponse{}, err
	}

	if err = uow.Commit(); err != nil {
		return dto.CreateSiteResponse{}, err
	}

	return dto.CreateSiteResponse{
		SiteID:  newSite.ID,
		Slug:    newSite.Slug,
		Host:    host,
		Version: 1,
	}, nil
}
