package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lista-crm/sites-platform/internal/application/dto"
	"github.com/lista-crm/sites-platform/internal/application/errs"
	"github.com/lista-crm/sites-platform/internal/application/events"
	"github.com/lista-crm/sites-platform/internal/application/interfaces"
	"github.com/lista-crm/sites-platform/internal/application/materializer"
	"github.com/lista-crm/sites-platform/internal/application/resolver"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
	"github.com/lista-crm/sites-platform/internal/infra/config"
	"github.com/lista-crm/sites-platform/internal/infra/db"
	"github.com/lista-crm/sites-platform/internal/infra/db/repo"
	"github.com/lista-crm/sites-platform/internal/infra/mail"
	dbs "github.com/lista-crm/sites-platform/pkg/db"
)

const uniqueViolation = "23505"

// PublishSite promotes the current draft to published in one transaction,
// rotates a fresh draft and busts the host cache so the next request sees
// the new published pointer. Materialization runs out-of-band.
type PublishSite struct {
	uowFactory *dbs.UOWFactory
	directory  interfaces.Directory
	resolver   *resolver.Resolver
	cfg        *config.PlatformConfig
}

func NewPublishSite(factory *dbs.UOWFactory, directory interfaces.Directory, res *resolver.Resolver, cfg *config.PlatformConfig) *PublishSite {
	return &PublishSite{uowFactory: factory, directory: directory, resolver: res, cfg: cfg}
}

func (c *PublishSite) Execute(ctx context.Context, siteID uint64) (dto.PublishSiteResponse, error) {
	uow := c.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return dto.PublishSiteResponse{}, err
	}
	defer uow.Finalize(&err)

	var site db.Site
	err = tx.QueryRow(ctx, "SELECT id, tenant_id, theme_id, slug, contact_email FROM platform.sites WHERE id = $1", siteID).Scan(
		&site.ID, &site.TenantID, &site.ThemeID, &site.Slug, &site.ContactEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dto.PublishSiteResponse{}, errs.NotFoundError{Err: fmt.Errorf("site %d", siteID)}
		}
		return dto.PublishSiteResponse{}, err
	}

	var draft db.SiteVersion
	var payload db.SiteVersionPayload
	err = tx.QueryRow(ctx, `SELECT sv.id, sv.version, svp.payload_json
		FROM platform.site_versions sv
		JOIN platform.site_version_payloads svp ON svp.site_version_id = sv.id
		WHERE sv.site_id = $1 AND sv.status = $2
		ORDER BY sv.version DESC LIMIT 1`, siteID, consts.VersionStatusDraft).Scan(
		&draft.ID, &draft.Version, &payload.PayloadJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dto.PublishSiteResponse{}, errs.NotFoundError{Err: fmt.Errorf("no draft version for site %d", siteID)}
		}
		return dto.PublishSiteResponse{}, err
	}

	now := time.Now()
	_, err = tx.Exec(ctx, "UPDATE platform.site_versions SET status = $1, updated_at = $2 WHERE id = $3",
		consts.VersionStatusPublished, now, draft.ID)
	if err != nil {
		return dto.PublishSiteResponse{}, err
	}
	_, err = tx.Exec(ctx, "UPDATE platform.sites SET published_version_id = $1, updated_at = $2 WHERE id = $3",
		draft.ID, now, siteID)
	if err != nil {
		return dto.PublishSiteResponse{}, err
	}

	// UNIQUE(site_id, version) serializes concurrent publishes: the loser
	// conflicts here and must retry the whole operation from a fresh read.
	newDraft := db.SiteVersion{
		SiteID:  siteID,
		Version: draft.Version + 1,
		Status:  consts.VersionStatusDraft,
	}
	err = tx.QueryRow(ctx, `INSERT INTO platform.site_versions(site_id, version, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		newDraft.SiteID, newDraft.Version, newDraft.Status, now, now).Scan(&newDraft.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = errs.ConflictError{Err: fmt.Errorf("version %d of site %d already exists", newDraft.Version, siteID)}
		}
		return dto.PublishSiteResponse{}, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO platform.site_version_payloads(site_version_id, payload_json, checksum, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)`,
		newDraft.ID, payload.PayloadJSON, materializer.Checksum(payload.PayloadJSON), now, now)
	if err != nil {
		return dto.PublishSiteResponse{}, err
	}

	eventRepo := repo.NewEventRepo(tx)
	err = eventRepo.InsertEvent(ctx, events.SiteVersionPublished{
		SiteID:        siteID,
		SiteVersionID: draft.ID,
		Version:       draft.Version,
		Mode:          consts.ModePublished,
	})
	if err != nil {
		return dto.PublishSiteResponse{}, err
	}

	if site.ContactEmail != nil {
		notification := mail.SitePublishedData{
			SiteURL: c.cfg.SiteURL(site.Slug),
			Version: draft.Version,
			Year:    strconv.Itoa(now.Year()),
		}
		err = eventRepo.InsertEvent(ctx, events.SendMail{
			SiteID:    siteID,
			Recipient: *site.ContactEmail,
			Subject:   notification.GetSubject(),
			Data:      notification,
		})
		if err != nil {
			return dto.PublishSiteResponse{}, err
		}
	}

	if err = uow.Commit(); err != nil {
		return dto.PublishSiteResponse{}, err
	}

	c.invalidateHosts(ctx, &site)

	slog.Info("published site version", "siteID", siteID, "version", draft.Version, "newDraft", newDraft.Version)

	return dto.PublishSiteResponse{
		PublishedVersion: dto.SiteVersionView{ID: draft.ID, Version: draft.Version, Status: consts.VersionStatusPublished},
		NewDraftVersion:  dto.SiteVersionView{ID: newDraft.ID, Version: newDraft.Version, Status: consts.VersionStatusDraft},
	}, nil
}

// invalidateHosts drops every host that can resolve to this site. Failures
// are logged only: the TTL still bounds staleness.
func (c *PublishSite) invalidateHosts(ctx context.Context, site *db.Site) {
	hosts := []string{c.cfg.PlatformHost(site.Slug)}
	verified, err := c.directory.VerifiedHosts(ctx, site.ID)
	if err != nil {
		slog.Error("listing verified hosts for invalidation", "siteID", site.ID, "err", err)
	}
	hosts = append(hosts, verified...)
	c.resolver.InvalidateHosts(ctx, hosts...)
}
