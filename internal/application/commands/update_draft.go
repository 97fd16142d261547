package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lista-crm/sites-platform/internal/application/dto"
	"github.com/lista-crm/sites-platform/internal/application/errs"
	"github.com/lista-crm/sites-platform/internal/application/events"
	"github.com/lista-crm/sites-platform/internal/application/materializer"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
	"github.com/lista-crm/sites-platform/internal/infra/db"
	"github.com/lista-crm/sites-platform/internal/infra/db/repo"
	dbs "github.com/lista-crm/sites-platform/pkg/db"
)

// UpdateDraft replaces the payload of the current draft version. Only the
// draft is ever writable; published payloads are immutable.
type UpdateDraft struct {
	uowFactory *dbs.UOWFactory
}

func NewUpdateDraft(factory *dbs.UOWFactory) *UpdateDraft {
	return &UpdateDraft{uowFactory: factory}
}

func (c *UpdateDraft) Execute(ctx context.Context, siteID uint64, req *dto.UpdateDraftRequest) (dto.DraftResponse, error) {
	if len(req.PayloadJSON) == 0 || !json.Valid(req.PayloadJSON) {
		return dto.DraftResponse{}, fmt.Errorf("payload_json must be a valid JSON document")
	}

	uow := c.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return dto.DraftResponse{}, err
	}
	defer uow.Finalize(&err)

	var exists bool
	err = tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM platform.sites WHERE id = $1)", siteID).Scan(&exists)
	if err != nil {
		return dto.DraftResponse{}, err
	}
	if !exists {
		return dto.DraftResponse{}, errs.NotFoundError{Err: fmt.Errorf("site %d", siteID)}
	}

	now := time.Now()
	draft, err := c.currentOrNewDraft(ctx, tx, siteID, now)
	if err != nil {
		return dto.DraftResponse{}, err
	}

	checksum := materializer.Checksum(req.PayloadJSON)
	_, err = tx.Exec(ctx, `INSERT INTO platform.site_version_payloads(site_version_id, payload_json, checksum, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$4)
		ON CONFLICT (site_version_id) DO UPDATE SET payload_json = EXCLUDED.payload_json, checksum = EXCLUDED.checksum, updated_at = EXCLUDED.updated_at`,
		draft.ID, req.PayloadJSON, checksum, now)
	if err != nil {
		return dto.DraftResponse{}, err
	}

	eventRepo := repo.NewEventRepo(tx)
	err = eventRepo.InsertEvent(ctx, events.MaterializeDraft{
		SiteID:        siteID,
		SiteVersionID: draft.ID,
		Version:       draft.Version,
	})
	if err != nil {
		return dto.DraftResponse{}, err
	}

	if err = uow.Commit(); err != nil {
		return dto.DraftResponse{}, err
	}

	return dto.DraftResponse{
		SiteID:  siteID,
		Version: dto.SiteVersionView{ID: draft.ID, Version: draft.Version, Status: consts.VersionStatusDraft},
		Payload: req.PayloadJSON,
	}, nil
}

// currentOrNewDraft loads the current draft, creating one past the highest
// existing version when a site somehow lost its draft row.
func (c *UpdateDraft) currentOrNewDraft(ctx context.Context, tx pgx.Tx, siteID uint64, now time.Time) (*db.SiteVersion, error) {
	var draft db.SiteVersion
	err := tx.QueryRow(ctx, `SELECT id, version FROM platform.site_versions
		WHERE site_id = $1 AND status = $2 ORDER BY version DESC LIMIT 1`,
		siteID, consts.VersionStatusDraft).Scan(&draft.ID, &draft.Version)
	if err == nil {
		return &draft, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var latest int
	err = tx.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM platform.site_versions WHERE site_id = $1", siteID).Scan(&latest)
	if err != nil {
		return nil, err
	}
	draft.Version = latest + 1
	err = tx.QueryRow(ctx, `INSERT INTO platform.site_versions(site_id, version, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$4) RETURNING id`,
		siteID, draft.Version, consts.VersionStatusDraft, now).Scan(&draft.ID)
	if err != nil {
		return nil, err
	}
	return &draft, nil
}
