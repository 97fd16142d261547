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

type GetDraft struct {
	pool *pgxpool.Pool
}

func NewGetDraft(pool *pgxpool.Pool) *GetDraft {
	return &GetDraft{pool: pool}
}

func (q *GetDraft) Query(ctx context.Context, siteID uint64) (dto.DraftResponse, error) {
	var exists bool
	err := q.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM platform.sites WHERE id = $1)", siteID).Scan(&exists)
	if err != nil {
		return dto.DraftResponse{}, err
	}
	if !exists {
		return dto.DraftResponse{}, errs.NotFoundError{Err: fmt.Errorf("site %d", siteID)}
	}

	resp := dto.DraftResponse{SiteID: siteID}
	err = q.pool.QueryRow(ctx, `SELECT sv.id, sv.version, sv.status, svp.payload_json
		FROM platform.site_versions sv
		JOIN platform.site_version_payloads svp ON svp.site_version_id = sv.id
		WHERE sv.site_id = $1 AND sv.status = $2
		ORDER BY sv.version DESC LIMIT 1`, siteID, consts.VersionStatusDraft).Scan(
		&resp.Version.ID, &resp.Version.Version, &resp.Version.Status, &resp.Payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dto.DraftResponse{}, errs.NotFoundError{Err: fmt.Errorf("no draft version for site %d", siteID)}
		}
		return dto.DraftResponse{}, err
	}

	return resp, nil
}
