package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lista-crm/sites-platform/internal/application/dto"
	"github.com/lista-crm/sites-platform/internal/application/errs"
	"github.com/lista-crm/sites-platform/internal/application/events"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
	"github.com/lista-crm/sites-platform/internal/infra/config"
	"github.com/lista-crm/sites-platform/internal/infra/db"
	"github.com/lista-crm/sites-platform/internal/infra/db/repo"
	dbs "github.com/lista-crm/sites-platform/pkg/db"
)

const (
	previewTokenBytes = 32
	previewSessionTTL = 60 * time.Minute
)

// CreatePreviewSession issues a time-limited token pinned to the current
// draft version. The token keeps validating against that version even if the
// draft rotates before it expires.
type CreatePreviewSession struct {
	uowFactory *dbs.UOWFactory
	cfg        *config.PlatformConfig
}

func NewCreatePreviewSession(factory *dbs.UOWFactory, cfg *config.PlatformConfig) *CreatePreviewSession {
	return &CreatePreviewSession{uowFactory: factory, cfg: cfg}
}

func (c *CreatePreviewSession) Execute(ctx context.Context, siteID uint64) (dto.CreatePreviewSessionResponse, error) {
	uow := c.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return dto.CreatePreviewSessionResponse{}, err
	}
	defer uow.Finalize(&err)

	var slug string
	err = tx.QueryRow(ctx, "SELECT slug FROM platform.sites WHERE id = $1", siteID).Scan(&slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dto.CreatePreviewSessionResponse{}, errs.NotFoundError{Err: fmt.Errorf("site %d", siteID)}
		}
		return dto.CreatePreviewSessionResponse{}, err
	}

	var draft db.SiteVersion
	err = tx.QueryRow(ctx, `SELECT id, version FROM platform.site_versions
		WHERE site_id = $1 AND status = $2 ORDER BY version DESC LIMIT 1`,
		siteID, consts.VersionStatusDraft).Scan(&draft.ID, &draft.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dto.CreatePreviewSessionResponse{}, errs.NotFoundError{Err: fmt.Errorf("no draft version for site %d", siteID)}
		}
		return dto.CreatePreviewSessionResponse{}, err
	}

	token, err := newPreviewToken()
	if err != nil {
		return dto.CreatePreviewSessionResponse{}, err
	}

	now := time.Now()
	expiresAt := now.Add(previewSessionTTL)
	_, err = tx.Exec(ctx, `INSERT INTO platform.preview_sessions(site_id, site_version_id, token, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		siteID, draft.ID, token, expiresAt, now)
	if err != nil {
		return dto.CreatePreviewSessionResponse{}, err
	}

	// the draft tree has to exist in the object store before the preview
	// link is opened
	eventRepo := repo.NewEventRepo(tx)
	err = eventRepo.InsertEvent(ctx, events.MaterializeDraft{
		SiteID:        siteID,
		SiteVersionID: draft.ID,
		Version:       draft.Version,
	})
	if err != nil {
		return dto.CreatePreviewSessionResponse{}, err
	}

	if err = uow.Commit(); err != nil {
		return dto.CreatePreviewSessionResponse{}, err
	}

	return dto.CreatePreviewSessionResponse{
		PreviewURL: c.cfg.PreviewURL(slug, token),
		Token:      token,
		ExpiresAt:  expiresAt,
		Version:    draft.Version,
	}, nil
}

func newPreviewToken() (string, error) {
	raw := make([]byte, previewTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating preview token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
