package processors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lista-crm/sites-platform/internal/application/errs"
	"github.com/lista-crm/sites-platform/internal/application/events"
	"github.com/lista-crm/sites-platform/internal/application/materializer"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
	shared "github.com/lista-crm/sites-platform/pkg/interfaces"
)

// MaterializeVersion renders a site version into the object store. It runs
// at-least-once off the outbox; duplicate runs are safe because writes are
// keyed by {siteID, mode, version} and checksum-skipped.
type MaterializeVersion struct {
	pool         *pgxpool.Pool
	materializer *materializer.Materializer
}

func NewMaterializeVersion(pool *pgxpool.Pool, m *materializer.Materializer) *MaterializeVersion {
	return &MaterializeVersion{pool: pool, materializer: m}
}

func (p *MaterializeVersion) HandlePublished(ctx context.Context, event events.SiteVersionPublished) (shared.UoW, error) {
	return nil, p.materialize(ctx, event.SiteID, event.SiteVersionID, event.Version, consts.ModePublished)
}

func (p *MaterializeVersion) HandleDraft(ctx context.Context, event events.MaterializeDraft) (shared.UoW, error) {
	return nil, p.materialize(ctx, event.SiteID, event.SiteVersionID, event.Version, consts.ModeDraft)
}

func (p *MaterializeVersion) materialize(ctx context.Context, siteID, versionID uint64, version int, mode consts.Mode) error {
	var themeKey string
	err := p.pool.QueryRow(ctx, `SELECT t.key FROM platform.sites s
		JOIN platform.themes t ON t.id = s.theme_id
		WHERE s.id = $1`, siteID).Scan(&themeKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("site %d no longer exists", siteID)
		}
		return errs.RetryableError{Err: err}
	}

	var payload json.RawMessage
	err = p.pool.QueryRow(ctx, "SELECT payload_json FROM platform.site_version_payloads WHERE site_version_id = $1",
		versionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("payload of version %d no longer exists", versionID)
		}
		return errs.RetryableError{Err: err}
	}

	written, err := p.materializer.Materialize(ctx, siteID, themeKey, version, payload, mode)
	if err != nil {
		// object store blips resolve themselves; let the poller retry
		return errs.RetryableError{Err: err}
	}

	slog.Info("materialized site version", "siteID", siteID, "mode", mode, "version", version, "objects", len(written))
	return nil
}
