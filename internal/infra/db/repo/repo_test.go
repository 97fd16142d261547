package repo_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/lista-crm/sites-platform/internal/application/events"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
	"github.com/lista-crm/sites-platform/internal/infra/db/repo"
	"github.com/lista-crm/sites-platform/internal/testinfra"
	dbs "github.com/lista-crm/sites-platform/pkg/db"
	"github.com/stretchr/testify/require"
)

var uowFactory *dbs.UOWFactory

func TestMain(m *testing.M) {
	ctx := context.Background()

	uowFactory = dbs.NewUoWFactory(testinfra.Pool)
	code := m.Run()

	cleanup(ctx)

	os.Exit(code)
}

type seededSite struct {
	siteID    uint64
	draftID   uint64
	customURL string
}

func seedSite(t *testing.T, slug string) seededSite {
	ctx := context.Background()
	themeID := testinfra.SeedTheme(testinfra.Pool, "repo-theme",
		`{"routes":[{"id":"home","path":"/"}]}`, `{"routes":{}}`)

	now := time.Now()
	var siteID uint64
	err := testinfra.Pool.QueryRow(ctx, `INSERT INTO platform.sites(tenant_id, theme_id, slug, created_at, updated_at)
		VALUES ('t-1',$1,$2,$3,$3) RETURNING id`, themeID, slug, now).Scan(&siteID)
	require.NoError(t, err)

	var draftID uint64
	err = testinfra.Pool.QueryRow(ctx, `INSERT INTO platform.site_versions(site_id, version, status, created_at, updated_at)
		VALUES ($1,1,$2,$3,$3) RETURNING id`, siteID, consts.VersionStatusDraft, now).Scan(&draftID)
	require.NoError(t, err)

	host := slug + ".custom.example"
	_, err = testinfra.Pool.Exec(ctx, `INSERT INTO platform.site_domains(site_id, host, "type", status, verified_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$5)`, siteID, host, consts.DomainTypeCustomDomain, consts.DomainStatusVerified, now)
	require.NoError(t, err)

	return seededSite{siteID: siteID, draftID: draftID, customURL: host}
}

func TestSiteByHostVerifiedDomain(t *testing.T) {
	seeded := seedSite(t, "byhost")
	directory := repo.NewDirectoryRepo(testinfra.Pool)

	site, err := directory.SiteByHost(context.Background(), seeded.customURL)
	require.NoError(t, err)
	require.NotNil(t, site)
	require.Equal(t, seeded.siteID, site.ID)
	require.Equal(t, "byhost", site.Slug)
	require.Nil(t, site.PublishedVersionID)
}

func TestSiteByHostUnknown(t *testing.T) {
	directory := repo.NewDirectoryRepo(testinfra.Pool)

	site, err := directory.SiteByHost(context.Background(), "nobody.example.org")
	require.NoError(t, err)
	require.Nil(t, site)
}

func TestSiteByHostIgnoresPendingDomains(t *testing.T) {
	seeded := seedSite(t, "pendingdom")
	ctx := context.Background()
	_, err := testinfra.Pool.Exec(ctx, `INSERT INTO platform.site_domains(site_id, host, "type", status, created_at)
		VALUES ($1,'pending.custom.example',$2,$3,$4)`,
		seeded.siteID, consts.DomainTypeCustomDomain, consts.DomainStatusPending, time.Now())
	require.NoError(t, err)

	directory := repo.NewDirectoryRepo(testinfra.Pool)
	site, err := directory.SiteByHost(ctx, "pending.custom.example")
	require.NoError(t, err)
	require.Nil(t, site, "an unverified domain must not resolve")
}

func TestSiteBySlug(t *testing.T) {
	seeded := seedSite(t, "byslug")
	directory := repo.NewDirectoryRepo(testinfra.Pool)

	site, err := directory.SiteBySlug(context.Background(), "byslug")
	require.NoError(t, err)
	require.NotNil(t, site)
	require.Equal(t, seeded.siteID, site.ID)

	missing, err := directory.SiteBySlug(context.Background(), "no-such-slug")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCurrentDraft(t *testing.T) {
	seeded := seedSite(t, "withdraft")
	directory := repo.NewDirectoryRepo(testinfra.Pool)

	draft, err := directory.CurrentDraft(context.Background(), seeded.siteID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	require.Equal(t, seeded.draftID, draft.ID)
	require.Equal(t, 1, draft.Version)
	require.Equal(t, consts.VersionStatusDraft, draft.Status)
}

func TestPreviewSessionVersion(t *testing.T) {
	seeded := seedSite(t, "withsession")
	ctx := context.Background()
	now := time.Now()
	_, err := testinfra.Pool.Exec(ctx, `INSERT INTO platform.preview_sessions(site_id, site_version_id, token, expires_at, created_at)
		VALUES ($1,$2,'tok-live',$3,$4)`, seeded.siteID, seeded.draftID, now.Add(time.Hour), now)
	require.NoError(t, err)
	_, err = testinfra.Pool.Exec(ctx, `INSERT INTO platform.preview_sessions(site_id, site_version_id, token, expires_at, created_at)
		VALUES ($1,$2,'tok-expired',$3,$4)`, seeded.siteID, seeded.draftID, now.Add(-time.Hour), now)
	require.NoError(t, err)

	directory := repo.NewDirectoryRepo(testinfra.Pool)

	version, err := directory.PreviewSessionVersion(ctx, seeded.siteID, "tok-live", now)
	require.NoError(t, err)
	require.NotNil(t, version)
	require.Equal(t, 1, *version)

	expired, err := directory.PreviewSessionVersion(ctx, seeded.siteID, "tok-expired", now)
	require.NoError(t, err)
	require.Nil(t, expired)

	foreign, err := directory.PreviewSessionVersion(ctx, seeded.siteID+999, "tok-live", now)
	require.NoError(t, err)
	require.Nil(t, foreign, "a token must not validate against another site")
}

func TestVerifiedHosts(t *testing.T) {
	seeded := seedSite(t, "multihost")
	directory := repo.NewDirectoryRepo(testinfra.Pool)

	hosts, err := directory.VerifiedHosts(context.Background(), seeded.siteID)
	require.NoError(t, err)
	require.Equal(t, []string{seeded.customURL}, hosts)
}

func TestInsertEvent(t *testing.T) {
	uow := uowFactory.GetUoW()
	tx, err := uow.Begin()
	require.NoError(t, err)
	defer uow.Rollback()

	ctx := context.Background()
	eventRepo := repo.NewEventRepo(tx)

	err = eventRepo.InsertEvent(ctx, events.SiteVersionPublished{
		SiteID:        1,
		SiteVersionID: 2,
		Version:       3,
		Mode:          consts.ModePublished,
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	var count int
	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM platform.outbox WHERE event = $1 AND status = $2",
		events.SiteVersionPublished{}.GetType(), int(consts.NotProcessed),
	).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count, "expected one inserted outbox row")
}

func cleanup(ctx context.Context) {
	_, err := testinfra.Pool.Exec(ctx, `
		DELETE FROM platform.outbox;
		DELETE FROM platform.preview_sessions;
		DELETE FROM platform.site_domains;
		DELETE FROM platform.site_version_payloads;
		UPDATE platform.sites SET published_version_id = NULL;
		DELETE FROM platform.site_versions;
		DELETE FROM platform.sites;
	`)
	if err != nil {
		log.Panicf("err cleaning up repo test %v", err)
	}
}
