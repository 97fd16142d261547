package query_test

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"testing"
	"time"

	"github.com/lista-crm/sites-platform/internal/application/errs"
	"github.com/lista-crm/sites-platform/internal/application/query"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
	"github.com/lista-crm/sites-platform/internal/testinfra"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	cleanup(context.Background())
	os.Exit(code)
}

func seedSite(t *testing.T, slug string, payload string) uint64 {
	ctx := context.Background()
	themeID := testinfra.SeedTheme(testinfra.Pool, "query-theme",
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

	_, err = testinfra.Pool.Exec(ctx, `INSERT INTO platform.site_version_payloads(site_version_id, payload_json, checksum, created_at, updated_at)
		VALUES ($1,$2::jsonb,'seed',$3,$3)`, draftID, payload, now)
	require.NoError(t, err)

	_, err = testinfra.Pool.Exec(ctx, `INSERT INTO platform.site_domains(site_id, host, "type", status, verified_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$5)`,
		siteID, slug+".listacrmsites.com", consts.DomainTypePlatformSubdomain, consts.DomainStatusVerified, now)
	require.NoError(t, err)

	return siteID
}

func TestGetSiteAssemblesView(t *testing.T) {
	siteID := seedSite(t, "query-one", `{"routes":{}}`)

	resp, err := query.NewGetSite(testinfra.Pool).Query(context.Background(), siteID)
	require.NoError(t, err)
	require.Equal(t, siteID, resp.SiteID)
	require.Equal(t, "t-1", resp.TenantID)
	require.Equal(t, "query-one", resp.Slug)
	require.Equal(t, "query-theme", resp.ThemeKey)
	require.Nil(t, resp.PublishedVersion)
	require.NotNil(t, resp.DraftVersion)
	require.Equal(t, 1, resp.DraftVersion.Version)
	require.Len(t, resp.Domains, 1)
	require.Equal(t, "query-one.listacrmsites.com", resp.Domains[0].Host)
}

func TestGetSiteUnknown(t *testing.T) {
	_, err := query.NewGetSite(testinfra.Pool).Query(context.Background(), 99999999)
	require.ErrorAs(t, err, &errs.NotFoundError{})
}

func TestGetDraftReturnsPayload(t *testing.T) {
	payload := `{"settings":{"seo":{"titleSuffix":" | Q"}},"routes":{}}`
	siteID := seedSite(t, "query-two", payload)

	resp, err := query.NewGetDraft(testinfra.Pool).Query(context.Background(), siteID)
	require.NoError(t, err)
	require.Equal(t, siteID, resp.SiteID)
	require.Equal(t, 1, resp.Version.Version)
	require.Equal(t, consts.VersionStatusDraft, resp.Version.Status)
	require.True(t, json.Valid(resp.Payload))
	require.JSONEq(t, payload, string(resp.Payload))
}

func TestGetDraftUnknownSite(t *testing.T) {
	_, err := query.NewGetDraft(testinfra.Pool).Query(context.Background(), 99999999)
	require.ErrorAs(t, err, &errs.NotFoundError{})
}

func cleanup(ctx context.Context) {
	_, err := testinfra.Pool.Exec(ctx, `
		DELETE FROM platform.site_domains;
		DELETE FROM platform.site_version_payloads;
		DELETE FROM platform.site_versions;
		DELETE FROM platform.sites;
	`)
	if err != nil {
		log.Panicf("err cleaning up query test %v", err)
	}
}
