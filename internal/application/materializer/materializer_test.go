package materializer_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/lista-crm/sites-platform/internal/application/materializer"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
	"github.com/lista-crm/sites-platform/internal/infra/storage"
	"github.com/lista-crm/sites-platform/internal/infra/themes"
	"github.com/stretchr/testify/require"
)

const baseTemplate = `<html><head><title>{{SEO_TITLE}}</title></head><body><script id="microsite-data" type="application/json">{{MICROSITE_JSON}}</script></body></html>`

type fakeProvider struct {
	manifest *themes.Manifest
	assets   []themes.Asset
}

func (f *fakeProvider) Manifest(context.Context, string) (*themes.Manifest, error) {
	return f.manifest, nil
}

func (f *fakeProvider) BaseTemplate(string) (string, error) {
	return baseTemplate, nil
}

func (f *fakeProvider) Assets(string) ([]themes.Asset, error) {
	return f.assets, nil
}

func provider() *fakeProvider {
	return &fakeProvider{
		manifest: &themes.Manifest{Routes: []themes.ManifestRoute{
			{ID: "home", Path: "/"},
			{ID: "about", Path: "/about"},
			{ID: "listing", Path: "/listings/:listingId"},
		}},
		assets: []themes.Asset{
			{RelPath: "app.js", Data: []byte("console.log('hi')")},
			{RelPath: "css/site.css", Data: []byte("body{}")},
		},
	}
}

func payload() json.RawMessage {
	return json.RawMessage(`{
		"settings": {"seo": {"titleSuffix": " | Acme Realty"}},
		"routes": {
			"home": {"seo": {"title": "Home"}},
			"about": {"seo": {"title": "About <Us>"}},
			"listing": {"seo": {"title": "Listing"}}
		}
	}`)
}

func TestMaterializeWritesRouteTree(t *testing.T) {
	store := storage.NewMemoryStore()
	builder := materializer.New(provider(), store, "https://api.lista.example")

	written, err := builder.Materialize(context.Background(), 42, "law-firm-v1", 3, payload(), consts.ModePublished)
	require.NoError(t, err)

	require.Contains(t, written, "sites/42/published/3/index.html")
	require.Contains(t, written, "sites/42/published/3/about/index.html")
	require.Contains(t, written, "sites/42/published/3/listings/_detail/index.html")
	require.Contains(t, written, "sites/42/published/3/assets/app.js")
	require.Contains(t, written, "sites/42/published/3/assets/css/site.css")
}

func TestMaterializeRendersTitleAndPayload(t *testing.T) {
	store := storage.NewMemoryStore()
	builder := materializer.New(provider(), store, "https://api.lista.example")

	_, err := builder.Materialize(context.Background(), 42, "law-firm-v1", 3, payload(), consts.ModePublished)
	require.NoError(t, err)

	object, ok := store.Object("sites/42/published/3/about/index.html")
	require.True(t, ok)
	page := string(object.Body)
	require.Contains(t, page, "<title>About &lt;Us&gt; | Acme Realty</title>", "titles must be escaped and suffixed")
	require.Contains(t, page, `"routeId":"about"`)
	require.Contains(t, page, `"mode":"published"`)
	require.Contains(t, page, `"apiBaseUrl":"https://api.lista.example"`)
	require.NotContains(t, page, "{{SEO_TITLE}}")
	require.NotContains(t, page, "{{MICROSITE_JSON}}")
}

func TestMaterializeCacheControlByMode(t *testing.T) {
	store := storage.NewMemoryStore()
	builder := materializer.New(provider(), store, "")

	_, err := builder.Materialize(context.Background(), 42, "law-firm-v1", 3, payload(), consts.ModePublished)
	require.NoError(t, err)
	_, err = builder.Materialize(context.Background(), 42, "law-firm-v1", 4, payload(), consts.ModeDraft)
	require.NoError(t, err)

	published, _ := store.Object("sites/42/published/3/index.html")
	require.Equal(t, materializer.CacheControlPublishedHTML, published.CacheControl)
	require.Equal(t, "text/html; charset=utf-8", published.ContentType)

	draft, _ := store.Object("sites/42/draft/4/index.html")
	require.Equal(t, materializer.CacheControlDraft, draft.CacheControl)

	asset, _ := store.Object("sites/42/published/3/assets/app.js")
	require.Equal(t, materializer.CacheControlImmutableAsset, asset.CacheControl)
	require.Equal(t, "application/javascript", asset.ContentType)
}

func TestMaterializeSkipsUnchangedChecksum(t *testing.T) {
	store := storage.NewMemoryStore()
	builder := materializer.New(provider(), store, "")

	first, err := builder.Materialize(context.Background(), 42, "law-firm-v1", 3, payload(), consts.ModePublished)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := builder.Materialize(context.Background(), 42, "law-firm-v1", 3, payload(), consts.ModePublished)
	require.NoError(t, err)
	require.Empty(t, second, "an unchanged payload must not rewrite the tree")

	changed, err := builder.Materialize(context.Background(), 42, "law-firm-v1", 3, json.RawMessage(`{"routes":{}}`), consts.ModePublished)
	require.NoError(t, err)
	require.NotEmpty(t, changed)
}

func TestMaterializeMissingRoutePayloadRendersEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	builder := materializer.New(provider(), store, "")

	_, err := builder.Materialize(context.Background(), 42, "law-firm-v1", 3, json.RawMessage(`{"routes":{}}`), consts.ModePublished)
	require.NoError(t, err)

	object, ok := store.Object("sites/42/published/3/about/index.html")
	require.True(t, ok)
	page := string(object.Body)
	require.Contains(t, page, "<title>Page</title>")
	require.Contains(t, page, `"route":{}`)
}

func TestRouteObjectPath(t *testing.T) {
	base := materializer.BasePath(7, consts.ModeDraft, 2)
	require.Equal(t, "sites/7/draft/2", base)

	require.Equal(t, "sites/7/draft/2/index.html", materializer.RouteObjectPath(base, themes.ManifestRoute{ID: "home", Path: "/"}))
	require.Equal(t, "sites/7/draft/2/about/index.html", materializer.RouteObjectPath(base, themes.ManifestRoute{ID: "about", Path: "/about"}))
	require.Equal(t, "sites/7/draft/2/listings/_detail/index.html", materializer.RouteObjectPath(base, themes.ManifestRoute{ID: "listing", Path: "/listings/:listingId"}))
}

func TestContentTypeByPath(t *testing.T) {
	require.Equal(t, "text/html; charset=utf-8", materializer.ContentTypeByPath("a/index.html"))
	require.Equal(t, "text/css", materializer.ContentTypeByPath("assets/site.css"))
	require.Equal(t, "image/svg+xml", materializer.ContentTypeByPath("logo.svg"))
	require.Equal(t, "application/octet-stream", materializer.ContentTypeByPath("blob.bin"))
}

func TestChecksumIsStable(t *testing.T) {
	a := materializer.Checksum(json.RawMessage(`{"x":1}`))
	b := materializer.Checksum(json.RawMessage(`{"x":1}`))
	c := materializer.Checksum(json.RawMessage(`{"x":2}`))
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 32)
	require.False(t, strings.ContainsAny(a, "ABCDEF"))
}
