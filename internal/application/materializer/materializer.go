package materializer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/lista-crm/sites-platform/internal/application/interfaces"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
	"github.com/lista-crm/sites-platform/internal/infra/themes"
)

// Cache-control the objects are written with; the streamer mirrors these at
// read time.
const (
	CacheControlPublishedHTML  = "public, max-age=300"
	CacheControlDraft          = "no-store"
	CacheControlImmutableAsset = "public, max-age=31536000, immutable"
)

const checksumMarker = ".build-checksum"

var detailSegment = regexp.MustCompile(`/:[^/]+$`)

func HTMLCacheControl(mode consts.Mode) string {
	if mode == consts.ModeDraft {
		return CacheControlDraft
	}
	return CacheControlPublishedHTML
}

// Materializer renders every manifest route of a site version into a
// self-contained static tree under sites/{siteID}/{mode}/{version}/ and
// mirrors the theme assets under the same prefix.
type Materializer struct {
	themes     themes.Provider
	store      interfaces.ObjectStore
	apiBaseURL string
}

func New(provider themes.Provider, store interfaces.ObjectStore, apiBaseURL string) *Materializer {
	return &Materializer{
		themes:     provider,
		store:      store,
		apiBaseURL: apiBaseURL,
	}
}

type payloadDoc struct {
	Settings json.RawMessage            `json:"settings"`
	Routes   map[string]json.RawMessage `json:"routes"`
}

type routeSEO struct {
	SEO struct {
		Title string `json:"title"`
	} `json:"seo"`
}

type settingsSEO struct {
	SEO struct {
		TitleSuffix string `json:"titleSuffix"`
	} `json:"seo"`
}

// Materialize writes the full static tree for one {siteID, mode, version}
// and returns the written object paths. Writes are idempotent: an unchanged
// payload checksum for an already-built prefix skips the run.
func (m *Materializer) Materialize(ctx context.Context, siteID uint64, themeKey string, version int, payload json.RawMessage, mode consts.Mode) ([]string, error) {
	basePath := BasePath(siteID, mode, version)
	checksum := Checksum(payload)

	if previous, err := m.store.Get(ctx, basePath+"/"+checksumMarker); err == nil && string(previous) == checksum {
		slog.Info("skipping materialization, checksum unchanged", "siteID", siteID, "mode", mode, "version", version)
		return nil, nil
	}

	manifest, err := m.themes.Manifest(ctx, themeKey)
	if err != nil {
		return nil, err
	}
	baseTemplate, err := m.themes.BaseTemplate(themeKey)
	if err != nil {
		return nil, err
	}

	var doc payloadDoc
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("decoding payload of site %d version %d: %w", siteID, version, err)
		}
	}

	written, err := m.uploadAssets(ctx, themeKey, basePath)
	if err != nil {
		return nil, err
	}

	htmlCacheControl := HTMLCacheControl(mode)
	for _, route := range manifest.Routes {
		objectPath := RouteObjectPath(basePath, route)
		page := m.renderRoute(siteID, themeKey, version, mode, route, doc, baseTemplate)
		if err := m.store.Put(ctx, objectPath, []byte(page), "text/html; charset=utf-8", htmlCacheControl); err != nil {
			return nil, fmt.Errorf("writing %v: %w", objectPath, err)
		}
		written = append(written, objectPath)
		slog.Info("built page", "objectPath", objectPath)
	}

	if err := m.store.Put(ctx, basePath+"/"+checksumMarker, []byte(checksum), "text/plain", CacheControlDraft); err != nil {
		return nil, err
	}

	return written, nil
}

func (m *Materializer) renderRoute(siteID uint64, themeKey string, version int, mode consts.Mode, route themes.ManifestRoute, doc payloadDoc, baseTemplate string) string {
	settings := doc.Settings
	if len(settings) == 0 {
		settings = json.RawMessage("{}")
	}
	routePayload := doc.Routes[route.ID]
	if len(routePayload) == 0 {
		routePayload = json.RawMessage("{}")
	}

	micrositeJSON, _ := json.Marshal(map[string]any{
		"siteId":     siteID,
		"mode":       mode,
		"version":    version,
		"themeKey":   themeKey,
		"settings":   settings,
		"routeId":    route.ID,
		"route":      routePayload,
		"apiBaseUrl": m.apiBaseURL,
	})

	var seo routeSEO
	_ = json.Unmarshal(routePayload, &seo)
	title := seo.SEO.Title
	if title == "" {
		title = "Page"
	}
	var suffix settingsSEO
	_ = json.Unmarshal(settings, &suffix)

	page := strings.ReplaceAll(baseTemplate, "{{SEO_TITLE}}", html.EscapeString(title+suffix.SEO.TitleSuffix))
	return strings.ReplaceAll(page, "{{MICROSITE_JSON}}", string(micrositeJSON))
}

// uploadAssets mirrors the theme bundle once per version prefix. Snapshots
// are not deduplicated across versions so each tree stays independently
// addressable and cacheable.
func (m *Materializer) uploadAssets(ctx context.Context, themeKey, basePath string) ([]string, error) {
	assets, err := m.themes.Assets(themeKey)
	if err != nil {
		return nil, err
	}
	var written []string
	for _, asset := range assets {
		objectPath := basePath + "/assets/" + asset.RelPath
		contentType := ContentTypeByPath(asset.RelPath)
		if err := m.store.Put(ctx, objectPath, asset.Data, contentType, CacheControlImmutableAsset); err != nil {
			return nil, fmt.Errorf("writing asset %v: %w", objectPath, err)
		}
		written = append(written, objectPath)
	}
	return written, nil
}

func BasePath(siteID uint64, mode consts.Mode, version int) string {
	return fmt.Sprintf("sites/%d/%s/%d", siteID, mode, version)
}

// RouteObjectPath maps a manifest route onto the static tree:
// "/" -> index.html, "/about" -> about/index.html and a detail route
// collapses to the shared _detail/index.html page.
func RouteObjectPath(basePath string, route themes.ManifestRoute) string {
	if route.IsDetail() {
		parent := strings.TrimPrefix(detailSegment.ReplaceAllString(route.Path, ""), "/")
		return basePath + "/" + parent + "/_detail/index.html"
	}
	routePath := strings.TrimPrefix(route.Path, "/")
	if routePath == "" {
		return basePath + "/index.html"
	}
	return basePath + "/" + routePath + "/index.html"
}

func Checksum(payload json.RawMessage) string {
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}

func ContentTypeByPath(objectPath string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(objectPath), ".")) {
	case "html":
		return "text/html; charset=utf-8"
	case "js":
		return "application/javascript"
	case "css":
		return "text/css"
	case "json":
		return "application/json"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "svg":
		return "image/svg+xml"
	case "ico":
		return "image/x-icon"
	case "woff":
		return "font/woff"
	case "woff2":
		return "font/woff2"
	case "ttf":
		return "font/ttf"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
