package gateway

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"github.com/lista-crm/sites-platform/internal/application/errs"
	"github.com/lista-crm/sites-platform/internal/application/interfaces"
	"github.com/lista-crm/sites-platform/internal/application/materializer"
	"github.com/lista-crm/sites-platform/internal/application/resolver"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
	"github.com/lista-crm/sites-platform/internal/infra/config"
)

const (
	previewCookieName = "preview_session"
	previewCookieTTL  = 60 * time.Minute
)

const notPublishedPage = `<html><body><h1>Site not published yet</h1><p>This site has not been published. Use a preview link to view the draft.</p></body></html>`

// Gateway is the front door for site traffic: it resolves the hostname to a
// site, picks published or draft serving and either streams the
// materialized tree or proxies to a live theme backend.
type Gateway struct {
	resolver *resolver.Resolver
	store    interfaces.ObjectStore
	cfg      *config.PlatformConfig
}

func New(res *resolver.Resolver, store interfaces.ObjectStore, cfg *config.PlatformConfig) *Gateway {
	return &Gateway{resolver: res, store: store, cfg: cfg}
}

func (g *Gateway) RegisterRoutes(app *fiber.App) {
	app.Get("/__preview", g.Preview)
	// every method registers so proxy deployments can forward theme API
	// calls; the static streamer only answers reads
	app.All("/*", g.Serve)
}

// Serve handles every site request. Default serving is the published
// version; a validating preview cookie switches to the pinned draft
// version. An invalid cookie falls back to published, never to draft.
func (g *Gateway) Serve(c *fiber.Ctx) error {
	record, ok := g.resolveHost(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).SendString("Site not found")
	}

	mode := consts.ModePublished
	version := record.PublishedVersionNumber

	if token := c.Cookies(previewCookieName); token != "" {
		draftVersion, err := g.resolver.ValidatePreviewToken(c.UserContext(), record.ID, token)
		if err != nil {
			// invalid cookies silently fall back to published
			var invalid errs.InvalidCredentialError
			if !errors.As(err, &invalid) {
				slog.Error("preview token validation failed", "siteID", record.ID, "err", err)
			}
		}
		if draftVersion != nil {
			mode = consts.ModeDraft
			version = draftVersion
		}
	}

	if version == nil {
		c.Set(fiber.HeaderContentType, "text/html; charset=utf-8")
		return c.Status(fiber.StatusNotFound).SendString(notPublishedPage)
	}

	if backend, found := g.cfg.ThemeRoutes[record.ThemeKey]; found {
		return g.proxyToTheme(c, record, mode, *version, backend)
	}
	if len(g.cfg.ThemeRoutes) > 0 {
		// proxy deployment with an unmapped theme: misconfiguration, not a miss
		slog.Error("no backend configured for theme", "themeKey", record.ThemeKey, "siteID", record.ID)
		return c.Status(fiber.StatusBadGateway).SendString("No backend configured for theme: " + record.ThemeKey)
	}

	return g.stream(c, record, mode, *version)
}

func (g *Gateway) resolveHost(c *fiber.Ctx) (*resolver.SiteRecord, bool) {
	host, _, _ := strings.Cut(c.Hostname(), ":")
	record, err := g.resolver.Resolve(c.UserContext(), host)
	if err != nil {
		// store unavailability degrades to not-found, it must not crash serving
		slog.Error("host resolution failed", "host", host, "err", err)
		return nil, false
	}
	if record == nil {
		return nil, false
	}
	return record, true
}

func (g *Gateway) proxyToTheme(c *fiber.Ctx, record *resolver.SiteRecord, mode consts.Mode, version int, backend string) error {
	setIdentityHeaders(c, record, mode, version)
	if err := proxy.Do(c, backend+c.OriginalURL()); err != nil {
		slog.Error("theme backend unreachable", "themeKey", record.ThemeKey, "backend", backend, "err", err)
		return c.Status(fiber.StatusBadGateway).SendString("Theme server unavailable")
	}
	return nil
}

func setIdentityHeaders(c *fiber.Ctx, record *resolver.SiteRecord, mode consts.Mode, version int) {
	c.Request().Header.Set("x-site-id", strconv.FormatUint(record.ID, 10))
	c.Request().Header.Set("x-tenant-id", record.TenantID)
	c.Request().Header.Set("x-theme-key", record.ThemeKey)
	c.Request().Header.Set("x-site-mode", string(mode))
	c.Request().Header.Set("x-site-version", strconv.Itoa(version))
	c.Request().Header.Set("x-site-slug", record.Slug)
}

// stream serves one object from the materialized tree, falling back to the
// shared detail page for parameterized routes.
func (g *Gateway) stream(c *fiber.Ctx, record *resolver.SiteRecord, mode consts.Mode, version int) error {
	if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
		return c.SendStatus(fiber.StatusMethodNotAllowed)
	}

	requestPath := c.Path()
	objectPath := ObjectPath(record.ID, mode, version, requestPath)

	data, err := g.store.Get(c.UserContext(), objectPath)
	if err != nil {
		var notFound errs.NotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("object store read failed", "objectPath", objectPath, "err", err)
			return c.Status(fiber.StatusBadGateway).SendString("Content store unavailable")
		}
		fallbackPath, ok := DetailFallbackPath(record.ID, mode, version, requestPath)
		if !ok {
			return c.SendStatus(fiber.StatusNotFound)
		}
		data, err = g.store.Get(c.UserContext(), fallbackPath)
		if err != nil {
			return c.SendStatus(fiber.StatusNotFound)
		}
		objectPath = fallbackPath
	}

	c.Set(fiber.HeaderContentType, materializer.ContentTypeByPath(objectPath))
	c.Set(fiber.HeaderCacheControl, cacheControlFor(mode, objectPath))
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	return c.Send(data)
}

func cacheControlFor(mode consts.Mode, objectPath string) string {
	if mode == consts.ModeDraft {
		return materializer.CacheControlDraft
	}
	if strings.Contains(objectPath, "/assets/") {
		return materializer.CacheControlImmutableAsset
	}
	return materializer.CacheControlPublishedHTML
}

// Preview turns a ?token= preview link into an HttpOnly cookie and redirects
// to the site root. Invalid tokens fail closed: no cookie, 403.
func (g *Gateway) Preview(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing preview token")
	}

	record, ok := g.resolveHost(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).SendString("Site not found")
	}

	if _, err := g.resolver.ValidatePreviewToken(c.UserContext(), record.ID, token); err != nil {
		var invalid errs.InvalidCredentialError
		if errors.As(err, &invalid) {
			return c.Status(fiber.StatusForbidden).SendString("Invalid or expired preview token")
		}
		slog.Error("preview token validation failed", "siteID", record.ID, "err", err)
		return c.Status(fiber.StatusBadGateway).SendString("Preview validation unavailable")
	}

	c.Cookie(&fiber.Cookie{
		Name:     previewCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(previewCookieTTL),
		Secure:   c.Protocol() == "https",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect("/", fiber.StatusFound)
}
