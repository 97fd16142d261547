package config

import (
	"strings"

	"github.com/lista-crm/sites-platform/pkg/env"
)

// PlatformConfig carries the routing identity of the platform: the wildcard
// domain serving {slug}.{PlatformDomain}, how preview URLs are built, and
// which themes have a live SSR backend.
type PlatformConfig struct {
	PlatformDomain string
	RuntimeScheme  string
	RuntimePort    string
	APIBaseURL     string
	ThemeRoutes    map[string]string
}

func NewPlatformConfig() *PlatformConfig {
	return &PlatformConfig{
		PlatformDomain: env.GetEnv("PLATFORM_DOMAIN", "listacrmsites.com"),
		RuntimeScheme:  env.GetEnv("RUNTIME_SCHEME", "https"),
		RuntimePort:    env.GetEnv("RUNTIME_PORT", ""),
		APIBaseURL:     env.GetEnv("API_BASE_URL", ""),
		ThemeRoutes:    parseThemeRoutes(env.GetEnv("THEME_ROUTES", "")),
	}
}

// parseThemeRoutes parses "theme-a-v1=http://theme-a:3000,theme-b-v1=http://theme-b:3000".
func parseThemeRoutes(raw string) map[string]string {
	routes := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		key, url, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		url = strings.TrimSpace(url)
		if key != "" && url != "" {
			routes[key] = url
		}
	}
	return routes
}

// PreviewURL builds the editor-facing preview entry point on a site's
// platform subdomain.
func (c *PlatformConfig) PreviewURL(slug, token string) string {
	portSuffix := ""
	if c.RuntimePort != "" {
		portSuffix = ":" + c.RuntimePort
	}
	return c.RuntimeScheme + "://" + slug + "." + c.PlatformDomain + portSuffix + "/__preview?token=" + token
}

// SiteURL is the public entry point of a site on its platform subdomain.
func (c *PlatformConfig) SiteURL(slug string) string {
	portSuffix := ""
	if c.RuntimePort != "" {
		portSuffix = ":" + c.RuntimePort
	}
	return c.RuntimeScheme + "://" + c.PlatformHost(slug) + portSuffix
}

// PlatformHost is the wildcard host a slug resolves on.
func (c *PlatformConfig) PlatformHost(slug string) string {
	return slug + "." + c.PlatformDomain
}
