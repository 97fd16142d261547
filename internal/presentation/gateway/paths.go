package gateway

import (
	"path"
	"strings"

	"github.com/lista-crm/sites-platform/internal/application/materializer"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
)

// ObjectPath maps a request path onto the materialized tree: the root and
// extension-less paths resolve to a directory index.html, paths with a file
// extension are served as-is.
func ObjectPath(siteID uint64, mode consts.Mode, version int, requestPath string) string {
	base := materializer.BasePath(siteID, mode, version)
	trimmed := strings.Trim(requestPath, "/")
	if trimmed == "" {
		return base + "/index.html"
	}
	if path.Ext(trimmed) != "" {
		return base + "/" + trimmed
	}
	return base + "/" + trimmed + "/index.html"
}

// DetailFallbackPath drops the trailing segment of a parameterized path and
// points at the shared _detail page, so /listings/42 finds
// listings/_detail/index.html. Paths with fewer than two segments have no
// fallback.
func DetailFallbackPath(siteID uint64, mode consts.Mode, version int, requestPath string) (string, bool) {
	trimmed := strings.Trim(requestPath, "/")
	segments := strings.Split(trimmed, "/")
	if len(segments) < 2 {
		return "", false
	}
	parent := strings.Join(segments[:len(segments)-1], "/")
	return materializer.BasePath(siteID, mode, version) + "/" + parent + "/_detail/index.html", true
}
