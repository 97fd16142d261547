package dto

import (
	"encoding/json"
	"time"

	"github.com/lista-crm/sites-platform/internal/domain/consts"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateSiteRequest struct {
	TenantID     string `json:"tenant_id"`
	ThemeKey     string `json:"theme_key"`
	Slug         string `json:"slug"`
	ContactEmail string `json:"contact_email,omitempty"`
}

type CreateSiteResponse struct {
	SiteID  uint64 `json:"site_id"`
	Slug    string `json:"slug"`
	Host    string `json:"host"`
	Version int    `json:"version"`
}

type SiteVersionView struct {
	ID      uint64               `json:"id"`
	Version int                  `json:"version"`
	Status  consts.VersionStatus `json:"status"`
}

type SiteDomainView struct {
	Host   string              `json:"host"`
	Type   consts.DomainType   `json:"type"`
	Status consts.DomainStatus `json:"status"`
}

type GetSiteResponse struct {
	SiteID           uint64           `json:"site_id"`
	TenantID         string           `json:"tenant_id"`
	Slug             string           `json:"slug"`
	ThemeKey         string           `json:"theme_key"`
	PublishedVersion *SiteVersionView `json:"published_version,omitempty"`
	DraftVersion     *SiteVersionView `json:"draft_version,omitempty"`
	Domains          []SiteDomainView `json:"domains"`
}

type DraftResponse struct {
	SiteID  uint64          `json:"site_id"`
	Version SiteVersionView `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

type UpdateDraftRequest struct {
	PayloadJSON json.RawMessage `json:"payload_json"`
}

type PublishSiteResponse struct {
	PublishedVersion SiteVersionView `json:"published_version"`
	NewDraftVersion  SiteVersionView `json:"new_draft_version"`
}

type CreatePreviewSessionResponse struct {
	PreviewURL string    `json:"preview_url"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	Version    int       `json:"version"`
}
