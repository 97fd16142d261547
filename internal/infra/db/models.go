package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lista-crm/sites-platform/internal/domain/consts"
)

type Site struct {
	ID                 uint64    `db:"id"`
	TenantID           string    `db:"tenant_id"`
	ThemeID            uint64    `db:"theme_id"`
	Slug               string    `db:"slug"`
	ContactEmail       *string   `db:"contact_email"`
	PublishedVersionID *uint64   `db:"published_version_id"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at,omitempty"`
}

type SiteVersion struct {
	ID        uint64               `db:"id"`
	SiteID    uint64               `db:"site_id"`
	Version   int                  `db:"version"`
	Status    consts.VersionStatus `db:"status"`
	CreatedBy *uuid.UUID           `db:"created_by"`
	CreatedAt time.Time            `db:"created_at"`
	UpdatedAt time.Time            `db:"updated_at,omitempty"`
}

type SiteVersionPayload struct {
	ID            uint64          `db:"id"`
	SiteVersionID uint64          `db:"site_version_id"`
	PayloadJSON   json.RawMessage `db:"payload_json"`
	Checksum      string          `db:"checksum"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at,omitempty"`
}

type SiteDomain struct {
	ID                uint64              `db:"id"`
	SiteID            uint64              `db:"site_id"`
	Host              string              `db:"host"`
	Type              consts.DomainType   `db:"type"`
	Status            consts.DomainStatus `db:"status"`
	VerificationToken *string             `db:"verification_token"`
	VerifiedAt        *time.Time          `db:"verified_at"`
	CreatedAt         time.Time           `db:"created_at"`
}

type PreviewSession struct {
	ID            uint64     `db:"id"`
	SiteID        uint64     `db:"site_id"`
	SiteVersionID uint64     `db:"site_version_id"`
	Token         string     `db:"token"`
	ExpiresAt     time.Time  `db:"expires_at"`
	CreatedBy     *uuid.UUID `db:"created_by"`
	CreatedAt     time.Time  `db:"created_at"`
}

type Theme struct {
	ID                 uint64          `db:"id"`
	Key                string          `db:"key"`
	Name               string          `db:"name"`
	IsActive           bool            `db:"is_active"`
	DefaultPayloadJSON json.RawMessage `db:"default_payload_json"`
}

type ThemeManifest struct {
	ID           uint64          `db:"id"`
	ThemeID      uint64          `db:"theme_id"`
	ManifestJSON json.RawMessage `db:"manifest_json"`
	Checksum     string          `db:"checksum"`
}

type Mail struct {
	ID         uint64    `db:"id"`
	MailType   string    `db:"type"`
	Recipients string    `db:"recipients"`
	Subject    string    `db:"subject"`
	Content    string    `db:"content"`
	SentAt     time.Time `db:"sent_at"`
}

type Outbox struct {
	ID        uint64          `db:"id"`
	Event     string          `db:"event"`
	Status    int             `db:"status"`
	Payload   json.RawMessage `db:"payload"`
	CreatedAt time.Time       `db:"created_at"`
}
