package consts

// VersionStatus is the lifecycle state of a site version. A draft becomes
// published exactly once and never goes back.
type VersionStatus string

const (
	VersionStatusDraft     VersionStatus = "draft"
	VersionStatusPublished VersionStatus = "published"
	VersionStatusArchived  VersionStatus = "archived"
)

// Mode selects which tree of materialized objects a request is served from.
type Mode string

const (
	ModePublished Mode = "published"
	ModeDraft     Mode = "draft"
)

func (m Mode) Valid() bool {
	return m == ModePublished || m == ModeDraft
}

type DomainType string

const (
	DomainTypePlatformSubdomain DomainType = "platform_subdomain"
	DomainTypeCustomDomain      DomainType = "custom_domain"
)

type DomainStatus string

const (
	DomainStatusPending  DomainStatus = "pending"
	DomainStatusVerified DomainStatus = "verified"
	DomainStatusDisabled DomainStatus = "disabled"
)

type OutboxStatus int

const (
	NotProcessed OutboxStatus = iota
	Processed
	Processing
	InError
)
