package events

import (
	"time"

	"github.com/lista-crm/sites-platform/internal/domain/consts"
)

// SiteVersionPublished is written to the outbox inside the publish
// transaction and picked up by the materializer out-of-band.
type SiteVersionPublished struct {
	SiteID        uint64
	SiteVersionID uint64
	Version       int
	Mode          consts.Mode
	CreatedAt     time.Time
}

func (e SiteVersionPublished) GetType() string {
	return "SiteVersionPublished"
}

// MaterializeDraft requests a rebuild of the current draft tree, enqueued on
// draft save and on preview session issuance.
type MaterializeDraft struct {
	SiteID        uint64
	SiteVersionID uint64
	Version       int
	CreatedAt     time.Time
}

func (e MaterializeDraft) GetType() string {
	return "MaterializeDraft"
}

// SendMail carries a notification in the same outbox transaction as the
// state change it reports. Data holds the mail-type specific fields.
type SendMail struct {
	SiteID    uint64
	Recipient string
	Subject   string
	Data      any
	CreatedAt time.Time
}

func (e SendMail) GetType() string {
	return "SendMail"
}
