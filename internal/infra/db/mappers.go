package db

import (
	"encoding/json"
	"log/slog"

	"github.com/lista-crm/sites-platform/internal/application/events"
)

func MapOutboxModelToSiteVersionPublished(outbox Outbox) events.SiteVersionPublished {
	var published events.SiteVersionPublished
	if err := json.Unmarshal(outbox.Payload, &published); err != nil {
		slog.Error("error unmarshaling event", "err", err)
		return events.SiteVersionPublished{}
	}
	published.CreatedAt = outbox.CreatedAt

	return published
}

func MapOutboxModelToMaterializeDraft(outbox Outbox) events.MaterializeDraft {
	var materialize events.MaterializeDraft
	if err := json.Unmarshal(outbox.Payload, &materialize); err != nil {
		slog.Error("error unmarshaling event", "err", err)
		return events.MaterializeDraft{}
	}
	materialize.CreatedAt = outbox.CreatedAt

	return materialize
}

func MapOutboxModelToSendMail(outbox Outbox) events.SendMail {
	var sendMail events.SendMail
	if err := json.Unmarshal(outbox.Payload, &sendMail); err != nil {
		slog.Error("error unmarshaling event", "err", err)
		return events.SendMail{}
	}
	sendMail.CreatedAt = outbox.CreatedAt

	return sendMail
}
