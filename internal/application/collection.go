package application

import (
	"github.com/lista-crm/sites-platform/internal/application/commands"
	"github.com/lista-crm/sites-platform/internal/application/processors"
	"github.com/lista-crm/sites-platform/internal/application/query"
)

type Collection struct {
	*commands.CreateSite
	*commands.UpdateDraft
	*commands.PublishSite
	*commands.CreatePreviewSession
	*query.GetSite
	*query.GetDraft
}

type Processors struct {
	*processors.MaterializeVersion
	*processors.SendMail
}
