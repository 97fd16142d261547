package processors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/lista-crm/sites-platform/internal/application/events"
	"github.com/lista-crm/sites-platform/internal/infra/mail"
	dbs "github.com/lista-crm/sites-platform/pkg/db"
	shared "github.com/lista-crm/sites-platform/pkg/interfaces"
)

// Sender delivers a rendered message. *mail.Server is the production
// implementation.
type Sender interface {
	SendMail(to []string, subject, body string) error
}

// SendMail renders notification events from the outbox into HTML mail and
// records every delivery.
type SendMail struct {
	sender     Sender
	uowFactory *dbs.UOWFactory
}

func NewSendMail(sender Sender, uowFactory *dbs.UOWFactory) *SendMail {
	return &SendMail{sender: sender, uowFactory: uowFactory}
}

func (p *SendMail) Handle(ctx context.Context, event events.SendMail) (shared.UoW, error) {
	if event.Recipient == "" {
		return nil, fmt.Errorf("mail event for site %d has no recipient", event.SiteID)
	}
	mailData, err := mapToMailData(event)
	if err != nil {
		return nil, err
	}
	body, err := renderMailBody(mailData)
	if err != nil {
		return nil, err
	}

	uow := p.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}

	recipients := []string{event.Recipient}
	_, err = tx.Exec(ctx, `INSERT INTO platform.mails("type", recipients, subject, content, sent_at)
		VALUES ($1,$2,$3,$4,$5)`,
		mailData.GetMailType(), strings.Join(recipients, ","), event.Subject, body, time.Now())
	if err != nil {
		return uow, err
	}

	if err := p.sender.SendMail(recipients, event.Subject, body); err != nil {
		return uow, err
	}

	return uow, nil
}

func renderMailBody(data mail.MailData) (string, error) {
	tmpl, ok := mail.Template(data.GetMailType())
	if !ok {
		return "", fmt.Errorf("no template for mail type %v", data.GetMailType())
	}
	t, err := template.New("mail").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error rendering html, %v", err)
	}
	return buf.String(), nil
}

// mapToMailData recovers the typed mail payload from the event's Data field,
// which round-trips through the outbox as JSON.
func mapToMailData(event events.SendMail) (mail.MailData, error) {
	switch event.Subject {
	case mail.SitePublishedData{}.GetSubject():
		var published mail.SitePublishedData
		raw, _ := json.Marshal(event.Data)
		if err := json.Unmarshal(raw, &published); err != nil {
			return nil, fmt.Errorf("error mapping to mailData, %v", err)
		}
		return published, nil
	}

	return nil, fmt.Errorf("no such mailData type exists")
}
