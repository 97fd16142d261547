package processors_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lista-crm/sites-platform/internal/application/events"
	"github.com/lista-crm/sites-platform/internal/application/processors"
	"github.com/lista-crm/sites-platform/internal/infra/mail"
	"github.com/lista-crm/sites-platform/internal/testinfra"
	dbs "github.com/lista-crm/sites-platform/pkg/db"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	to      []string
	subject string
	body    string
	err     error
}

func (f *fakeSender) SendMail(to []string, subject, body string) error {
	f.to = to
	f.subject = subject
	f.body = body
	return f.err
}

func publishedEvent(recipient string) events.SendMail {
	return events.SendMail{
		SiteID:    7,
		Recipient: recipient,
		Subject:   mail.SitePublishedData{}.GetSubject(),
		Data:      mail.SitePublishedData{SiteURL: "https://acme.listacrmsites.com", Version: 3, Year: "2026"},
	}
}

func TestSendMailDeliversAndRecords(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	proc := processors.NewSendMail(sender, dbs.NewUoWFactory(testinfra.Pool))

	uow, err := proc.Handle(ctx, publishedEvent("owner@example.com"))
	require.NoError(t, err)
	require.NotNil(t, uow)
	require.NoError(t, uow.Commit())

	require.Equal(t, []string{"owner@example.com"}, sender.to)
	require.Equal(t, "Your site is live!", sender.subject)
	require.Contains(t, sender.body, "https://acme.listacrmsites.com")
	require.Contains(t, sender.body, "Version 3")

	var recorded int
	err = testinfra.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM platform.mails WHERE recipients = 'owner@example.com'").Scan(&recorded)
	require.NoError(t, err)
	require.Equal(t, 1, recorded)
}

func TestSendMailUnknownSubjectIsTerminal(t *testing.T) {
	sender := &fakeSender{}
	proc := processors.NewSendMail(sender, dbs.NewUoWFactory(testinfra.Pool))

	event := publishedEvent("owner@example.com")
	event.Subject = "some other subject"
	uow, err := proc.Handle(context.Background(), event)
	require.Error(t, err)
	require.Nil(t, uow)
	require.Empty(t, sender.to)
}

func TestSendMailDeliveryFailureSurfaces(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	proc := processors.NewSendMail(sender, dbs.NewUoWFactory(testinfra.Pool))

	uow, err := proc.Handle(context.Background(), publishedEvent("down@example.com"))
	require.Error(t, err)
	require.NotNil(t, uow)
	require.NoError(t, uow.Rollback())
}
