package mail

type MailType string

const (
	SitePublished MailType = "SitePublished"
)

type MailData interface {
	GetMailType() MailType
	GetSubject() string
}

type SitePublishedData struct {
	SiteURL string
	Version int
	Year    string
}

func (s SitePublishedData) GetMailType() MailType {
	return SitePublished
}

func (s SitePublishedData) GetSubject() string {
	return "Your site is live!"
}

// Template returns the HTML body template for a mail type.
func Template(mailType MailType) (string, bool) {
	tmpl, ok := templates[mailType]
	return tmpl, ok
}

var templates = map[MailType]string{
	SitePublished: `<html><body>
<p>Version {{.Version}} of your site is now live at <a href="{{.SiteURL}}">{{.SiteURL}}</a>.</p>
<p>&copy; {{.Year}} Lista CRM</p>
</body></html>`,
}
