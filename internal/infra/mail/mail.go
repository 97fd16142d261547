package mail

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Server delivers platform notifications over plain SMTP. The sender
// identity doubles as the From address.
type Server struct {
	cfg  *Config
	auth smtp.Auth
}

func NewServer(cfg *Config) *Server {
	return &Server{
		cfg:  cfg,
		auth: smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost),
	}
}

func (s *Server) SendMail(to []string, subject, body string) error {
	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort

	var msg strings.Builder
	msg.WriteString("From: " + s.cfg.Username + "\r\n")
	msg.WriteString("To: " + strings.Join(to, ",") + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n" + body)

	if err := smtp.SendMail(addr, s.auth, s.cfg.Username, to, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
