package mail

import (
	"github.com/lista-crm/sites-platform/pkg/env"
)

type Config struct {
	SMTPHost string
	SMTPPort string
	Username string
	Password string
}

func NewConfig() *Config {
	return &Config{
		SMTPHost: env.GetEnv("MAIL_HOST", ""),
		SMTPPort: env.GetEnv("MAIL_PORT", "587"),
		Username: env.GetEnv("MAIL_USERNAME", ""),
		Password: env.GetEnv("MAIL_PASSWORD", ""),
	}
}
