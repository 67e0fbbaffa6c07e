package mailer

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// SMTPConfig holds the outgoing mail server credentials
type SMTPConfig struct {
	Server   string
	Port     int
	Email    string
	Password string
}

// LoadSMTPConfig reads SMTP related config from a toml file
func LoadSMTPConfig(path string) (SMTPConfig, error) {
	var c SMTPConfig
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return SMTPConfig{}, fmt.Errorf("load smtp config %s: %w", path, err)
	}
	if c.Server == "" || c.Port == 0 || c.Email == "" {
		return SMTPConfig{}, fmt.Errorf("smtp config %s: Server, Port and Email are required", path)
	}
	return c, nil
}
