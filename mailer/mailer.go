package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
)

const (
	mime = "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"minutes": func(m float64) string { return fmt.Sprintf("%.0f", m) },
}).ParseFS(templateFS, "templates/*.html"))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service sends html emails through the configured SMTP server
type Service struct {
	config SMTPConfig
	send   sendFunc
}

// NewService creates a mailer for the given SMTP server
func NewService(c SMTPConfig) *Service {
	return &Service{config: c, send: smtp.SendMail}
}

// Render executes the named template with data
func Render(templateName string, data interface{}) (string, error) {
	buffer := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(buffer, templateName, data); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// Send email from configured SMTP server
func (s *Service) Send(templateName string, templateData interface{}, subject string, recipient string) error {
	body, err := Render(templateName, templateData)
	if err != nil {
		return err
	}
	content := "To: " + recipient + "\r\nSubject: " + subject + "\r\n" + mime + "\r\n" + body
	addr := fmt.Sprintf("%s:%d", s.config.Server, s.config.Port)
	auth := smtp.PlainAuth("", s.config.Email, s.config.Password, s.config.Server)
	return s.send(addr, auth, s.config.Email, []string{recipient}, []byte(content))
}
