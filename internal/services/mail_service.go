package services

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"path/filepath"
	"strings"

	"tickertalk/internal/config"
	"tickertalk/internal/utils"
)

// Mailer delivers the account emails.
type Mailer interface {
	SendVerificationCode(to, name, code string) error
	SendPasswordReset(to, name, link string) error
}

var ErrMailNotConfigured = errors.New("smtp is not configured")

type MailService struct {
	Host        string
	Port        string
	Username    string
	Password    string
	From        string
	TemplateDir string
	Enabled     bool
}

func NewMailService(cfg config.AppConfig) *MailService {
	enabled := cfg.SMTPHost != "" && cfg.SMTPPort != "" && cfg.SMTPFrom != ""
	if !enabled {
		utils.Sugar.Warn("MailService disabled: missing SMTP environment variables")
	}
	return &MailService{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPass,
		From:        cfg.SMTPFrom,
		TemplateDir: filepath.Join(cfg.TemplatesDir, "email"),
		Enabled:     enabled,
	}
}

// send delivers synchronously so callers can surface failures.
func (s *MailService) send(to []string, subject string, body string) error {
	if !s.Enabled {
		return ErrMailNotConfigured
	}

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: TickerTalk <%s>\r\n"+
		"Subject: %s\r\n"+
		"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

	if err := smtp.SendMail(addr, auth, s.From, to, msg); err != nil {
		utils.Sugar.Errorw("failed to send email", "to", to, "subject", subject, "error", err)
		return err
	}
	utils.Sugar.Infow("email sent", "to", to, "subject", subject)
	return nil
}

func (s *MailService) parseTemplate(templateName string, data interface{}) (string, error) {
	path := filepath.Join(s.TemplateDir, templateName)
	t, err := template.ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func (s *MailService) SendVerificationCode(email, name, code string) error {
	body, err := s.parseTemplate("verify.html", map[string]string{
		"Name": name,
		"Code": code,
	})
	if err != nil {
		return err
	}
	return s.send([]string{email}, "Your TickerTalk verification code", body)
}

func (s *MailService) SendPasswordReset(email, name, link string) error {
	body, err := s.parseTemplate("reset.html", map[string]string{
		"Name": name,
		"Link": link,
	})
	if err != nil {
		return err
	}
	return s.send([]string{email}, "Reset your TickerTalk password", body)
}
