package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/courtside/matchplay/config"
	"github.com/courtside/matchplay/models"
)

// EmailService доставляет приглашения адресатам без аккаунта. Вызывается
// только после успешного создания приглашения; сбой доставки логируется
// вызывающей стороной и не отменяет операцию.
type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

var inviteEmailTemplate = template.Must(template.New("invite").Parse(`
<p>{{.InviterName}} invited you to form a team{{if .TeamName}} "{{.TeamName}}"{{end}}.</p>
{{if .Message}}<p>{{.Message}}</p>{{end}}
<p><a href="{{.Link}}">Open the invite</a> — the link is valid until {{.ExpiresAt}}.</p>
`))

func (s *EmailService) SendInviteEmail(ctx context.Context, to, inviterName string, invite *models.TeamInvite) error {
	data := struct {
		InviterName string
		TeamName    string
		Message     string
		Link        string
		ExpiresAt   string
	}{
		InviterName: inviterName,
		Link:        fmt.Sprintf("%s/invites/%s", s.cfg.PublicURL, invite.Code),
		ExpiresAt:   invite.ExpiresAt.Format("Jan 2, 2006"),
	}
	if invite.TeamName != nil {
		data.TeamName = *invite.TeamName
	}
	if invite.Message != nil {
		data.Message = *invite.Message
	}

	var body bytes.Buffer
	if err := inviteEmailTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render invite email: %w", err)
	}

	return s.send([]string{to}, "You have a team invite", body.String())
}

func (s *EmailService) send(to []string, subject, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	tlsconfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
	}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Прямое TLS-соединение (обычно порт 465)
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("smtp client: %w", err)
		}
	} else {
		// STARTTLS (обычно порт 587)
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}
