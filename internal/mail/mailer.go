package mail

import (
	"fmt"
	"net/smtp"

	"geofriends-service/internal/logger"
)

// Mailer is the outbound email collaborator. Sends are fire-and-forget from
// the engine's point of view: a failed verification mail leaves the already
// created user intact and is recovered via resend.
type Mailer interface {
	SendVerificationEmail(to, token string) error
	SendSupportEmail(adminEmail, userEmail, userName, message string) error
}

// SMTPConfig holds the SMTP transport settings.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// NewMailer builds an SMTP mailer, or a noop mailer when the transport is
// not configured.
func NewMailer(cfg SMTPConfig) Mailer {
	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" {
		logger.Warnf("email transport not configured, using noop mailer")
		return noopMailer{}
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &smtpMailer{cfg: cfg}
}

type smtpMailer struct {
	cfg SMTPConfig
}

func (m *smtpMailer) SendVerificationEmail(to, token string) error {
	subject := "Verifica tu cuenta de GeoFriends"
	body := fmt.Sprintf(
		"Hola,\r\n\r\n"+
			"Gracias por registrarte en GeoFriends. Por favor, usa el siguiente token para verificar tu cuenta:\r\n\r\n"+
			"    %s\r\n\r\n"+
			"Gracias,\r\nEl equipo de GeoFriends\r\n",
		token,
	)
	return m.send(to, subject, body)
}

func (m *smtpMailer) SendSupportEmail(adminEmail, userEmail, userName, message string) error {
	subject := fmt.Sprintf("Solicitud de soporte de %s", userName)
	body := fmt.Sprintf(
		"Mensaje de soporte de %s <%s>:\r\n\r\n%s\r\n",
		userName, userEmail, message,
	)
	return m.send(adminEmail, subject, body)
}

func (m *smtpMailer) send(to, subject, body string) error {
	addr := m.cfg.Host + ":" + m.cfg.Port
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)

	msg := []byte(
		"From: " + m.cfg.From + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" + body,
	)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		logger.Errorf("smtp send failed to=%s: %v", to, err)
		return err
	}
	logger.Infof("email sent to=%s subject=%q", to, subject)
	return nil
}

type noopMailer struct{}

func (noopMailer) SendVerificationEmail(to, token string) error {
	logger.Infof("noop mailer: verification email to=%s token=%s", to, token)
	return nil
}

func (noopMailer) SendSupportEmail(adminEmail, userEmail, userName, message string) error {
	logger.Infof("noop mailer: support email to=%s from=%s", adminEmail, userEmail)
	return nil
}
