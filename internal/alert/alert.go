// Package alert sends the malfunction e-mail when too much of the endoscope
// inventory is out of service.
package alert

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net"
	"strconv"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/endotrace/endotrace/internal/config"
)

// ErrDisabled is returned when alerting is switched off or has no recipients
var ErrDisabled = errors.New("malfunction alerts are disabled")

// Alert carries the figures reported in a malfunction e-mail
type Alert struct {
	Percentage float64
	Broken     int
	Total      int
	Threshold  float64
	At         time.Time
}

var bodyTemplate = template.Must(template.New("alert").Parse(`<html>
<body>
  <h2>Alerte Système EndoTrace</h2>
  <p><strong>Date:</strong> {{.At.Format "02/01/2006 15:04:05"}}</p>
  <div style="background-color: #ffebee; padding: 15px; border-left: 4px solid #f44336; margin: 10px 0;">
    <h3 style="color: #d32f2f; margin-top: 0;">Taux de panne critique détecté</h3>
    <ul>
      <li><strong>Pourcentage d'endoscopes en panne:</strong> {{printf "%.1f" .Percentage}}%</li>
      <li><strong>Nombre d'endoscopes en panne:</strong> {{.Broken}}</li>
      <li><strong>Total d'endoscopes:</strong> {{.Total}}</li>
    </ul>
  </div>
  <p><strong>Action requise:</strong> Le taux de panne des endoscopes a dépassé le seuil critique de {{printf "%.0f" .Threshold}}%.
  Une intervention immédiate est recommandée pour évaluer et réparer les équipements défaillants.</p>
  <p>Veuillez vous connecter au système EndoTrace pour plus de détails.</p>
  <hr>
  <p style="font-size: 12px; color: #666;">Cet email a été généré automatiquement par le système EndoTrace.</p>
</body>
</html>
`))

// Subject is the subject line of every malfunction e-mail
const Subject = "ALERTE EndoTrace - Taux de panne élevé"

// NewMessage renders the alert as an HTML message addressed to every recipient
func NewMessage(from string, to []string, a Alert) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithEncoding(mail.NoEncoding))
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(to...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(Subject)
	msg.SetDateWithValue(a.At)
	if err := msg.SetBodyHTMLTemplate(bodyTemplate, a); err != nil {
		return nil, fmt.Errorf("failed to render alert body: %w", err)
	}
	return msg, nil
}

// Mailer delivers alerts over SMTP, upgrading to STARTTLS when the server offers it
type Mailer struct {
	cfg config.AlertsConfig
	now func() time.Time
}

// NewMailer creates a mailer from the alert configuration
func NewMailer(cfg config.AlertsConfig) *Mailer {
	return &Mailer{cfg: cfg, now: time.Now}
}

// SendMalfunctionAlert mails the malfunction figures to every configured recipient
func (m *Mailer) SendMalfunctionAlert(ctx context.Context, percentage float64, broken, total int) error {
	if !m.cfg.Enabled || len(m.cfg.Recipients) == 0 {
		return ErrDisabled
	}

	msg, err := NewMessage(m.from(), m.cfg.Recipients, Alert{
		Percentage: percentage,
		Broken:     broken,
		Total:      total,
		Threshold:  m.cfg.Threshold,
		At:         m.now(),
	})
	if err != nil {
		return err
	}

	return m.session(ctx, func(c *mail.Client) error {
		if err := c.Send(msg); err != nil {
			return fmt.Errorf("failed to send alert: %w", err)
		}
		return nil
	})
}

// TestConnection connects, negotiates TLS and authenticates without sending mail
func (m *Mailer) TestConnection(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}
	return m.session(ctx, func(*mail.Client) error { return nil })
}

func (m *Mailer) from() string {
	if m.cfg.From != "" {
		return m.cfg.From
	}
	return m.cfg.Username
}

func (m *Mailer) client() (*mail.Client, error) {
	timeout := m.cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.SMTPPort),
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTLSConfig(&tls.Config{ServerName: m.cfg.SMTPHost, MinVersion: tls.VersionTLS12}),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return mail.NewClient(m.cfg.SMTPHost, opts...)
}

// session dials the server, runs fn on the authenticated connection and hangs up
func (m *Mailer) session(ctx context.Context, fn func(*mail.Client) error) error {
	c, err := m.client()
	if err != nil {
		return fmt.Errorf("invalid SMTP settings: %w", err)
	}

	addr := net.JoinHostPort(m.cfg.SMTPHost, strconv.Itoa(m.cfg.SMTPPort))
	if err := c.DialWithContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if err := fn(c); err != nil {
		_ = c.Close()
		return err
	}
	return c.Close()
}
