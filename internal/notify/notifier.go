// Package notify delivers the periodic payment reminder digest.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/rental-billing/internal/domain"
	"github.com/segyhp/rental-billing/pkg/utils"
)

// Digest lists the payments due within the reminder window.
type Digest struct {
	GeneratedAt time.Time
	WindowDays  int
	Upcoming    []domain.UpcomingPayment
}

// Notifier sends a digest somewhere a human will read it.
type Notifier interface {
	SendDigest(ctx context.Context, d Digest) error
}

// SMTPConfig holds the mail server and envelope settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       []string
}

// EmailNotifier sends the digest as a plain-text email.
type EmailNotifier struct {
	cfg    SMTPConfig
	logger *logrus.Logger
	send   func(e *email.Email) error
}

func NewEmailNotifier(cfg SMTPConfig, logger *logrus.Logger) *EmailNotifier {
	n := &EmailNotifier{cfg: cfg, logger: logger}
	n.send = n.sendSMTP
	return n
}

func (n *EmailNotifier) SendDigest(_ context.Context, d Digest) error {
	e := composeDigest(n.cfg, d)

	if err := n.send(e); err != nil {
		n.logger.Errorf("Failed to send payment digest to %s: %v", strings.Join(e.To, ","), err)
		return fmt.Errorf("failed to send payment digest: %w", err)
	}

	n.logger.Infof("Payment digest sent to %s: %s", strings.Join(e.To, ","), e.Subject)
	return nil
}

func (n *EmailNotifier) sendSMTP(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	return e.Send(addr, auth)
}

func composeDigest(cfg SMTPConfig, d Digest) *email.Email {
	e := email.NewEmail()
	e.From = cfg.From
	e.To = append([]string(nil), cfg.To...)
	e.Subject = fmt.Sprintf("Rent due in the next %d days: %d payment(s)", d.WindowDays, len(d.Upcoming))

	var b strings.Builder
	fmt.Fprintf(&b, "Payments due between %s and %s:\n\n",
		d.GeneratedAt.Format(utils.DateLayout),
		d.GeneratedAt.AddDate(0, 0, d.WindowDays).Format(utils.DateLayout))
	if len(d.Upcoming) == 0 {
		b.WriteString("Nothing is due.\n")
	}
	for _, p := range d.Upcoming {
		fmt.Fprintf(&b, "- %s  lease %s  room %s  renter %s  %s  %s\n",
			p.DueDate.Format(utils.DateLayout), p.LeaseID, p.RoomID, p.RenterID, p.Amount.StringFixed(2), p.Status)
	}
	b.WriteString("\nRental Billing")
	e.Text = []byte(b.String())
	return e
}

// LogNotifier writes the digest to the log. Used when SMTP is not configured.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendDigest(_ context.Context, d Digest) error {
	for _, p := range d.Upcoming {
		n.logger.WithFields(logrus.Fields{
			"lease_id": p.LeaseID,
			"month":    p.Month,
			"due_date": p.DueDate.Format(utils.DateLayout),
			"amount":   p.Amount.String(),
		}).Info("Payment due soon")
	}
	n.logger.WithField("count", len(d.Upcoming)).Info("Payment digest complete")
	return nil
}
