package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/rental-billing/internal/domain"
)

func testDigest() Digest {
	return Digest{
		GeneratedAt: time.Date(2025, 1, 29, 0, 0, 0, 0, time.UTC),
		WindowDays:  3,
		Upcoming: []domain.UpcomingPayment{
			{
				LeaseID:  "LEASE-1",
				RenterID: "RENTER-1",
				RoomID:   "ROOM-1",
				Month:    "2025-02",
				DueDate:  time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
				Amount:   decimal.NewFromInt(1000),
				Status:   domain.PaymentStatusPending,
			},
		},
	}
}

func TestEmailNotifier_SendDigest(t *testing.T) {
	logger, _ := test.NewNullLogger()
	n := NewEmailNotifier(SMTPConfig{Host: "smtp.example.com", Port: "587", From: "billing@example.com", To: []string{"ops@example.com"}}, logger)

	var sent *email.Email
	n.send = func(e *email.Email) error {
		sent = e
		return nil
	}

	require.NoError(t, n.SendDigest(context.Background(), testDigest()))
	require.NotNil(t, sent)
	assert.Equal(t, "billing@example.com", sent.From)
	assert.Equal(t, []string{"ops@example.com"}, sent.To)
	assert.Equal(t, "Rent due in the next 3 days: 1 payment(s)", sent.Subject)
	assert.Contains(t, string(sent.Text), "2025-01-29 and 2025-02-01")
	assert.Contains(t, string(sent.Text), "lease LEASE-1")
	assert.Contains(t, string(sent.Text), "1000.00")
}

func TestEmailNotifier_SendFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewEmailNotifier(SMTPConfig{From: "billing@example.com", To: []string{"ops@example.com"}}, logger)
	n.send = func(*email.Email) error { return errors.New("connection refused") }

	err := n.SendDigest(context.Background(), testDigest())

	assert.ErrorContains(t, err, "connection refused")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestComposeDigest_Empty(t *testing.T) {
	d := testDigest()
	d.Upcoming = nil

	e := composeDigest(SMTPConfig{From: "a@example.com", To: []string{"b@example.com"}}, d)

	assert.Contains(t, string(e.Text), "Nothing is due.")
}

func TestLogNotifier_SendDigest(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewLogNotifier(logger)

	require.NoError(t, n.SendDigest(context.Background(), testDigest()))

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "LEASE-1", entries[0].Data["lease_id"])
	assert.Equal(t, 1, entries[1].Data["count"])
}
