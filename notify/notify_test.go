package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariebrainware/medibot/config"
	"github.com/ariebrainware/medibot/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emailCall struct {
	To      string
	Subject string
	Body    string
}

// recordingSender is a test double for EmailSender. Sends to addresses in failFor return an error.
type recordingSender struct {
	mu      sync.Mutex
	calls   []emailCall
	failFor map[string]bool
}

func (s *recordingSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, emailCall{To: to, Subject: subject, Body: body})
	if s.failFor[to] {
		return errors.New("connection refused")
	}
	return nil
}

func (s *recordingSender) Calls() []emailCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]emailCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func reminders() []model.MedicationReminder {
	return []model.MedicationReminder{
		{ID: 1, UserID: 10, MedicineName: "Aspirin", Dosage: "100mg", Email: "one@example.com"},
		{ID: 2, UserID: 11, MedicineName: "Metformin", Email: "two@example.com"},
		{ID: 3, UserID: 12, MedicineName: "Vitamin D", Frequency: "daily", Email: "three@example.com"},
	}
}

func TestDispatch_SendsOnePerReminder(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 0, zerolog.Nop())

	report := d.Dispatch(context.Background(), reminders(), "08:00")

	assert.Equal(t, Report{Matched: 3, Sent: 3}, report)
	calls := sender.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "one@example.com", calls[0].To)
	assert.Equal(t, Subject, calls[0].Subject)
	assert.Contains(t, calls[0].Body, "Aspirin (100mg)")
	assert.Contains(t, calls[0].Body, "08:00")
	assert.Contains(t, calls[2].Body, "Frequency: daily")
}

func TestDispatch_FailureDoesNotAbortBatch(t *testing.T) {
	sender := &recordingSender{failFor: map[string]bool{"two@example.com": true}}
	d := NewDispatcher(sender, 0, zerolog.Nop())

	report := d.Dispatch(context.Background(), reminders(), "20:00")

	assert.Equal(t, 3, report.Matched)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, uint(2), report.Errors[0].ReminderID)
	assert.Len(t, sender.Calls(), 3)

	var terr *TransportError
	assert.True(t, errors.As(report.Errors[0], &terr))
	assert.EqualError(t, errors.Unwrap(terr), "connection refused")
}

func TestDispatch_CancelledContextCountsUnsent(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := d.Dispatch(ctx, reminders(), "08:00")
	assert.Equal(t, 3, report.Matched)
	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 3, report.Failed)
	assert.Empty(t, sender.Calls())
}

func TestDispatch_RateLimited(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 20, zerolog.Nop())

	many := make([]model.MedicationReminder, 25)
	for i := range many {
		many[i] = model.MedicationReminder{ID: uint(i + 1), MedicineName: "Aspirin", Email: "a@b.co"}
	}

	start := time.Now()
	report := d.Dispatch(context.Background(), many, "08:00")
	assert.Equal(t, 25, report.Sent)
	// 20 burst tokens, the remaining 5 refill at 20/s.
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestComposeBody(t *testing.T) {
	body := ComposeBody(model.MedicationReminder{MedicineName: "Ibuprofen"}, "12:30")
	assert.Contains(t, body, "It is 12:30. Time to take your medicine: Ibuprofen.")
	assert.NotContains(t, body, "(")
	assert.NotContains(t, body, "Frequency")
}

func TestSMTPSender_BuildMessage(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Server: "smtp.example.com", Port: 465, UseSSL: true, Username: "bot@example.com"})

	msg, err := s.buildMessage("user@example.com", Subject, "body")
	require.NoError(t, err)
	assert.Equal(t, []string{"<user@example.com>"}, msg.GetToString())
	assert.Equal(t, []string{"<bot@example.com>"}, msg.GetFromString())

	_, err = s.buildMessage("not an address", Subject, "body")
	assert.Error(t, err)

	_, err = NewSMTPSender(config.MailConfig{}).buildMessage("user@example.com", Subject, "body")
	assert.Error(t, err)
}

func TestSMTPSender_ClientOptions(t *testing.T) {
	withAuth := NewSMTPSender(config.MailConfig{Port: 465, UseSSL: true, Username: "u", Password: "p"})
	assert.Len(t, withAuth.clientOptions(), 6)

	plain := NewSMTPSender(config.MailConfig{Port: 587})
	assert.Len(t, plain.clientOptions(), 3)
}
