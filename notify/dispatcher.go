package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/medibot/model"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Subject is the fixed subject line of reminder emails.
const Subject = "💊 Medication reminder"

const defaultSendTimeout = 30 * time.Second

// TransportError records a reminder whose email could not be handed to the mail server.
type TransportError struct {
	ReminderID uint
	To         string
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("reminder %d: send to %s failed: %v", e.ReminderID, e.To, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Report summarises one dispatch run.
type Report struct {
	Matched int               `json:"matched"`
	Sent    int               `json:"sent"`
	Failed  int               `json:"failed"`
	Errors  []*TransportError `json:"-"`
}

// Dispatcher turns matched reminders into emails.
type Dispatcher struct {
	sender      EmailSender
	limiter     *rate.Limiter
	sendTimeout time.Duration
	log         zerolog.Logger
}

// NewDispatcher paces sends at ratePerSec messages per second. A non-positive
// rate disables pacing.
func NewDispatcher(sender EmailSender, ratePerSec float64, log zerolog.Logger) *Dispatcher {
	limit := rate.Inf
	burst := 1
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
		burst = int(ratePerSec)
		if burst < 1 {
			burst = 1
		}
	}
	return &Dispatcher{
		sender:      sender,
		limiter:     rate.NewLimiter(limit, burst),
		sendTimeout: defaultSendTimeout,
		log:         log.With().Str("component", "dispatcher").Logger(),
	}
}

// WithSendTimeout bounds each individual send.
func (d *Dispatcher) WithSendTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.sendTimeout = timeout
	}
	return d
}

// ComposeBody renders the reminder email body for the tick at clock.
func ComposeBody(r model.MedicationReminder, clock string) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "It is %s. Time to take your medicine: %s", clock, r.MedicineName)
	if r.Dosage != "" {
		fmt.Fprintf(&b, " (%s)", r.Dosage)
	}
	b.WriteString(".\n")
	if r.Frequency != "" {
		fmt.Fprintf(&b, "Frequency: %s\n", r.Frequency)
	}
	b.WriteString("\nStay healthy!\n")
	return b.String()
}

// Dispatch sends one email per reminder. A failed send is logged and counted
// and does not stop the remaining reminders. Cancelling ctx stops the run and
// counts the unsent reminders as failed.
func (d *Dispatcher) Dispatch(ctx context.Context, reminders []model.MedicationReminder, clock string) Report {
	report := Report{Matched: len(reminders)}

	for i, r := range reminders {
		if err := d.limiter.Wait(ctx); err != nil {
			remaining := len(reminders) - i
			report.Failed += remaining
			d.log.Warn().Err(err).Int("unsent", remaining).Msg("dispatch interrupted")
			break
		}

		if err := d.send(ctx, r, clock); err != nil {
			terr := &TransportError{ReminderID: r.ID, To: r.Email, Err: err}
			report.Failed++
			report.Errors = append(report.Errors, terr)
			d.log.Error().Err(err).
				Uint("reminder_id", r.ID).
				Uint("user_id", r.UserID).
				Str("clock", clock).
				Msg("reminder email failed")
			continue
		}

		report.Sent++
		d.log.Info().
			Uint("reminder_id", r.ID).
			Uint("user_id", r.UserID).
			Str("medicine", r.MedicineName).
			Str("clock", clock).
			Msg("reminder email sent")
	}
	return report
}

func (d *Dispatcher) send(ctx context.Context, r model.MedicationReminder, clock string) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.sender.SendEmail(sendCtx, r.Email, Subject, ComposeBody(r, clock))
}
