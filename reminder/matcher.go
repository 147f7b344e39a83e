package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/medibot/model"
	"gorm.io/gorm"
)

// ClockLayout is the HH:MM form reminder times are compared in.
const ClockLayout = "15:04"

// FormatClock renders t as HH:MM in t's location.
func FormatClock(t time.Time) string {
	return t.Format(ClockLayout)
}

// Matches reports whether r fires at clock. Matching is exact; there is no
// tolerance window, and a reminder without an email never fires.
func Matches(r model.MedicationReminder, clock string) bool {
	if strings.TrimSpace(r.Email) == "" {
		return false
	}
	for _, t := range ParseTimes(r.ReminderTimes) {
		if t == clock {
			return true
		}
	}
	return false
}

// DueReminders returns the active reminders whose date window contains the
// calendar date of now and whose times include the HH:MM of now. now must
// already be in the scheduling timezone.
func DueReminders(ctx context.Context, db *gorm.DB, now time.Time) ([]model.MedicationReminder, error) {
	today := DateOf(now)
	clock := FormatClock(now)

	var active []model.MedicationReminder
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("start_date <= ?", today).
		Where("(end_date IS NULL OR end_date >= ?)", today).
		Order("id").
		Find(&active).Error
	if err != nil {
		return nil, fmt.Errorf("query active reminders: %w", err)
	}

	due := make([]model.MedicationReminder, 0, len(active))
	for _, r := range active {
		if Matches(r, clock) {
			due = append(due, r)
		}
	}
	return due, nil
}
