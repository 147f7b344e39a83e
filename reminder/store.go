package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/medibot/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateInput carries the fields accepted when creating a reminder.
type CreateInput struct {
	UserID        uint     `json:"user_id"`
	MedicineName  string   `json:"medicine_name"`
	ReminderTimes TimeList `json:"reminder_times"`
	Email         string   `json:"email"`
	StartDate     string   `json:"start_date,omitempty"`
	EndDate       string   `json:"end_date,omitempty"`
	Dosage        string   `json:"dosage,omitempty"`
	Frequency     string   `json:"frequency,omitempty"`
}

// UpdateInput carries the allow-listed updatable fields. A nil field is left unchanged.
// An empty EndDate clears the end of the window.
type UpdateInput struct {
	MedicineName  *string   `json:"medicine_name"`
	ReminderTimes *TimeList `json:"reminder_times"`
	Email         *string   `json:"email"`
	StartDate     *string   `json:"start_date"`
	EndDate       *string   `json:"end_date"`
	IsActive      *bool     `json:"is_active"`
	Dosage        *string   `json:"dosage"`
	Frequency     *string   `json:"frequency"`
}

// Query selects reminders by owner, by id, or both.
type Query struct {
	UserID     *uint
	ReminderID *uint
}

// View is the user-visible shape of a reminder.
type View struct {
	ID            uint      `json:"id"`
	UserID        uint      `json:"user_id"`
	MedicineName  string    `json:"medicine_name"`
	Dosage        string    `json:"dosage"`
	Frequency     string    `json:"frequency"`
	ReminderTimes []string  `json:"reminder_times"`
	StartDate     string    `json:"start_date"`
	EndDate       *string   `json:"end_date"`
	Email         string    `json:"email"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToView converts a stored reminder into its user-visible form.
func ToView(r model.MedicationReminder) View {
	v := View{
		ID:            r.ID,
		UserID:        r.UserID,
		MedicineName:  r.MedicineName,
		Dosage:        r.Dosage,
		Frequency:     r.Frequency,
		ReminderTimes: ParseTimes(r.ReminderTimes),
		StartDate:     FormatDate(r.StartDate),
		Email:         r.Email,
		IsActive:      r.IsActive,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.EndDate != nil {
		end := FormatDate(*r.EndDate)
		v.EndDate = &end
	}
	return v
}

// Store persists reminders through the handle it was built with, usually a
// request-scoped transaction.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock replaces the clock used for timestamps and the default start date.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create validates in and inserts an active reminder. Nothing is written when
// any field is rejected.
func (s *Store) Create(ctx context.Context, in CreateInput) (View, error) {
	verr := &ValidationError{}
	now := s.now()

	if in.UserID == 0 {
		verr.add("user_id", "is required")
	}
	name := strings.TrimSpace(in.MedicineName)
	if name == "" {
		verr.add("medicine_name", "is required")
	}
	times, err := ValidateTimes(in.ReminderTimes)
	if err != nil {
		verr.add("reminder_times", err.Error())
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		verr.add("email", "is required")
	} else if !ValidateEmail(email) {
		verr.add("email", "invalid email format")
	}

	start := DateOf(now)
	if strings.TrimSpace(in.StartDate) != "" {
		if start, err = ParseDate(in.StartDate); err != nil {
			verr.add("start_date", err.Error())
		}
	}
	var end *datatypes.Date
	if strings.TrimSpace(in.EndDate) != "" {
		d, err := ParseDate(in.EndDate)
		if err != nil {
			verr.add("end_date", err.Error())
		} else {
			end = &d
		}
	}
	checkWindow(verr, start, end)

	if err := verr.errOrNil(); err != nil {
		return View{}, err
	}

	row := model.MedicationReminder{
		UserID:        in.UserID,
		MedicineName:  name,
		Dosage:        strings.TrimSpace(in.Dosage),
		Frequency:     strings.TrimSpace(in.Frequency),
		ReminderTimes: JoinTimes(times),
		StartDate:     start,
		EndDate:       end,
		Email:         email,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return View{}, fmt.Errorf("insert reminder: %w", err)
	}
	return ToView(row), nil
}

// Get returns the reminders matching q. Both selectors combine with AND.
func (s *Store) Get(ctx context.Context, q Query) ([]View, error) {
	if q.UserID == nil && q.ReminderID == nil {
		return nil, ErrBadRequest
	}

	tx := s.db.WithContext(ctx).Model(&model.MedicationReminder{})
	if q.UserID != nil {
		tx = tx.Where("user_id = ?", *q.UserID)
	}
	if q.ReminderID != nil {
		tx = tx.Where("id = ?", *q.ReminderID)
	}

	var rows []model.MedicationReminder
	if err := tx.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}

	views := make([]View, 0, len(rows))
	for _, r := range rows {
		views = append(views, ToView(r))
	}
	return views, nil
}

// Update applies the present fields of in to reminder id, re-validating each
// with the creation rules. updated_at is stamped even when in is empty.
func (s *Store) Update(ctx context.Context, id uint, in UpdateInput) (View, error) {
	db := s.db.WithContext(ctx)

	row, err := s.load(db, id)
	if err != nil {
		return View{}, err
	}

	verr := &ValidationError{}
	if in.MedicineName != nil {
		if name := strings.TrimSpace(*in.MedicineName); name == "" {
			verr.add("medicine_name", "must not be empty")
		} else {
			row.MedicineName = name
		}
	}
	if in.ReminderTimes != nil {
		if times, err := ValidateTimes(*in.ReminderTimes); err != nil {
			verr.add("reminder_times", err.Error())
		} else {
			row.ReminderTimes = JoinTimes(times)
		}
	}
	if in.Email != nil {
		if email := strings.TrimSpace(*in.Email); !ValidateEmail(email) {
			verr.add("email", "invalid email format")
		} else {
			row.Email = email
		}
	}
	if in.StartDate != nil {
		if d, err := ParseDate(*in.StartDate); err != nil {
			verr.add("start_date", err.Error())
		} else {
			row.StartDate = d
		}
	}
	if in.EndDate != nil {
		if strings.TrimSpace(*in.EndDate) == "" {
			row.EndDate = nil
		} else if d, err := ParseDate(*in.EndDate); err != nil {
			verr.add("end_date", err.Error())
		} else {
			row.EndDate = &d
		}
	}
	if in.IsActive != nil {
		row.IsActive = *in.IsActive
	}
	if in.Dosage != nil {
		row.Dosage = strings.TrimSpace(*in.Dosage)
	}
	if in.Frequency != nil {
		row.Frequency = strings.TrimSpace(*in.Frequency)
	}
	checkWindow(verr, row.StartDate, row.EndDate)

	if err := verr.errOrNil(); err != nil {
		return View{}, err
	}

	row.UpdatedAt = s.now()
	if err := db.Save(&row).Error; err != nil {
		return View{}, fmt.Errorf("update reminder %d: %w", id, err)
	}
	return ToView(row), nil
}

// Delete removes reminder id under a row lock. Of two concurrent deletes of the
// same id exactly one succeeds; the other gets ErrNotFound.
func (s *Store) Delete(ctx context.Context, id uint) (uint, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.MedicationReminder
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock reminder %d: %w", id, err)
		}

		res := tx.Where("id = ?", id).Delete(&model.MedicationReminder{})
		if res.Error != nil {
			return fmt.Errorf("delete reminder %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) load(db *gorm.DB, id uint) (model.MedicationReminder, error) {
	var row model.MedicationReminder
	err := db.Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, ErrNotFound
	}
	if err != nil {
		return row, fmt.Errorf("load reminder %d: %w", id, err)
	}
	return row, nil
}

func checkWindow(verr *ValidationError, start datatypes.Date, end *datatypes.Date) {
	if end == nil {
		return
	}
	if _, bad := verr.Fields["start_date"]; bad {
		return
	}
	if _, bad := verr.Fields["end_date"]; bad {
		return
	}
	if dateBefore(*end, start) {
		verr.add("end_date", "must not be before start_date")
	}
}
