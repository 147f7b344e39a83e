package model

import (
	"time"

	"gorm.io/datatypes"
)

// MedicationReminder is a scheduled medication email reminder.
// ReminderTimes holds comma-joined HH:MM entries in the order the user gave them.
type MedicationReminder struct {
	ID            uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID        uint            `json:"user_id" gorm:"column:user_id;not null;index"`
	MedicineName  string          `json:"medicine_name" gorm:"column:medicine_name;type:varchar(255);not null"`
	Dosage        string          `json:"dosage" gorm:"column:dosage;type:varchar(255)"`
	Frequency     string          `json:"frequency" gorm:"column:frequency;type:varchar(255)"`
	ReminderTimes string          `json:"reminder_times" gorm:"column:reminder_times;type:varchar(512);not null"`
	StartDate     datatypes.Date  `json:"start_date" gorm:"column:start_date;not null;index"`
	EndDate       *datatypes.Date `json:"end_date" gorm:"column:end_date"`
	Email         string          `json:"email" gorm:"column:email;type:varchar(191);not null"`
	IsActive      bool            `json:"is_active" gorm:"column:is_active;not null;index"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:false"`
}

func (MedicationReminder) TableName() string {
	return "medication_reminder"
}
