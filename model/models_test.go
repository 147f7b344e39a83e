package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/datatypes"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "medication_reminder", MedicationReminder{}.TableName())
	assert.Equal(t, "userinfo", UserInfo{}.TableName())
	assert.Equal(t, "health_articles", HealthArticle{}.TableName())
}

func TestMedicationReminder_CreateKeepsUpdatedAt(t *testing.T) {
	db := setupTestDB(t, "reminder", &MedicationReminder{})

	stamp := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	start := datatypes.Date(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	r := MedicationReminder{
		UserID:        1,
		MedicineName:  "Aspirin",
		ReminderTimes: "08:00,20:00",
		StartDate:     start,
		Email:         "a@b.co",
		IsActive:      true,
		CreatedAt:     stamp,
		UpdatedAt:     stamp,
	}
	require.NoError(t, db.Create(&r).Error)

	var found MedicationReminder
	require.NoError(t, db.First(&found, r.ID).Error)
	assert.True(t, found.UpdatedAt.Equal(stamp))
	assert.Nil(t, found.EndDate)
	assert.True(t, found.IsActive)
}

func TestMedicationReminder_FalseIsActivePersists(t *testing.T) {
	db := setupTestDB(t, "reminder_inactive", &MedicationReminder{})

	r := MedicationReminder{UserID: 1, MedicineName: "X", ReminderTimes: "08:00", Email: "a@b.co", IsActive: false}
	require.NoError(t, db.Create(&r).Error)

	var found MedicationReminder
	require.NoError(t, db.First(&found, r.ID).Error)
	assert.False(t, found.IsActive)
}

func TestUserInfo_UniqueUsername(t *testing.T) {
	db := setupTestDB(t, "userinfo", &UserInfo{})

	require.NoError(t, db.Create(&UserInfo{Username: "alice", Password: "digest"}).Error)
	assert.Error(t, db.Create(&UserInfo{Username: "alice", Password: "digest"}).Error)
}

func TestUserInfo_JSONHidesPassword(t *testing.T) {
	raw, err := json.Marshal(UserInfo{ID: 1, Username: "alice", Password: "digest"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "digest")
	assert.Contains(t, string(raw), `"username":"alice"`)
}

func TestConsultationSession_BSONShape(t *testing.T) {
	s := ConsultationSession{
		ID:        primitive.NewObjectID(),
		UserID:    9,
		Status:    SessionActive,
		StartTime: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Messages:  []ConsultationMessage{{Role: "user", Content: "hi"}},
	}
	raw, err := bson.Marshal(s)
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, s.ID, doc["_id"])
	assert.Equal(t, SessionActive, doc["status"])
	assert.NotContains(t, doc, "end_time")
	assert.Len(t, doc["messages"], 1)
}
