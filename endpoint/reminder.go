package endpoint

import (
	"errors"

	"github.com/ariebrainware/medibot/middleware"
	"github.com/ariebrainware/medibot/reminder"
	"github.com/ariebrainware/medibot/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type updateReminderRequest struct {
	ReminderID *uint `json:"reminder_id"`
	reminder.UpdateInput
}

type deleteReminderRequest struct {
	ReminderID *uint `json:"reminder_id"`
}

// replyReminderError maps reminder store errors onto responses.
func replyReminderError(c *gin.Context, msg string, err error) {
	var verr *reminder.ValidationError
	switch {
	case errors.As(err, &verr):
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid reminder data", Err: err, Fields: verr.Fields})
	case errors.Is(err, reminder.ErrNotFound):
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Reminder not found", Err: err})
	case errors.Is(err, reminder.ErrBadRequest):
		util.CallUserError(c, util.APIErrorParams{
			Msg:    "user_id or reminder_id is required",
			Err:    err,
			Fields: map[string]string{"user_id": "user_id or reminder_id is required"},
		})
	default:
		serverError(c, msg, err)
	}
}

// CreateReminder handles POST /reminder/create.
func CreateReminder(c *gin.Context) {
	var in reminder.CreateInput
	if !bindJSON(c, &in) {
		return
	}

	var created reminder.View
	err := middleware.RunScoped(c, middleware.ScopeReadWrite, func(tx *gorm.DB) error {
		var err error
		created, err = reminder.NewStore(tx).Create(c.Request.Context(), in)
		return err
	})
	if err != nil {
		replyReminderError(c, "Failed to create reminder", err)
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Reminder created",
		Data: gin.H{
			"user_id":        created.UserID,
			"reminder_times": created.ReminderTimes,
			"reminder":       created,
		},
	})
}

// GetReminder handles GET /reminder/get?user_id=&reminder_id=.
func GetReminder(c *gin.Context) {
	userID, ok := optionalUintQuery(c, "user_id")
	if !ok {
		return
	}
	reminderID, ok := optionalUintQuery(c, "reminder_id")
	if !ok {
		return
	}

	var views []reminder.View
	err := middleware.RunScoped(c, middleware.ScopeReadOnly, func(tx *gorm.DB) error {
		var err error
		views, err = reminder.NewStore(tx).Get(c.Request.Context(), reminder.Query{UserID: userID, ReminderID: reminderID})
		return err
	})
	if err != nil {
		replyReminderError(c, "Failed to retrieve reminders", err)
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Reminders retrieved",
		Data: gin.H{"reminder": views, "count": len(views)},
	})
}

// UpdateReminder handles POST /reminder/update.
func UpdateReminder(c *gin.Context) {
	var req updateReminderRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireID(c, "reminder_id", req.ReminderID) {
		return
	}

	var updated reminder.View
	err := middleware.RunScoped(c, middleware.ScopeReadWrite, func(tx *gorm.DB) error {
		var err error
		updated, err = reminder.NewStore(tx).Update(c.Request.Context(), *req.ReminderID, req.UpdateInput)
		return err
	})
	if err != nil {
		replyReminderError(c, "Failed to update reminder", err)
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Reminder updated",
		Data: gin.H{"reminder": updated},
	})
}

// DeleteReminder handles POST /reminder/delete.
func DeleteReminder(c *gin.Context) {
	var req deleteReminderRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireID(c, "reminder_id", req.ReminderID) {
		return
	}

	var deleted uint
	err := middleware.RunScoped(c, middleware.ScopeReadWrite, func(tx *gorm.DB) error {
		var err error
		deleted, err = reminder.NewStore(tx).Delete(c.Request.Context(), *req.ReminderID)
		return err
	})
	if err != nil {
		replyReminderError(c, "Failed to delete reminder", err)
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Reminder deleted",
		Data: gin.H{"deleted_id": deleted},
	})
}
