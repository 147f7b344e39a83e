package endpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ariebrainware/medibot/middleware"
	"github.com/ariebrainware/medibot/model"
	"github.com/ariebrainware/medibot/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Sentinel errors for user operations
var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrUserNotFound  = errors.New("user not found")
)

type updateUserInfoRequest struct {
	UserID *uint `json:"user_id"`
	util.UserInput
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// usernameExists reports whether another account already uses username.
func usernameExists(db *gorm.DB, username string, excludeID uint) (bool, error) {
	var count int64
	q := db.Model(&model.UserInfo{}).Where("username = ?", username)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func findUser(db *gorm.DB, id uint) (model.UserInfo, error) {
	var user model.UserInfo
	err := db.Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user, ErrUserNotFound
	}
	return user, err
}

// applyUserInput copies the present fields of in onto user. in must be validated.
func applyUserInput(user *model.UserInfo, in util.UserInput) {
	if in.Username != nil {
		user.Username = *in.Username
	}
	if in.Password != nil {
		user.Password = util.HashPassword(*in.Password)
	}
	if in.Email != nil {
		user.Email = strings.TrimSpace(*in.Email)
	}
	if in.Age != nil {
		user.Age = *in.Age
	}
	if in.Height != nil {
		user.Height = *in.Height
	}
	if in.Weight != nil {
		user.Weight = *in.Weight
	}
}

func replyUserError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		util.CallConflict(c, util.APIErrorParams{
			Msg:    "Username already exists",
			Err:    err,
			Fields: map[string]string{"username": "already exists"},
		})
	case errors.Is(err, ErrUserNotFound):
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
	default:
		serverError(c, msg, err)
	}
}

// CreateUser handles POST /userinfo/createuser.
func CreateUser(c *gin.Context) {
	var in util.UserInput
	if !bindJSON(c, &in) {
		return
	}

	fields := util.ValidateUserData(&in)
	if in.Username == nil {
		fields["username"] = "is required"
	}
	if in.Password == nil {
		fields["password"] = "is required"
	}
	if len(fields) > 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid user data", Fields: fields})
		return
	}

	var user model.UserInfo
	err := middleware.RunScoped(c, middleware.ScopeReadWrite, func(tx *gorm.DB) error {
		exists, err := usernameExists(tx, *in.Username, 0)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if exists {
			return ErrUsernameTaken
		}
		applyUserInput(&user, in)
		return tx.Create(&user).Error
	})
	if err != nil {
		replyUserError(c, "Failed to create user", err)
		return
	}

	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventSignupSuccess,
		UserID:    fmt.Sprintf("%d", user.ID),
		Username:  user.Username,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   "User account created",
	})
	util.CallCreated(c, util.APISuccessParams{Msg: "User created", Data: user})
}

// UpdateUserInfo handles POST /userinfo/updateinfo. Only the fields present in
// the body change.
func UpdateUserInfo(c *gin.Context) {
	var req updateUserInfoRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireID(c, "user_id", req.UserID) {
		return
	}
	if fields := util.ValidateUserData(&req.UserInput); len(fields) > 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid user data", Fields: fields})
		return
	}

	var user model.UserInfo
	err := middleware.RunScoped(c, middleware.ScopeReadWrite, func(tx *gorm.DB) error {
		var err error
		if user, err = findUser(tx, *req.UserID); err != nil {
			return err
		}
		if req.Username != nil && *req.Username != user.Username {
			exists, err := usernameExists(tx, *req.Username, user.ID)
			if err != nil {
				return fmt.Errorf("check username: %w", err)
			}
			if exists {
				return ErrUsernameTaken
			}
		}
		applyUserInput(&user, req.UserInput)
		return tx.Save(&user).Error
	})
	if err != nil {
		replyUserError(c, "Failed to update user", err)
		return
	}

	if req.Password != nil {
		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventPasswordChanged,
			UserID:    fmt.Sprintf("%d", user.ID),
			Username:  user.Username,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Message:   "Password changed",
		})
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User updated", Data: user})
}

// GetUserInfo handles GET /userinfo/getinfo?user_id=.
func GetUserInfo(c *gin.Context) {
	id, ok := requiredUintQuery(c, "user_id")
	if !ok {
		return
	}

	var user model.UserInfo
	err := middleware.RunScoped(c, middleware.ScopeReadOnly, func(tx *gorm.DB) error {
		var err error
		user, err = findUser(tx, id)
		return err
	})
	if err != nil {
		replyUserError(c, "Failed to retrieve user", err)
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User retrieved", Data: user})
}

// Login handles POST /userinfo/login. It only verifies the credentials; no
// session is issued.
func Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: "Username and password are required"})
		return
	}

	ip, ua := c.ClientIP(), c.Request.UserAgent()
	var user model.UserInfo
	err := middleware.RunScoped(c, middleware.ScopeReadOnly, func(tx *gorm.DB) error {
		err := tx.Where("username = ?", username).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	})
	if errors.Is(err, ErrUserNotFound) {
		util.LogLoginFailure(username, ip, ua, "unknown username")
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid username or password"})
		return
	}
	if err != nil {
		serverError(c, "Failed to load user", err)
		return
	}

	if !util.VerifyPassword(req.Password, user.Password) {
		util.LogLoginFailure(username, ip, ua, "wrong password")
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid username or password"})
		return
	}

	util.LogLoginSuccess(user.ID, user.Username, ip, ua)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Login successful", Data: user})
}
