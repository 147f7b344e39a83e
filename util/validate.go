package util

import (
	"strings"
	"unicode/utf8"

	"github.com/ariebrainware/medibot/reminder"
)

// UserInput is the user profile payload. Nil fields were not sent.
type UserInput struct {
	Username *string  `json:"username"`
	Password *string  `json:"password"`
	Email    *string  `json:"email"`
	Age      *int     `json:"age"`
	Height   *float64 `json:"height"`
	Weight   *float64 `json:"weight"`
}

// ValidateUserData checks every present field and returns a field to reason
// map. Username is trimmed in place.
func ValidateUserData(in *UserInput) map[string]string {
	errs := map[string]string{}

	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if n := utf8.RuneCountInString(name); n < 2 || n > 20 {
			errs["username"] = "Length must be 2-20 characters"
		} else {
			in.Username = &name
		}
	}
	if in.Password != nil && len(*in.Password) < 6 {
		errs["password"] = "Must be at least 6 characters"
	}
	if in.Email != nil && *in.Email != "" && !reminder.ValidateEmail(*in.Email) {
		errs["email"] = "Invalid email format"
	}
	if in.Age != nil && (*in.Age < 0 || *in.Age > 120) {
		errs["age"] = "Must be 0-120"
	}
	if in.Height != nil && (*in.Height < 0 || *in.Height > 300) {
		errs["height"] = "Must be 0-300"
	}
	if in.Weight != nil && (*in.Weight < 0 || *in.Weight > 1000) {
		errs["weight"] = "Must be 0-1000"
	}
	return errs
}
