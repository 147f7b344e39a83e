package endpoint

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ariebrainware/medibot/middleware"
	"github.com/ariebrainware/medibot/util"
	"github.com/gin-gonic/gin"
)

const msgInvalidBody = "Invalid request body"

// bindJSON decodes the request body into dst and replies 400 when it is
// missing or malformed. It reports whether the handler may continue.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		msg := msgInvalidBody
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

// optionalUintQuery parses the query parameter key as a positive integer.
// A missing parameter yields nil; a malformed one replies 400.
func optionalUintQuery(c *gin.Context, key string) (*uint, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg:    fmt.Sprintf("Invalid %s", key),
			Err:    err,
			Fields: map[string]string{key: "must be a positive integer"},
		})
		return nil, false
	}
	id := uint(v)
	return &id, true
}

// requiredUintQuery is optionalUintQuery with a 400 when key is absent.
func requiredUintQuery(c *gin.Context, key string) (uint, bool) {
	v, ok := optionalUintQuery(c, key)
	if !ok {
		return 0, false
	}
	if v == nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg:    fmt.Sprintf("%s is required", key),
			Fields: map[string]string{key: "is required"},
		})
		return 0, false
	}
	return *v, true
}

// requireID replies 400 when a body id is missing.
func requireID(c *gin.Context, key string, id *uint) bool {
	if id == nil || *id == 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg:    fmt.Sprintf("%s is required", key),
			Fields: map[string]string{key: "is required"},
		})
		return false
	}
	return true
}

func serverError(c *gin.Context, msg string, err error) {
	if errors.Is(err, middleware.ErrNoDatabase) {
		msg = "Database connection not available"
	}
	util.CallServerError(c, util.APIErrorParams{Msg: msg, Err: err})
}
