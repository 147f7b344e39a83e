package util

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	// ServerErrorMessage is the only message clients see for 5xx responses.
	ServerErrorMessage = "Internal server error"
)

// APIResponse is the JSON envelope of every endpoint.
type APIResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type APIErrorParams struct {
	Msg    string
	Err    error
	Fields map[string]string
}

type APISuccessParams struct {
	Msg  string
	Data interface{}
}

// Contains function is to check item whether is exist or not in a list and will return bool
func Contains(d string, dl []string) bool {
	for _, v := range dl {
		if v == d {
			return true
		}
	}
	return false
}

func callError(c *gin.Context, status int, params APIErrorParams) {
	if params.Err != nil {
		Logger().Debug().
			Str("request_id", c.GetString("request_id")).
			Int("status", status).
			Err(params.Err).
			Msg(params.Msg)
	}
	c.JSON(status, APIResponse{
		Status:  StatusError,
		Message: params.Msg,
		Errors:  params.Fields,
	})
}

// CallErrorNotFound is for return API response not found
func CallErrorNotFound(c *gin.Context, params APIErrorParams) {
	callError(c, http.StatusNotFound, params)
}

// CallUserError is for return error from user side
func CallUserError(c *gin.Context, params APIErrorParams) {
	callError(c, http.StatusBadRequest, params)
}

// CallConflict is for return API response with status code 409
func CallConflict(c *gin.Context, params APIErrorParams) {
	callError(c, http.StatusConflict, params)
}

// CallTooManyRequests is for return API response with status code 429
func CallTooManyRequests(c *gin.Context, params APIErrorParams) {
	callError(c, http.StatusTooManyRequests, params)
}

// CallUserNotAuthorized is for return API response with status code 401
func CallUserNotAuthorized(c *gin.Context, params APIErrorParams) {
	callError(c, http.StatusUnauthorized, params)
}

// CallServerError logs the underlying error with params.Msg and replies with a
// generic body; storage details never reach the client.
func CallServerError(c *gin.Context, params APIErrorParams) {
	evt := Logger().Error().
		Str("request_id", c.GetString("request_id")).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path)
	if params.Err != nil {
		evt = evt.Err(params.Err)
	}
	evt.Msg(params.Msg)

	c.JSON(http.StatusInternalServerError, APIResponse{
		Status:  StatusError,
		Message: ServerErrorMessage,
	})
}

// CallSuccessOK is for return API response with status code 200, you need to specify msg, and data as function parameter
func CallSuccessOK(c *gin.Context, params APISuccessParams) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  StatusSuccess,
		Message: params.Msg,
		Data:    params.Data,
	})
}

// CallCreated is for return API response with status code 201
func CallCreated(c *gin.Context, params APISuccessParams) {
	c.JSON(http.StatusCreated, APIResponse{
		Status:  StatusSuccess,
		Message: params.Msg,
		Data:    params.Data,
	})
}

// NormalizeName normalizes a name by trimming leading/trailing whitespace
// and collapsing multiple internal spaces into single spaces.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	return strings.Join(strings.Fields(name), " ")
}
