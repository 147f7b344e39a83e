package endpoint

import (
	"net/http"

	"github.com/ariebrainware/medibot/util"
	"github.com/gin-gonic/gin"
)

// HealthCheck handles GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, util.APIResponse{
		Status:  util.StatusSuccess,
		Message: "ok",
	})
}
