package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/surveyflow/utils"
)

// ClientFingerprint is the duplicate-submission key of the caller for the
// current UTC day.
func ClientFingerprint(c *gin.Context) string {
	return utils.Fingerprint(c.Request.UserAgent(), c.ClientIP(), time.Now())
}
