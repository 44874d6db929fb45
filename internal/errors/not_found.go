package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AbortWithReportNotFound sends a 404 when an event names a report that does not exist.
func AbortWithReportNotFound(c *gin.Context, reportID string) {
	c.AbortWithStatusJSON(http.StatusNotFound, NewAPIError("report not found", nil).ForReport(reportID))
}
