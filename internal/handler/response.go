package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/speechrelay/api/internal/errs"
)

// respond wraps data in the uniform success envelope.
func respond(c *gin.Context, data gin.H) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// fail translates any error into the failure envelope. The status comes from
// the error's tagged kind; untagged errors are internal.
func fail(c *gin.Context, err error) {
	c.JSON(errs.StatusOf(err), gin.H{"success": false, "error": err.Error()})
}

// failMsg reports a request-shape problem as a 400-class failure.
func failMsg(c *gin.Context, msg string) {
	fail(c, errs.New(errs.KindInvalidInput, "%s", msg))
}
