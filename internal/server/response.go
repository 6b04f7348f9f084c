package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heartlink/discovery/internal/apperr"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK writes a success envelope.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// Fail maps an error to its HTTP status through the error taxonomy and writes
// a failure envelope.
func Fail(c *gin.Context, err error) {
	status, msg := apperr.HTTPStatus(err)
	c.JSON(status, envelope{Success: false, Error: msg})
}
