// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the small response helpers shared by all endpoints.
// Handlers never shape error bodies themselves: failures are recorded on the
// Gin context with fail() and rendered by middleware.ErrorHandler, which
// produces the uniform
//
//	{ "message": "...", "stack": "..." | null }
//
// Success responses are written with ok() as plain JSON resources.
package handlers

import (
	"github.com/gin-gonic/gin"
)

// MessageResponse is a body carrying only a human-readable message, used by
// endpoints that have no resource to return (e.g. delete).
type MessageResponse struct {
	Message string `json:"message" example:"Car part removed"`
}

// fail records err for the error normalizer and stops the handler chain.
// A non-zero status is set on the response first; the normalizer keeps any
// status other than 200.
func fail(c *gin.Context, status int, err error) {
	if status != 0 {
		c.Status(status)
	}
	_ = c.Error(err)
	c.Abort()
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
