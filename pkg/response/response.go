package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/ai-declaration-api/pkg/errors"
)

const exposeDetailsKey = "response.expose_error_details"

// Envelope represents the common response contract.
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// ListEnvelope carries collection responses; data is always present.
type ListEnvelope struct {
	Success bool        `json:"success"`
	Count   int         `json:"count"`
	Data    interface{} `json:"data"`
}

// ExposeDetails decides whether underlying error causes reach the client.
// It is installed once on the router; production disables it.
func ExposeDetails(expose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(exposeDetailsKey, expose)
		c.Next()
	}
}

// List sends a success payload carrying a collection and its size.
func List(c *gin.Context, data interface{}, count int) {
	noStore(c)
	c.JSON(http.StatusOK, ListEnvelope{Success: true, Count: count, Data: data})
}

// Message sends a success payload with a human readable message.
func Message(c *gin.Context, status int, message string, data interface{}) {
	noStore(c)
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, message string, data interface{}) {
	Message(c, http.StatusCreated, message, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	envelope := Envelope{Success: false, Message: appErr.Message}
	if appErr.Status >= http.StatusInternalServerError && c.GetBool(exposeDetailsKey) {
		envelope.Error = appErr.Detail()
	}
	c.AbortWithStatusJSON(appErr.Status, envelope)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
