package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Renderer turns a named view and its context mapping into a response body.
// HTML templates live outside this module; the default renderer emits JSON.
type Renderer interface {
	Render(ctx *gin.Context, status int, view string, data gin.H)
}

// JSONRenderer renders views as the standard JSON envelope.
type JSONRenderer struct{}

// Render writes {"view": view, ...data} inside the envelope.
func (JSONRenderer) Render(ctx *gin.Context, status int, view string, data gin.H) {
	body := gin.H{"view": view}
	for k, v := range data {
		body[k] = v
	}
	message := "success"
	if status >= http.StatusBadRequest {
		message = "invalid form"
	}
	Respond(ctx, status, 0, message, body)
}
