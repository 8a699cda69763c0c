package common

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the standard API response envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AppError represents an application error with an HTTP status code
type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// SuccessResponse writes a successful JSON response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// CreatedResponse writes a 201 JSON response
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// ErrorResponse writes an error JSON response with the given status code
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Success: false, Error: message})
}

// AppErrorResponse writes an error response from an AppError
func AppErrorResponse(c *gin.Context, err *AppError) {
	code := err.Code
	if code == 0 {
		code = http.StatusInternalServerError
	}
	c.JSON(code, Response{Success: false, Error: err.Message})
}
