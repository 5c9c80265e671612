package response

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/campusconnect/pkg/errors"
)

// Response is the envelope every API reply is wrapped in.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo is the client-facing part of an AppError.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta describes a list reply.
type Meta struct {
	Total int `json:"total,omitempty"`
}

// Acknowledgement is the payload of replies that only confirm an action.
type Acknowledgement struct {
	Message string `json:"message"`
}

// Success writes data in a success envelope.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{Success: true, Data: data})
}

// SuccessWithMeta writes a list reply with its metadata.
func SuccessWithMeta(c *gin.Context, statusCode int, data any, meta *Meta) {
	c.JSON(statusCode, Response{Success: true, Data: data, Meta: meta})
}

// Ack confirms an action with a human readable message.
func Ack(c *gin.Context, statusCode int, message string) {
	Success(c, statusCode, Acknowledgement{Message: message})
}

// Error writes err as an error envelope. Errors that are not AppErrors, and
// server-side AppErrors, are reported with the generic internal message.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}
	appErr := appErrors.FromError(err)

	info := &ErrorInfo{Code: appErr.Code, Message: appErr.Message}
	if !appErr.Exposable() {
		info.Message = appErrors.ErrInternalServer.Message
	}
	c.JSON(appErr.Status(), Response{Error: info})
}
