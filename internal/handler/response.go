package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/carelink/visit-api/pkg/errors"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewSuccessResponse(data interface{}) Response {
	return Response{Success: true, Data: data}
}

func NewErrorResponse(message string) Response {
	return Response{Success: false, Error: message}
}

// RespondError writes a typed application error with the right status.
// Internal details are not leaked for untyped errors.
func RespondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if _, ok := apperrors.CodeOf(err); !ok {
		message = "internal server error"
	}
	c.JSON(status, NewErrorResponse(message))
}
