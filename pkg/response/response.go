package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeTooManyChecks = 429
	CodeServerError   = 500
)

const (
	CodeAlreadyActivated   = 1001
	CodeNoActiveCampaign   = 1002
	CodeBookingNotFound    = 1003
	CodeBookingNotPayable  = 1004
	CodePaymentCheckFailed = 1005
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// WithStatus writes the envelope with an explicit HTTP status, for outcomes clients branch on
// (404 not found, 429 throttled).
func WithStatus(c *gin.Context, httpStatus, code int, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	WithStatus(c, http.StatusBadRequest, CodeParamError, message, nil)
}

func Unauthorized(c *gin.Context, message string) {
	WithStatus(c, http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func ServerError(c *gin.Context, message string) {
	WithStatus(c, http.StatusInternalServerError, CodeServerError, message, nil)
}

func BusinessError(c *gin.Context, code int, message string) {
	WithStatus(c, http.StatusBadRequest, code, message, nil)
}
