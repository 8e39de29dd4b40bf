package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response standard response structure
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// SuccessResponse returns success response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      int(CodeSuccess),
		Message:   "success",
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// CreatedResponse returns 201 with the created resource
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:      int(CodeSuccess),
		Message:   "success",
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// Error writes a business error code with its mapped HTTP status
func Error(c *gin.Context, code ResponseCode, message string) {
	c.JSON(HTTPStatus(code), Response{
		Code:      int(code),
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

// Fail writes err as a response. AppErrors keep their code, message and data;
// anything else is reported as an internal error without leaking details.
func Fail(c *gin.Context, err error) {
	appErr, ok := IsAppError(err)
	if !ok {
		_ = c.Error(err)
		Error(c, CodeInternalError, ErrInternalError.Message)
		return
	}
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.JSON(HTTPStatus(appErr.Code), Response{
		Code:      int(appErr.Code),
		Message:   appErr.Message,
		Data:      appErr.Data,
		Timestamp: time.Now().Unix(),
	})
}

// PageResponse page response structure
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

// SuccessPageResponse returns success page response
func SuccessPageResponse(c *gin.Context, list interface{}, total int64, page, size int) {
	c.JSON(http.StatusOK, Response{
		Code:    int(CodeSuccess),
		Message: "success",
		Data: PageResponse{
			List:  list,
			Total: total,
			Page:  page,
			Size:  size,
		},
		Timestamp: time.Now().Unix(),
	})
}
