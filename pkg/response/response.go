// Package response writes the {code, message, data} envelope every API
// endpoint answers with.
package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageData is one page of a list. PageSize equals Total when the list was
// not paged.
type PageData[T any] struct {
	List     []T   `json:"list"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// Paginate cuts page (1-based) of pageSize items out of items. A pageSize
// below 1 returns everything as page 1, and a page past the end is empty.
func Paginate[T any](items []T, page, pageSize int) PageData[T] {
	total := len(items)
	if items == nil {
		items = []T{}
	}
	if pageSize < 1 {
		return PageData[T]{List: items, Total: int64(total), Page: 1, PageSize: total}
	}
	if page < 1 {
		page = 1
	}
	start := total
	if total > 0 && page-1 <= (total-1)/pageSize {
		start = (page - 1) * pageSize
	}
	end := start + min(pageSize, total-start)
	return PageData[T]{List: items[start:end], Total: int64(total), Page: page, PageSize: pageSize}
}

func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, "success", data)
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Paged writes one page of items.
func Paged[T any](c *gin.Context, items []T, page, pageSize int) {
	Success(c, Paginate(items, page, pageSize))
}

// Attachment sends body as a plain-text download named filename.
func Attachment(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
}

// Error writes the envelope with code as both the HTTP status and the body
// code, and aborts the handler chain. Server errors are also attached to the
// context for the request logger.
func Error(c *gin.Context, code int, message string) {
	if code >= http.StatusInternalServerError {
		_ = c.Error(errors.New(message))
	}
	c.AbortWithStatusJSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

func InternalServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, message)
}
