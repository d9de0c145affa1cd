package response

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestError_SetsStatusAndAborts(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Conflict(c, "already recording")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, c.IsAborted())
	assert.Empty(t, c.Errors)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, Response{Code: http.StatusConflict, Message: "already recording"}, body)
}

func TestError_ServerErrorsReachLogger(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ServiceUnavailable(c, "browser not available")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Len(t, c.Errors, 1)
	assert.Equal(t, "browser not available", c.Errors[0].Error())
}

func TestPaged(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Paged(c, []string{"a", "b", "c", "d", "e"}, 2, 2)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"code":200,"message":"success","data":{"list":["c","d"],"total":5,"page":2,"page_size":2}}`,
		w.Body.String())
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name     string
		page     int
		pageSize int
		want     PageData[int]
	}{
		{"unpaged", 3, 0, PageData[int]{List: items, Total: 5, Page: 1, PageSize: 5}},
		{"first", 1, 2, PageData[int]{List: []int{1, 2}, Total: 5, Page: 1, PageSize: 2}},
		{"last partial", 3, 2, PageData[int]{List: []int{5}, Total: 5, Page: 3, PageSize: 2}},
		{"past end", 4, 2, PageData[int]{List: []int{}, Total: 5, Page: 4, PageSize: 2}},
		{"page below one", -7, 2, PageData[int]{List: []int{1, 2}, Total: 5, Page: 1, PageSize: 2}},
		{"huge page", math.MaxInt, 2, PageData[int]{List: []int{}, Total: 5, Page: math.MaxInt, PageSize: 2}},
		{"huge page size", 1, math.MaxInt, PageData[int]{List: items, Total: 5, Page: 1, PageSize: math.MaxInt}},
		{"huge both", math.MaxInt, math.MaxInt, PageData[int]{List: []int{}, Total: 5, Page: math.MaxInt, PageSize: math.MaxInt}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paginate(items, tt.page, tt.pageSize))
		})
	}

	empty := Paginate[int](nil, 1, 10)
	assert.NotNil(t, empty.List)
	assert.Zero(t, empty.Total)
}

func TestAttachment(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Attachment(c, "TestCase_x.txt", []byte("body"))

	assert.Equal(t, `attachment; filename="TestCase_x.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "body", w.Body.String())
}
