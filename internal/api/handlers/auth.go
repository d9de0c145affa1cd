package handlers

import (
	"net/http"
	"time"

	"steprecorder/internal/api/middleware"
	"steprecorder/pkg/response"

	"github.com/gin-gonic/gin"
)

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data": gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// GetProfile reports who the bearer token was issued to.
func GetProfile(c *gin.Context) {
	subject := c.GetString(middleware.SubjectKey)
	if subject == "" {
		response.Unauthorized(c, "not authenticated")
		return
	}
	response.Success(c, gin.H{"subject": subject})
}
