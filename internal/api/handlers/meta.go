package handlers

import (
	"steprecorder/internal/codegen"
	"steprecorder/internal/i18n"
	"steprecorder/pkg/chrome"
	"steprecorder/pkg/response"

	"github.com/gin-gonic/gin"
)

// GetFormats lists the code generator targets.
func GetFormats(c *gin.Context) {
	response.Success(c, codegen.Formats())
}

// GetLanguages lists the languages steps can be recorded in.
func GetLanguages(c *gin.Context) {
	response.Success(c, i18n.Languages())
}

// GetDevices lists the emulation profiles a page can be opened with.
func GetDevices(c *gin.Context) {
	response.Success(c, chrome.Devices())
}
