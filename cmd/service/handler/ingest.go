package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/quillmind-ai/quillmind/app/response"
)

func (s *HttpSrv) IngestStatus(c *gin.Context) {
	response.APISuccess(c, s.Process.Status())
}

// Healthz also reports which stores the startup integrity check had to
// repair, so a restart after corruption is visible.
func (s *HttpSrv) Healthz(c *gin.Context) {
	response.APISuccess(c, gin.H{
		"status":   "ok",
		"restored": s.Core.RestoredAtStartup(),
	})
}
