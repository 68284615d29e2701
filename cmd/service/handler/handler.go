package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/quillmind-ai/quillmind/app/core"
	"github.com/quillmind-ai/quillmind/app/logic/v1/process"
)

type HttpSrv struct {
	Core    *core.Core
	Engine  *gin.Engine
	Process *process.IngestProcess
}
